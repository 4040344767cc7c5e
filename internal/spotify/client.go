// Package spotify is a small Spotify Web API client covering track search and
// playlist insertion. Search goes through github.com/zmb3/spotify/v2; playlist
// insertion at a position is a direct call.
//
// Response types follow https://developer.spotify.com/documentation/web-api/reference/
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://api.spotify.com/v1"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"

	DefaultTimeout = 10 * time.Second
)

// Track is the part of a Spotify track object the service reads.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	URI     string   `json:"uri"`
	Artists []Artist `json:"artists"`
}

type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// Client calls the Web API with a caller-supplied access token. It holds no
// credentials itself, so one Client is safe to share across reconciliations.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	searchLimit int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSearchLimit sets how many candidates a search asks for.
func WithSearchLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		searchLimit: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns the URIs of the tracks matching query.
func (c *Client) Search(ctx context.Context, accessToken, query string) ([]string, error) {
	tracks, err := c.SearchTracks(ctx, accessToken, query)
	if err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.URI != "" {
			uris = append(uris, t.URI)
		}
	}
	return uris, nil
}

// InsertTrack adds uri to the playlist at position and returns the new snapshot id.
func (c *Client) InsertTrack(ctx context.Context, accessToken, playlistID, uri string, position int) (string, error) {
	body := map[string]any{
		"uris":     []string{uri},
		"position": position,
	}
	var resp snapshotResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := c.do(ctx, accessToken, http.MethodPost, endpoint, body, &resp); err != nil {
		return "", err
	}
	return resp.SnapshotID, nil
}

// do performs an authenticated request and decodes a JSON result.
func (c *Client) do(ctx context.Context, accessToken, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
