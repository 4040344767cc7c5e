package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	zspotify "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// SearchTracks runs a track search and returns the candidates in result order.
func (c *Client) SearchTracks(ctx context.Context, accessToken, query string) ([]Track, error) {
	api, status := c.catalog(accessToken)

	res, err := api.Search(ctx, query, zspotify.SearchTypeTrack, zspotify.Limit(c.searchLimit))
	if err != nil {
		return nil, searchError(*status, err)
	}
	if res == nil || res.Tracks == nil {
		return nil, nil
	}

	out := make([]Track, 0, len(res.Tracks.Tracks))
	for _, t := range res.Tracks.Tracks {
		tr := Track{ID: string(t.ID), Name: t.Name, URI: string(t.URI)}
		for _, a := range t.Artists {
			tr.Artists = append(tr.Artists, Artist{ID: string(a.ID), Name: a.Name})
		}
		out = append(out, tr)
	}
	return out, nil
}

// catalog builds a library client bound to one access token. The returned
// pointer holds the status code of the last response it saw.
func (c *Client) catalog(accessToken string) (*zspotify.Client, *int) {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	rec := &statusRecorder{next: base}
	hc := &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Base:   rec,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
		},
	}
	return zspotify.New(hc, zspotify.WithBaseURL(c.baseURL+"/")), &rec.status
}

// searchError maps a library error onto *APIError so 401s keep matching
// ErrUnauthorized.
func searchError(status int, err error) error {
	var apiErr zspotify.Error
	if errors.As(err, &apiErr) {
		if status == 0 {
			status = apiErr.Status
		}
		return &APIError{Status: status, Message: apiErr.Message}
	}
	if status >= http.StatusBadRequest {
		return &APIError{Status: status}
	}
	return fmt.Errorf("request failed: %w", err)
}

type statusRecorder struct {
	next   http.RoundTripper
	status int
}

func (s *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := s.next.RoundTrip(req)
	if resp != nil {
		s.status = resp.StatusCode
	}
	return resp, err
}
