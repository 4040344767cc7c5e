package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewRefresher builds a Refresher for the app's client credentials. An empty
// tokenURL uses Spotify's accounts service.
func NewRefresher(clientID, clientSecret, tokenURL string, httpClient *http.Client) *Refresher {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &Refresher{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
	}
}

// Refresh runs the refresh_token grant and returns the new access token.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", errors.New("refresh token is empty")
	}
	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}

	// A token with no access token is never valid, so Token() always refreshes.
	src := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			return "", fmt.Errorf("refresh access token: status %d: %w", rerr.Response.StatusCode, err)
		}
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("refresh access token: empty access token in response")
	}
	return tok.AccessToken, nil
}
