package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		var gotQuery, gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/search", r.URL.Path)
			assert.Equal(t, "track", r.URL.Query().Get("type"))
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			gotQuery = r.URL.Query().Get("q")
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"tracks":{"items":[{"id":"a","uri":"spotify:track:a"},{"id":"b","uri":"spotify:track:b"}],"total":2}}`))
		}))
		defer srv.Close()

		c := NewClient(WithBaseURL(srv.URL+"/v1"), WithSearchLimit(3))
		uris, err := c.Search(context.Background(), "tok", "artist:DJ A track:Song")
		require.NoError(t, err)

		assert.Equal(t, []string{"spotify:track:a", "spotify:track:b"}, uris)
		assert.Equal(t, "artist:DJ A track:Song", gotQuery)
		assert.Equal(t, "Bearer tok", gotAuth)
	})

	t.Run("Search Empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"tracks":{"items":[],"total":0}}`))
		}))
		defer srv.Close()

		uris, err := NewClient(WithBaseURL(srv.URL)).Search(context.Background(), "tok", "q")
		require.NoError(t, err)
		assert.Empty(t, uris)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
		}))
		defer srv.Close()

		_, err := NewClient(WithBaseURL(srv.URL)).Search(context.Background(), "stale", "q")
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "The access token expired", apiErr.Message)
	})

	t.Run("Server Error Is Not Unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewClient(WithBaseURL(srv.URL)).Search(context.Background(), "tok", "q")
		require.Error(t, err)
		assert.False(t, IsUnauthorized(err))
	})

	t.Run("SearchTracks Maps Catalog Fields", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"tracks":{"items":[{"id":"a","name":"Song","uri":"spotify:track:a","artists":[{"id":"ar1","name":"DJ A"}]}],"total":1}}`))
		}))
		defer srv.Close()

		got, err := NewClient(WithBaseURL(srv.URL)).SearchTracks(context.Background(), "tok", "q")
		require.NoError(t, err)
		assert.Equal(t, []Track{{
			ID:      "a",
			Name:    "Song",
			URI:     "spotify:track:a",
			Artists: []Artist{{ID: "ar1", Name: "DJ A"}},
		}}, got)
	})

	t.Run("Unauthorized Without Body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := NewClient(WithBaseURL(srv.URL)).Search(context.Background(), "stale", "q")
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("Unreachable Is Not Unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		_, err := NewClient(WithBaseURL(srv.URL)).Search(context.Background(), "tok", "q")
		require.Error(t, err)
		assert.False(t, IsUnauthorized(err))
		var apiErr *APIError
		assert.False(t, errors.As(err, &apiErr))
	})

	t.Run("InsertTrack", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/playlists/pl1/tracks", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body struct {
				URIs     []string `json:"uris"`
				Position int      `json:"position"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{"spotify:track:a"}, body.URIs)
			assert.Equal(t, 0, body.Position)

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"snapshot_id":"snap-1"}`))
		}))
		defer srv.Close()

		snap, err := NewClient(WithBaseURL(srv.URL)).InsertTrack(context.Background(), "tok", "pl1", "spotify:track:a", 0)
		require.NoError(t, err)
		assert.Equal(t, "snap-1", snap)
	})
}

func TestRefresher(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))

			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client", user)
			assert.Equal(t, "secret", pass)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
		}))
		defer srv.Close()

		r := NewRefresher("client", "secret", srv.URL, srv.Client())
		tok, err := r.Refresh(context.Background(), "rt-1")
		require.NoError(t, err)
		assert.Equal(t, "fresh", tok)
	})

	t.Run("Rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid refresh token"}`))
		}))
		defer srv.Close()

		r := NewRefresher("client", "secret", srv.URL, srv.Client())
		_, err := r.Refresh(context.Background(), "revoked")
		require.Error(t, err)
	})

	t.Run("Empty Refresh Token", func(t *testing.T) {
		_, err := NewRefresher("c", "s", "", nil).Refresh(context.Background(), "")
		require.Error(t, err)
	})
}
