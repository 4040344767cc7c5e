package tokens

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/imrishuroy/tracksync/internal/spotify"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// TokenStore is the persistence the Manager needs.
type TokenStore interface {
	Load(ctx context.Context) (Credentials, error)
	SaveAccessToken(ctx context.Context, value string) error
}

// Manager loads credentials and applies the refresh-once policy to API calls.
// It holds no credentials itself; callers own the Credentials for a unit of work.
type Manager struct {
	store     TokenStore
	refresher Refresher
	logger    *log.Logger
}

func NewManager(store TokenStore, refresher Refresher, logger *log.Logger) *Manager {
	return &Manager{store: store, refresher: refresher, logger: logger}
}

// Load reads the current credentials from the store.
func (m *Manager) Load(ctx context.Context) (*Credentials, error) {
	creds, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return &creds, nil
}

// Refresh obtains a new access token and persists it. Failures are logged and
// reported to the caller but leave creds unchanged.
func (m *Manager) Refresh(ctx context.Context, creds *Credentials) error {
	if creds.RefreshToken == "" {
		m.logger.Warn("token refresh skipped", "err", ErrNoRefreshToken)
		return ErrNoRefreshToken
	}
	access, err := m.refresher.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		m.logger.Error("token refresh failed", "err", err)
		return err
	}
	creds.AccessToken = access
	if err := m.store.SaveAccessToken(ctx, access); err != nil {
		// the new token is still usable for this unit of work
		m.logger.Error("persist access token failed", "err", err)
	}
	m.logger.Info("access token refreshed")
	return nil
}

// Do runs fn with the current access token. If fn fails with an authorization
// error the token is refreshed once and fn retried once. Any other error, or
// the retry's error, is returned as is.
func (m *Manager) Do(ctx context.Context, creds *Credentials, fn func(ctx context.Context, accessToken string) error) error {
	err := fn(ctx, creds.AccessToken)
	if err == nil || !spotify.IsUnauthorized(err) {
		return err
	}
	m.logger.Debug("authorization rejected, refreshing token")
	// best effort: the retry runs even if refresh failed and reports its own error
	_ = m.Refresh(ctx, creds)
	return fn(ctx, creds.AccessToken)
}
