package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/imrishuroy/tracksync/internal/tokens"
	"github.com/imrishuroy/tracksync/internal/tracks"
)

// Metric names published by the Driver.
const (
	MetricTrackMatched            = "TrackMatched"
	MetricTrackUnmatched          = "TrackUnmatched"
	MetricPlaylistInsertSucceeded = "PlaylistInsertSucceeded"
	MetricPlaylistInsertFailed    = "PlaylistInsertFailed"
)

// TrackStore is the subset of tracks.Store the Driver writes to.
type TrackStore interface {
	Get(ctx context.Context, itemID string) (*tracks.Record, error)
	SetSpotifyURI(ctx context.Context, itemID, uri string) error
	SetSnapshotID(ctx context.Context, itemID, uri, snapshotID string) error
}

// PlaylistInserter adds a track to a playlist and returns the new snapshot id.
type PlaylistInserter interface {
	InsertTrack(ctx context.Context, accessToken, playlistID, uri string, position int) (string, error)
}

// CredentialManager loads credentials and runs calls under the refresh policy.
type CredentialManager interface {
	Load(ctx context.Context) (*tokens.Credentials, error)
	Do(ctx context.Context, creds *tokens.Credentials, fn func(ctx context.Context, accessToken string) error) error
}

// Counter publishes counters. *aws.Metrics satisfies it.
type Counter interface {
	Count(ctx context.Context, name string, value float64)
}

type DriverConfig struct {
	Resolver   *Resolver
	Tracks     TrackStore
	Playlist   PlaylistInserter
	Tokens     CredentialManager
	PlaylistID string
	Metrics    Counter
	Logger     *log.Logger
}

// Driver reconciles a single track record: resolve, persist the URI, insert
// into the playlist, persist the snapshot id.
type Driver struct {
	cfg DriverConfig
}

func NewDriver(cfg DriverConfig) *Driver {
	return &Driver{cfg: cfg}
}

// Reconcile runs the pipeline for rec. An unmatched track is not an error.
// A record that already has a URI but no snapshot id resumes at insertion.
func (d *Driver) Reconcile(ctx context.Context, itemID string, rec tracks.Record) error {
	logger := d.cfg.Logger.With("item_id", itemID)
	if rec.InPlaylist() {
		logger.Debug("track already in playlist")
		return nil
	}

	creds, err := d.cfg.Tokens.Load(ctx)
	if err != nil {
		return err
	}

	uri := rec.SpotifyURI
	if uri == "" {
		var res Resolution
		err := d.cfg.Tokens.Do(ctx, creds, func(ctx context.Context, accessToken string) error {
			var err error
			res, err = d.cfg.Resolver.Resolve(ctx, accessToken, rec.Track)
			return err
		})
		if err != nil {
			return fmt.Errorf("resolve track: %w", err)
		}
		if !res.Matched() {
			d.count(ctx, MetricTrackUnmatched)
			logger.Info("no catalog match", "name", rec.Track.Name, "artists", rec.Track.Artists, "attempts", len(res.Attempts))
			return nil
		}
		d.count(ctx, MetricTrackMatched)

		if err := d.cfg.Tracks.SetSpotifyURI(ctx, itemID, res.URI); err != nil {
			if errors.Is(err, tracks.ErrAlreadyResolved) {
				logger.Warn("track resolved concurrently, leaving it to that run", "uri", res.URI)
				return nil
			}
			return fmt.Errorf("store uri: %w", err)
		}
		uri = res.URI
		logger.Info("track resolved", "uri", uri)
	}

	var snapshotID string
	err = d.cfg.Tokens.Do(ctx, creds, func(ctx context.Context, accessToken string) error {
		var err error
		snapshotID, err = d.cfg.Playlist.InsertTrack(ctx, accessToken, d.cfg.PlaylistID, uri, 0)
		return err
	})
	if err != nil {
		d.count(ctx, MetricPlaylistInsertFailed)
		return fmt.Errorf("insert track: %w", err)
	}
	d.count(ctx, MetricPlaylistInsertSucceeded)

	// An empty snapshot id would mark the record complete without proof of the write.
	if snapshotID == "" {
		logger.Warn("playlist insert returned no snapshot id", "uri", uri)
		return nil
	}
	if err := d.cfg.Tracks.SetSnapshotID(ctx, itemID, uri, snapshotID); err != nil {
		return fmt.Errorf("store snapshot id: %w", err)
	}
	logger.Info("track added to playlist", "uri", uri, "snapshot_id", snapshotID)
	return nil
}

// ReconcileByID loads the record and reconciles it. Unknown ids are logged
// and ignored.
func (d *Driver) ReconcileByID(ctx context.Context, itemID string) error {
	rec, err := d.cfg.Tracks.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if rec == nil {
		d.cfg.Logger.Warn("track not found", "item_id", itemID)
		return nil
	}
	return d.Reconcile(ctx, itemID, *rec)
}

func (d *Driver) count(ctx context.Context, name string) {
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.Count(ctx, name, 1)
	}
}
