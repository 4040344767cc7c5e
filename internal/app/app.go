// Package app wires configuration, AWS clients and the domain services
// shared by every entrypoint.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/imrishuroy/tracksync/internal/aws"
	"github.com/imrishuroy/tracksync/internal/config"
	"github.com/imrishuroy/tracksync/internal/purchases"
	"github.com/imrishuroy/tracksync/internal/reconcile"
	"github.com/imrishuroy/tracksync/internal/spotify"
	"github.com/imrishuroy/tracksync/internal/tokens"
	"github.com/imrishuroy/tracksync/internal/tracks"
)

// App holds the services built from one Config.
type App struct {
	Config *config.Config
	Logger *log.Logger

	Clients   *aws.AWSClients
	Publisher *aws.Publisher
	Metrics   *aws.Metrics

	Purchases *purchases.Store
	Tracks    *tracks.Store
	Tokens    *tokens.Store
	Manager   *tokens.Manager

	Spotify *spotify.Client
	Driver  *reconcile.Driver
	Sweeper *reconcile.Sweeper
	FanOut  *reconcile.FanOut
}

// New builds the AWS clients and every service from cfg.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	clients, err := aws.NewAWSClients(ctx, aws.ConfigOptions{
		Region:   cfg.AWS.Region,
		Endpoint: cfg.AWS.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("init aws clients: %w", err)
	}
	return NewWithClients(cfg, clients, logger), nil
}

// NewWithClients builds the services on top of existing clients.
func NewWithClients(cfg *config.Config, clients *aws.AWSClients, logger *log.Logger) *App {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Clients:   clients,
		Publisher: aws.NewPublisher(clients.SQS, cfg.Queue.SweepURL),
		Purchases: purchases.NewStore(clients.DynamoDB, cfg.Tables.Purchases),
		Tracks:    tracks.NewStore(clients.DynamoDB, cfg.Tables.Tracks),
		Tokens:    tokens.NewStore(clients.DynamoDB, cfg.Tables.Tokens),
	}
	if !cfg.Metrics.Disabled {
		a.Metrics = aws.NewMetrics(clients.CloudWatch, cfg.Metrics.Namespace, logger.WithPrefix("metrics"))
	}

	httpClient := &http.Client{Timeout: spotify.DefaultTimeout}
	a.Spotify = spotify.NewClient(
		spotify.WithBaseURL(cfg.Spotify.APIURL),
		spotify.WithHTTPClient(httpClient),
		spotify.WithSearchLimit(cfg.Spotify.SearchLimit),
	)
	refresher := spotify.NewRefresher(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.TokenURL, httpClient)
	a.Manager = tokens.NewManager(a.Tokens, refresher, logger.WithPrefix("tokens"))

	a.Driver = reconcile.NewDriver(reconcile.DriverConfig{
		Resolver:   reconcile.NewResolver(a.Spotify, logger.WithPrefix("resolver")),
		Tracks:     a.Tracks,
		Playlist:   a.Spotify,
		Tokens:     a.Manager,
		PlaylistID: cfg.Spotify.PlaylistID,
		Metrics:    a.Metrics,
		Logger:     logger.WithPrefix("driver"),
	})
	a.Sweeper = reconcile.NewSweeper(reconcile.SweeperConfig{
		Reconciler:    a.Driver,
		Store:         a.Tracks,
		BatchSize:     cfg.Sweep.BatchSize,
		RatePerSecond: cfg.Sweep.RatePerSecond,
		Logger:        logger.WithPrefix("sweep"),
	})
	a.FanOut = reconcile.NewFanOut(a.Tracks, logger.WithPrefix("fanout"))
	return a
}
