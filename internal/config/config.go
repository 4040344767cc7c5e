// Package config loads service configuration from an optional TOML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "TRACKSYNC_"

	// DefaultBatchSize is the page size of a batch sweep.
	DefaultBatchSize = 10
)

type Config struct {
	AWS     AWSConfig     `koanf:"aws"`
	Tables  TablesConfig  `koanf:"tables"`
	Queue   QueueConfig   `koanf:"queue"`
	Spotify SpotifyConfig `koanf:"spotify"`
	Sweep   SweepConfig   `koanf:"sweep"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Server  ServerConfig  `koanf:"server"`
}

type AWSConfig struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"` // LocalStack and friends
}

type TablesConfig struct {
	Purchases string `koanf:"purchases"`
	Tracks    string `koanf:"tracks"`
	Tokens    string `koanf:"tokens"`
}

type QueueConfig struct {
	SweepURL string `koanf:"sweep_url"`
}

type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	PlaylistID   string `koanf:"playlist_id"`
	APIURL       string `koanf:"api_url"`
	TokenURL     string `koanf:"token_url"`
	SearchLimit  int    `koanf:"search_limit"`
}

type SweepConfig struct {
	BatchSize     int     `koanf:"batch_size"`
	RatePerSecond float64 `koanf:"rate_per_second"`
}

type MetricsConfig struct {
	Namespace string `koanf:"namespace"`
	Disabled  bool   `koanf:"disabled"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type ServerConfig struct {
	Addr     string `koanf:"addr"`
	RunLocal bool   `koanf:"run_local"`
}

// Default returns the configuration used when nothing overrides a key.
func Default() *Config {
	return &Config{
		Tables: TablesConfig{
			Purchases: "purchases",
			Tracks:    "tracks",
			Tokens:    "tokens",
		},
		Spotify: SpotifyConfig{
			APIURL:      "https://api.spotify.com/v1",
			TokenURL:    "https://accounts.spotify.com/api/token",
			SearchLimit: 1,
		},
		Sweep: SweepConfig{
			BatchSize:     DefaultBatchSize,
			RatePerSecond: 2,
		},
		Metrics: MetricsConfig{Namespace: "TrackSync"},
		Log:     LogConfig{Level: "info"},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// Load reads path (if it exists) and then TRACKSYNC_* environment variables.
// Nested keys use a double underscore: TRACKSYNC_SPOTIFY__CLIENT_ID.
//
// An empty path falls back to $TRACKSYNC_CONFIG, then ./config.toml.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("TRACKSYNC_CONFIG")
	}
	if path == "" {
		path = "config.toml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyLegacyEnv(cfg)

	cfg.Spotify.APIURL = strings.TrimSuffix(cfg.Spotify.APIURL, "/")
	if cfg.Sweep.BatchSize <= 0 {
		cfg.Sweep.BatchSize = DefaultBatchSize
	}

	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

// applyLegacyEnv honours the plain AWS/Lambda variables the deployment
// templates already set, without overriding explicit TRACKSYNC_* values.
func applyLegacyEnv(cfg *Config) {
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = os.Getenv("AWS_REGION")
	}
	if cfg.AWS.Endpoint == "" {
		cfg.AWS.Endpoint = os.Getenv("AWS_ENDPOINT_OVERRIDE")
	}
	if !cfg.Server.RunLocal {
		cfg.Server.RunLocal = os.Getenv("RUN_LOCAL") == "true"
	}
	if cfg.Queue.SweepURL == "" {
		cfg.Queue.SweepURL = os.Getenv("SWEEP_QUEUE_URL")
	}
}

// Validate reports every missing required key at once.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"tables.purchases":      c.Tables.Purchases,
		"tables.tracks":         c.Tables.Tracks,
		"tables.tokens":         c.Tables.Tokens,
		"spotify.client_id":     c.Spotify.ClientID,
		"spotify.client_secret": c.Spotify.ClientSecret,
		"spotify.playlist_id":   c.Spotify.PlaylistID,
	}
	for _, key := range []string{
		"tables.purchases", "tables.tracks", "tables.tokens",
		"spotify.client_id", "spotify.client_secret", "spotify.playlist_id",
	} {
		if required[key] == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	return errors.Join(errs...)
}

// ValidateQueue checks the sweep queue settings used by the API and worker.
func (c *Config) ValidateQueue() error {
	if c.Queue.SweepURL == "" {
		return errors.New("queue.sweep_url is required")
	}
	return nil
}
