// Package cli implements the tracksync operator command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/tracksync/internal/app"
	"github.com/imrishuroy/tracksync/internal/config"
	"github.com/imrishuroy/tracksync/internal/logging"
	"github.com/imrishuroy/tracksync/internal/reconcile"
)

type IOStreams struct {
	Out    io.Writer
	ErrOut io.Writer
}

type Options struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
}

// Services is what the commands operate on. The default implementation is
// backed by the deployed tables and the Web API.
type Services interface {
	Sweep(ctx context.Context) (reconcile.SweepReport, error)
	Reconcile(ctx context.Context, itemID string) error
	SetRefreshToken(ctx context.Context, token string) error
	RefreshAccessToken(ctx context.Context) error
}

// ServicesFactory builds Services from the parsed options.
type ServicesFactory func(ctx context.Context, opts Options, errOut io.Writer) (Services, error)

type AppContext struct {
	IO       IOStreams
	Opts     Options
	Services ServicesFactory
}

// Execute runs the root command with args and returns a process exit code.
func Execute(ctx context.Context, args []string, streams IOStreams, factory ServicesFactory) int {
	if factory == nil {
		factory = DefaultServices
	}
	app := &AppContext{IO: streams, Services: factory}
	root := newRootCommand(app)
	root.SetArgs(args)
	root.SetOut(streams.Out)
	root.SetErr(streams.ErrOut)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(streams.ErrOut, "ERROR:", err)
		return 1
	}
	return 0
}

func newRootCommand(app *AppContext) *cobra.Command {
	root := &cobra.Command{
		Use:               "tracksync",
		Short:             "Operate the purchase to playlist sync",
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}

	root.PersistentFlags().StringVarP(&app.Opts.ConfigPath, "config", "c", "", "Path to config file (default $TRACKSYNC_CONFIG or ./config.toml)")
	root.PersistentFlags().BoolVar(&app.Opts.JSON, "json", false, "Emit JSON logs")
	root.PersistentFlags().BoolVarP(&app.Opts.Verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newSweepCommand(app))
	root.AddCommand(newReconcileCommand(app))
	root.AddCommand(newTokenCommand(app))

	return root
}

// DefaultServices loads configuration and connects to AWS.
func DefaultServices(ctx context.Context, opts Options, errOut io.Writer) (Services, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger := logging.New(errOut, logging.Options{Level: level, JSON: opts.JSON || cfg.Log.JSON})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return appServices{a}, nil
}

type appServices struct {
	app *app.App
}

func (s appServices) Sweep(ctx context.Context) (reconcile.SweepReport, error) {
	return s.app.Sweeper.Sweep(ctx)
}

func (s appServices) Reconcile(ctx context.Context, itemID string) error {
	return s.app.Driver.ReconcileByID(ctx, itemID)
}

func (s appServices) SetRefreshToken(ctx context.Context, token string) error {
	return s.app.Tokens.SaveRefreshToken(ctx, token)
}

func (s appServices) RefreshAccessToken(ctx context.Context) error {
	creds, err := s.app.Manager.Load(ctx)
	if err != nil {
		return err
	}
	return s.app.Manager.Refresh(ctx, creds)
}
