package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Retry one batch of unresolved tracks and wait for it to finish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Services(cmd.Context(), app.Opts, app.IO.ErrOut)
			if err != nil {
				return err
			}
			report, err := svc.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(app.IO.Out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func newReconcileCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <item-id>",
		Short: "Reconcile a single track record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Services(cmd.Context(), app.Opts, app.IO.ErrOut)
			if err != nil {
				return err
			}
			if err := svc.Reconcile(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("reconcile %s: %w", args[0], err)
			}
			fmt.Fprintf(app.IO.Out, "reconciled %s\n", args[0])
			return nil
		},
	}
}

func newTokenCommand(app *AppContext) *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Manage stored API credentials",
	}

	token.AddCommand(&cobra.Command{
		Use:   "set-refresh <refresh-token>",
		Short: "Store the refresh token obtained from the authorization flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Services(cmd.Context(), app.Opts, app.IO.ErrOut)
			if err != nil {
				return err
			}
			if err := svc.SetRefreshToken(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(app.IO.Out, "refresh token stored")
			return nil
		},
	})

	token.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Services(cmd.Context(), app.Opts, app.IO.ErrOut)
			if err != nil {
				return err
			}
			if err := svc.RefreshAccessToken(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(app.IO.Out, "access token refreshed")
			return nil
		},
	})

	return token
}
