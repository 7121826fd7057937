// Package cli wires configuration, the store and the coordinator into the
// shipload command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/shipload/internal/config"
	"github.com/JonMunkholm/shipload/internal/core"
	"github.com/JonMunkholm/shipload/internal/store"
)

// Opener opens the configured store. store.Open in production.
type Opener func(ctx context.Context, cfg config.DatabaseConfig) (store.DB, error)

// App holds what every command needs.
type App struct {
	Config *config.Config
	Log    *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
	Open   Opener
}

// NewRootCmd builds the command tree. Running it without a subcommand
// performs a load with the configured sources.
func NewRootCmd(a *App) *cobra.Command {
	if a.Open == nil {
		a.Open = store.Open
	}
	if a.Log == nil {
		a.Log = slog.Default()
	}

	load := newLoadCmd(a)

	cmd := &cobra.Command{
		Use:   "shipload",
		Short: "Load shipment CSVs into the product and shipment tables",
		Long: `shipload reconciles the product catalog with three shipment sources and
inserts one shipment row per direct record and per joined record, all in a
single transaction.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          load.RunE,
	}
	cmd.Flags().AddFlagSet(load.Flags())

	cmd.AddCommand(load)
	cmd.AddCommand(newSchemaCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.SetOut(a.Stdout)
	cmd.SetErr(a.Stderr)
	return cmd
}

// Execute runs the CLI and reports a failure as one line on stderr.
func Execute(ctx context.Context, a *App, args []string) error {
	cmd := NewRootCmd(a)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		a.Log.Error("command failed", "error", err)
		fmt.Fprintln(a.Stderr, errorLine(err))
	}
	return err
}

// errorLine prefers the user message; errors without one (bad flags,
// config) are printed as-is.
func errorLine(err error) string {
	if core.IsUserFacing(err) {
		return "Error: " + core.FormatUserError(err)
	}
	return "Error: " + err.Error()
}

// openStore opens the store and optionally creates the tables.
func (a *App) openStore(ctx context.Context, createSchema bool) (store.DB, error) {
	db, err := a.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, &core.StoreError{Op: "open", Err: err}
	}
	if createSchema {
		if err := db.CreateSchema(ctx); err != nil {
			db.Close()
			return nil, &core.StoreError{Op: "create schema", Err: err}
		}
	}
	a.Log.Debug("store opened", "engine", db.Engine(), "url", a.Config.Database.SafeURL())
	return db, nil
}

func (a *App) joinOptions() core.JoinOptions {
	return core.JoinOptions{
		LeftTag:             a.Config.Join.LeftTag,
		RightTag:            a.Config.Join.RightTag,
		RejectDuplicateKeys: a.Config.Join.RejectDuplicateKeys,
	}
}
