package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/shipload/internal/core"
)

// SuccessLine is printed after a committed run.
const SuccessLine = "Database populated successfully."

type loadOptions struct {
	Direct       string
	JoinedLeft   string
	JoinedRight  string
	JoinKey      string
	CreateSchema bool
	RejectDups   bool
	Timeout      time.Duration
}

func newLoadCmd(a *App) *cobra.Command {
	cfg := a.Config
	opts := loadOptions{}

	cmd := &cobra.Command{
		Use:   "load [--direct a.csv] [--joined-left b.csv] [--joined-right c.csv]",
		Short: "Reconcile the catalog and load all shipment sources in one transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.Direct) == "" {
				return errors.New("--direct is required")
			}
			if strings.TrimSpace(opts.JoinedLeft) == "" {
				return errors.New("--joined-left is required")
			}
			if strings.TrimSpace(opts.JoinedRight) == "" {
				return errors.New("--joined-right is required")
			}
			if opts.Timeout < 0 {
				return errors.New("--timeout must be non-negative")
			}
			return a.runLoad(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Direct, "direct", cfg.Sources.Direct, "self-contained shipment source (A)")
	f.StringVar(&opts.JoinedLeft, "joined-left", cfg.Sources.JoinedLeft, "product side of the joined sources (B)")
	f.StringVar(&opts.JoinedRight, "joined-right", cfg.Sources.JoinedRight, "routing side of the joined sources (C)")
	f.StringVar(&opts.JoinKey, "join-key", cfg.Sources.JoinKey, "column correlating the joined sources")
	f.BoolVar(&opts.CreateSchema, "create-schema", cfg.Run.CreateSchema, "create the product and shipment tables if absent")
	f.BoolVar(&opts.RejectDups, "reject-duplicate-keys", cfg.Join.RejectDuplicateKeys, "fail when a join key repeats within one joined source")
	f.DurationVar(&opts.Timeout, "timeout", cfg.Run.Timeout, "abort and roll back after this long (0 = no limit)")
	return cmd
}

func (a *App) runLoad(ctx context.Context, opts loadOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	db, err := a.openStore(ctx, opts.CreateSchema)
	if err != nil {
		return err
	}
	defer db.Close()

	join := a.joinOptions()
	join.RejectDuplicateKeys = opts.RejectDups

	coord := core.NewCoordinator(db, a.Log, join)
	res, err := coord.Run(ctx, core.Sources{
		Direct:      opts.Direct,
		JoinedLeft:  opts.JoinedLeft,
		JoinedRight: opts.JoinedRight,
		JoinKey:     opts.JoinKey,
	})
	if err != nil {
		return err
	}
	if !res.Committed() {
		return fmt.Errorf("run %s ended %s", res.RunID, res.State)
	}

	a.Log.Info("load complete",
		"run_id", res.RunID,
		"products", res.Products,
		"direct_inserted", res.Direct.Inserted,
		"joined_inserted", res.Joined.Inserted,
		"skipped", res.Direct.Skipped+res.Joined.Skipped,
	)
	fmt.Fprintln(a.Stdout, SuccessLine)
	return nil
}
