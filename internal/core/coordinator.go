package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/shipload/internal/logging"
	"github.com/JonMunkholm/shipload/internal/metrics"
	"github.com/JonMunkholm/shipload/internal/source"
)

// Labels used for the two load passes in stats and metrics.
const (
	PassDirect = "direct"
	PassJoined = "joined"
)

// Tables is the parsed form of Sources.
type Tables struct {
	Direct      *source.Table
	JoinedLeft  *source.Table
	JoinedRight *source.Table
	JoinKey     string
}

// RunResult reports the outcome of one run.
type RunResult struct {
	RunID       uuid.UUID     `json:"run_id"`
	State       State         `json:"state"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	Products    int           `json:"products"`     // distinct names seen in the sources
	CatalogSize int           `json:"catalog_size"` // products in the store after reconcile
	Direct      LoadStats     `json:"direct"`
	Joined      LoadStats     `json:"joined"`
	Join        JoinStats     `json:"join"`
	Error       *UserMessage  `json:"error,omitempty"`
}

// Committed reports whether the run's changes are visible.
func (r *RunResult) Committed() bool {
	return r != nil && r.State == StateCommitted
}

// Coordinator runs the reconcile and both load passes as one unit of work.
type Coordinator struct {
	store  Store
	log    *slog.Logger
	join   JoinOptions
	loader *Loader
	now    func() time.Time
}

// NewCoordinator returns a Coordinator writing to store.
func NewCoordinator(store Store, log *slog.Logger, join JoinOptions) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		store:  store,
		log:    log,
		join:   join,
		loader: NewLoader(log),
		now:    time.Now,
	}
}

// Run reads the three sources and loads them. See RunTables.
func (c *Coordinator) Run(ctx context.Context, src Sources) (*RunResult, error) {
	tables, err := OpenSources(src)
	if err != nil {
		res := c.newResult()
		return c.finish(res, StateRolledBack, err)
	}
	return c.RunTables(ctx, tables)
}

// OpenSources reads every file named by src.
func OpenSources(src Sources) (Tables, error) {
	key := src.JoinKey
	if key == "" {
		key = DefaultJoinKey
	}
	t := Tables{JoinKey: key}

	for _, f := range []struct {
		path string
		dst  **source.Table
	}{
		{src.Direct, &t.Direct},
		{src.JoinedLeft, &t.JoinedLeft},
		{src.JoinedRight, &t.JoinedRight},
	} {
		tbl, err := source.Open(f.path)
		if err != nil {
			if errors.Is(err, source.ErrNoHeader) {
				err = errors.Join(ErrEmptySource, err)
			}
			return Tables{}, &SourceError{Source: f.path, Err: err}
		}
		*f.dst = tbl
	}
	return t, nil
}

// RunTables loads already-parsed tables.
//
// Every source check happens before the transaction opens. Inside it the
// catalog is reconciled, the direct source is loaded, then the joined
// sources. Any failure rolls the whole run back; nothing is retried.
// The returned result is non-nil even when err is not.
func (c *Coordinator) RunTables(ctx context.Context, t Tables) (*RunResult, error) {
	res := c.newResult()
	// A logger already in ctx (the HTTP request's) wins over c.log.
	ctx = logging.WithDefault(ctx, c.log)
	log := logging.WithFields(ctx, "run_id", res.RunID)

	// Prepare: everything that can fail on bad input.
	names, err := DistinctProducts(t.Direct, t.JoinedLeft)
	if err != nil {
		return c.finish(res, StateRolledBack, err)
	}
	res.Products = len(names)

	direct, err := DirectRecords(t.Direct)
	if err != nil {
		return c.finish(res, StateRolledBack, err)
	}

	key := t.JoinKey
	if key == "" {
		key = DefaultJoinKey
	}
	joined, err := InnerJoin(t.JoinedLeft, t.JoinedRight, key, c.join)
	if err != nil {
		return c.finish(res, StateRolledBack, err)
	}
	res.Join = joined.Stats
	log.Debug("sources joined",
		"key", key, "columns", joined.Columns(), "matched", joined.Stats.Matched,
		"unmatched_left", joined.Stats.UnmatchedLeft, "unmatched_right", joined.Stats.UnmatchedRight)
	if joined.Stats.DuplicateKeys > 0 {
		log.Warn("join keys repeat, every matching pair is loaded",
			"key", key, "duplicate_keys", joined.Stats.DuplicateKeys, "joined_rows", joined.Stats.Matched)
		metrics.RecordJoinDuplicates(joined.Stats.DuplicateKeys)
	}

	joinedRecs, err := JoinedRecords(joined)
	if err != nil {
		return c.finish(res, StateRolledBack, err)
	}

	// Apply: one transaction.
	uow, err := BeginUnit(ctx, c.store)
	if err != nil {
		return c.finish(res, StateRolledBack, err)
	}
	defer uow.Close(ctx)

	log.Info("run started",
		"products", len(names), "direct_rows", len(direct), "joined_rows", len(joinedRecs))

	if err := c.apply(ctx, uow, names, direct, joinedRecs, res); err != nil {
		if rbErr := uow.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, ErrTerminalState) {
			log.Error("rollback failed", "error", rbErr)
		}
		log.Error("run rolled back", "error", err)
		return c.finish(res, StateRolledBack, err)
	}

	if err := uow.Commit(ctx); err != nil {
		log.Error("commit failed", "error", err)
		return c.finish(res, StateRolledBack, err)
	}

	metrics.SetCatalogSize(res.CatalogSize)
	log.Info("run committed",
		"catalog_size", res.CatalogSize,
		"direct_inserted", res.Direct.Inserted, "direct_skipped", res.Direct.Skipped,
		"joined_inserted", res.Joined.Inserted, "joined_skipped", res.Joined.Skipped)
	return c.finish(res, StateCommitted, nil)
}

func (c *Coordinator) apply(ctx context.Context, uow *UnitOfWork, names []string, direct, joined []ShipmentRecord, res *RunResult) error {
	if err := uow.Start(); err != nil {
		return err
	}
	tx := uow.Tx()

	catalog, err := Reconcile(ctx, tx, names)
	if err != nil {
		return err
	}
	res.CatalogSize = len(catalog)

	res.Direct, err = c.loader.Load(ctx, tx, catalog, direct)
	res.Direct.Source = PassDirect
	if err != nil {
		return err
	}

	res.Joined, err = c.loader.Load(ctx, tx, catalog, joined)
	res.Joined.Source = PassJoined
	return err
}

func (c *Coordinator) newResult() *RunResult {
	return &RunResult{
		RunID:     uuid.New(),
		State:     StateStarted,
		StartedAt: c.now(),
		Direct:    LoadStats{Source: PassDirect},
		Joined:    LoadStats{Source: PassJoined},
	}
}

func (c *Coordinator) finish(res *RunResult, state State, err error) (*RunResult, error) {
	res.State = state
	res.Duration = c.now().Sub(res.StartedAt)
	if err != nil {
		msg := MapError(err)
		res.Error = &msg
	}

	metrics.RecordRun(state.String(), res.Duration)
	if state == StateCommitted {
		metrics.RecordShipments(PassDirect, res.Direct.Inserted, res.Direct.Skipped)
		metrics.RecordShipments(PassJoined, res.Joined.Inserted, res.Joined.Skipped)
	}
	return res, err
}
