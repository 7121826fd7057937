package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/shipload/internal/config"
	"github.com/JonMunkholm/shipload/internal/core"
	db "github.com/JonMunkholm/shipload/internal/database"
)

// Postgres is a core.Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects and pings the database at cfg.URL.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Engine() string { return EnginePostgres }

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) CreateSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Begin starts a transaction. Statements run through the generated queries.
func (p *Postgres) Begin(ctx context.Context) (core.Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return newPgTx(tx), nil
}

// pgConn is what pgTx needs from pgx.Tx.
type pgConn interface {
	db.DBTX
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type pgTx struct {
	conn pgConn
	q    *db.Queries
}

func newPgTx(conn pgConn) *pgTx {
	return &pgTx{conn: conn, q: db.New(conn)}
}

func (t *pgTx) InsertProduct(ctx context.Context, name string) error {
	return t.q.InsertProduct(ctx, name)
}

func (t *pgTx) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := t.q.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	products := make([]core.Product, len(rows))
	for i, r := range rows {
		products[i] = core.Product{ID: int64(r.ID), Name: r.Name}
	}
	return products, nil
}

func (t *pgTx) InsertShipment(ctx context.Context, arg core.ShipmentParams) error {
	if arg.ProductID > math.MaxInt32 || arg.ProductID < math.MinInt32 {
		return fmt.Errorf("product id %d out of range for INTEGER", arg.ProductID)
	}
	return t.q.InsertShipment(ctx, db.InsertShipmentParams{
		ProductID:   int32(arg.ProductID),
		Quantity:    arg.Quantity,
		Origin:      arg.Origin,
		Destination: arg.Destination,
	})
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.conn.Commit(ctx)
}

// Rollback is a no-op once the transaction is closed.
func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.conn.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
