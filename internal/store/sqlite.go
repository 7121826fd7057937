package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JonMunkholm/shipload/internal/core"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const (
	sqliteInsertProduct  = `INSERT INTO product (name) VALUES (?) ON CONFLICT (name) DO NOTHING`
	sqliteListProducts   = `SELECT id, name FROM product ORDER BY id`
	sqliteInsertShipment = `INSERT INTO shipment (product_id, quantity, origin, destination) VALUES (:product_id, :quantity, :origin, :destination)`
)

// SQLite is a core.Store backed by a single SQLite file.
type SQLite struct {
	db *sqlx.DB
}

// OpenSQLite opens (creating if needed) the database file at path with
// foreign keys enforced. Transactions take the write lock when they begin.
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}

	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Set("_txlock", "immediate")
	dsn := "file:" + path + "?" + q.Encode()

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One writer; also keeps pragmas on the only connection.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return NewSQLite(conn), nil
}

// NewSQLite wraps an open handle.
func NewSQLite(conn *sqlx.DB) *SQLite {
	return &SQLite{db: conn}
}

func (s *SQLite) Engine() string { return EngineSQLite }

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) CreateSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Begin(ctx context.Context) (core.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

type productRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type shipmentRow struct {
	ProductID   int64  `db:"product_id"`
	Quantity    int32  `db:"quantity"`
	Origin      string `db:"origin"`
	Destination string `db:"destination"`
}

type sqliteTx struct {
	tx *sqlx.Tx
}

func (t *sqliteTx) InsertProduct(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, sqliteInsertProduct, name)
	return err
}

func (t *sqliteTx) ListProducts(ctx context.Context) ([]core.Product, error) {
	var rows []productRow
	if err := t.tx.SelectContext(ctx, &rows, sqliteListProducts); err != nil {
		return nil, err
	}
	products := make([]core.Product, len(rows))
	for i, r := range rows {
		products[i] = core.Product{ID: r.ID, Name: r.Name}
	}
	return products, nil
}

func (t *sqliteTx) InsertShipment(ctx context.Context, arg core.ShipmentParams) error {
	_, err := t.tx.NamedExecContext(ctx, sqliteInsertShipment, shipmentRow{
		ProductID:   arg.ProductID,
		Quantity:    arg.Quantity,
		Origin:      arg.Origin,
		Destination: arg.Destination,
	})
	return err
}

func (t *sqliteTx) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

// Rollback is a no-op once the transaction is closed.
func (t *sqliteTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
