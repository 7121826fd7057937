// Package store implements core.Store for PostgreSQL (pgx) and SQLite (sqlx).
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/shipload/internal/config"
	"github.com/JonMunkholm/shipload/internal/core"
)

// DB is an open store.
type DB interface {
	core.Store

	// Engine returns "postgres" or "sqlite".
	Engine() string
	Ping(ctx context.Context) error
	// CreateSchema creates the product and shipment tables if absent.
	CreateSchema(ctx context.Context) error
	Close() error
}

// Engine names.
const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// Open connects to the store named by cfg.URL:
//
//	postgres://... or postgresql://...  PostgreSQL via pgxpool
//	sqlite://path                       SQLite file
//	path                                SQLite file
func Open(ctx context.Context, cfg config.DatabaseConfig) (DB, error) {
	engine, target := Resolve(cfg.URL)
	switch engine {
	case EnginePostgres:
		pg, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case EngineSQLite:
		lite, err := OpenSQLite(ctx, target, cfg.BusyTimeout)
		if err != nil {
			return nil, err
		}
		return lite, nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", cfg.URL)
	}
}

// Resolve returns the engine for url and the engine-specific target.
func Resolve(url string) (engine, target string) {
	url = strings.TrimSpace(url)
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return EnginePostgres, url
	case strings.HasPrefix(lower, "sqlite://"):
		return EngineSQLite, url[len("sqlite://"):]
	case strings.Contains(url, "://"):
		return "", url
	default:
		return EngineSQLite, url
	}
}
