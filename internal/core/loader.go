package core

import (
	"context"
	"fmt"
	"log/slog"
)

// ContextCheckInterval is how often (in records) the loader checks for
// context cancellation.
const ContextCheckInterval = 100

// LoadStats summarises one load pass.
type LoadStats struct {
	Source   string `json:"source"`
	Rows     int    `json:"rows"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"` // catalog misses
}

// Loader writes shipment records through a transaction.
type Loader struct {
	log *slog.Logger
}

// NewLoader returns a Loader logging to log (slog.Default when nil).
func NewLoader(log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{log: log}
}

// Load inserts records in input order. A record whose product is not in
// catalog is skipped and counted, not treated as an error. The first insert
// failure stops the pass and is returned as a StoreError.
func (l *Loader) Load(ctx context.Context, tx Tx, catalog Catalog, records []ShipmentRecord) (LoadStats, error) {
	var stats LoadStats
	if len(records) > 0 {
		stats.Source = records[0].Source
	}

	for i, rec := range records {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("load cancelled: %w", err)
			}
		}
		stats.Rows++

		id, ok := catalog.Lookup(rec.Product)
		if !ok {
			stats.Skipped++
			l.log.Debug("product not in catalog, row skipped",
				"source", rec.Source, "line", rec.Line, "product", rec.Product)
			continue
		}

		if err := tx.InsertShipment(ctx, rec.Params(id)); err != nil {
			return stats, storeErr(fmt.Sprintf("insert shipment (%s line %d)", rec.Source, rec.Line), err)
		}
		stats.Inserted++
	}
	return stats, nil
}
