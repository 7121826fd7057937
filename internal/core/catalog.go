package core

import (
	"context"

	"github.com/JonMunkholm/shipload/internal/source"
)

// Catalog maps product name to product id. It is built once per run inside
// the run's transaction and handed to the loader.
type Catalog map[string]int64

// Lookup returns the id of name.
func (c Catalog) Lookup(name string) (int64, bool) {
	id, ok := c[name]
	return id, ok
}

// DistinctProducts collects the product names of every table in
// first-sighting order. Blank names are not catalog entries.
func DistinctProducts(tables ...*source.Table) ([]string, error) {
	seen := make(map[string]struct{})
	var names []string

	for _, t := range tables {
		if !t.Has(ColProduct) {
			return nil, &SourceError{Source: t.Name, Column: ColProduct, Err: ErrMissingColumn}
		}
		for _, row := range t.Rows {
			name := row.Get(ColProduct)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names, nil
}

// Reconcile inserts every name that is not yet in the product table and
// returns the full catalog, including products that predate the run.
// Deduplication is left to the store's unique constraint.
func Reconcile(ctx context.Context, tx Tx, names []string) (Catalog, error) {
	for _, name := range names {
		if err := tx.InsertProduct(ctx, name); err != nil {
			return nil, storeErr("insert product", err)
		}
	}

	products, err := tx.ListProducts(ctx)
	if err != nil {
		return nil, storeErr("list products", err)
	}

	catalog := make(Catalog, len(products))
	for _, p := range products {
		catalog[p.Name] = p.ID
	}
	return catalog, nil
}
