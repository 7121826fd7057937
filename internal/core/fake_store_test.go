package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/JonMunkholm/shipload/internal/source"
)

// memStore is an in-memory Store with the same visibility rules as a real
// database: nothing written through a Tx is visible until Commit.
type memStore struct {
	products  []Product
	shipments []ShipmentParams
	nextID    int64

	// failure injection
	beginErr          error
	insertProductErr  error
	listErr           error
	commitErr         error
	failShipmentAfter int // fail the nth InsertShipment (1-based); 0 disables

	begins    int
	rollbacks int
	commits   int
}

func newMemStore(existing ...string) *memStore {
	s := &memStore{}
	for _, name := range existing {
		s.nextID++
		s.products = append(s.products, Product{ID: s.nextID, Name: name})
	}
	return s
}

func (s *memStore) Begin(ctx context.Context) (Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.begins++
	return &memTx{
		store:     s,
		products:  append([]Product(nil), s.products...),
		shipments: append([]ShipmentParams(nil), s.shipments...),
		nextID:    s.nextID,
	}, nil
}

func (s *memStore) productNames() []string {
	names := make([]string, len(s.products))
	for i, p := range s.products {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}

func (s *memStore) productID(name string) int64 {
	for _, p := range s.products {
		if p.Name == name {
			return p.ID
		}
	}
	return 0
}

type memTx struct {
	store     *memStore
	products  []Product
	shipments []ShipmentParams
	nextID    int64
	shipCalls int
	done      bool
}

var errTxDone = errors.New("tx is closed")

func (t *memTx) InsertProduct(ctx context.Context, name string) error {
	if t.done {
		return errTxDone
	}
	if t.store.insertProductErr != nil {
		return t.store.insertProductErr
	}
	for _, p := range t.products {
		if p.Name == name {
			return nil
		}
	}
	t.nextID++
	t.products = append(t.products, Product{ID: t.nextID, Name: name})
	return nil
}

func (t *memTx) ListProducts(ctx context.Context) ([]Product, error) {
	if t.done {
		return nil, errTxDone
	}
	if t.store.listErr != nil {
		return nil, t.store.listErr
	}
	return append([]Product(nil), t.products...), nil
}

func (t *memTx) InsertShipment(ctx context.Context, arg ShipmentParams) error {
	if t.done {
		return errTxDone
	}
	t.shipCalls++
	if n := t.store.failShipmentAfter; n > 0 && t.shipCalls == n {
		return errors.New("CHECK constraint failed: shipment")
	}
	found := false
	for _, p := range t.products {
		if p.ID == arg.ProductID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("FOREIGN KEY constraint failed: product %d", arg.ProductID)
	}
	t.shipments = append(t.shipments, arg)
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.done = true
	t.store.products = t.products
	t.store.shipments = t.shipments
	t.store.nextID = t.nextID
	t.store.commits++
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.rollbacks++
	return nil
}

// table builds a source.Table from literal rows.
func table(name string, header []string, rows ...[]string) *source.Table {
	return source.NewTable(name, header, rows, nil)
}

var (
	directHeader = []string{"product", "product_quantity", "origin_warehouse", "destination_store"}
	leftHeader   = []string{"product", "shipment_identifier", "on_time"}
	rightHeader  = []string{"shipment_identifier", "origin_warehouse", "destination_store", "driver_identifier"}
)
