package core

import (
	"context"
)

// Product is one catalog entry. Name is the identity; ID is assigned by the store.
type Product struct {
	ID   int64
	Name string
}

// ShipmentParams holds the column values of one shipment insert.
type ShipmentParams struct {
	ProductID   int64
	Quantity    int32
	Origin      string
	Destination string
}

// Store opens transactions against the persistent product/shipment tables.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the set of operations a run performs inside one transaction.
//
// InsertProduct must be a no-op when the name already exists.
// Rollback after Commit must be harmless.
type Tx interface {
	InsertProduct(ctx context.Context, name string) error
	ListProducts(ctx context.Context) ([]Product, error)
	InsertShipment(ctx context.Context, arg ShipmentParams) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Sources names the three inputs of a run.
type Sources struct {
	Direct      string
	JoinedLeft  string
	JoinedRight string
	JoinKey     string
}

// DefaultJoinKey is the correlation column of the joined sources.
const DefaultJoinKey = "shipment_identifier"

// Column names read from the sources.
const (
	ColProduct         = "product"
	ColProductQuantity = "product_quantity"
	ColOrigin          = "origin_warehouse"
	ColDestination     = "destination_store"
)
