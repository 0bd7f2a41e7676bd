package repository

import (
	"context"

	"storefront/internal/model"
)

// ProductStore is the hosted product table. Every method is attempted once;
// callers decide how a failure degrades.
type ProductStore interface {
	// ListAll returns every product, newest first.
	ListAll(ctx context.Context) ([]model.Product, error)
	// Insert stores p and returns the record with its assigned id.
	Insert(ctx context.Context, p model.NewProduct) (*model.Product, error)
	// DeleteByID removes the product with id. A missing id is not an error.
	DeleteByID(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
