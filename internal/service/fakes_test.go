package service

import (
	"context"
	"sync"

	"storefront/internal/model"
)

// ---- fakeStore implementing repository.ProductStore for tests ----
type fakeStore struct {
	mu sync.Mutex

	ListAllFn    func(ctx context.Context) ([]model.Product, error)
	InsertFn     func(ctx context.Context, p model.NewProduct) (*model.Product, error)
	DeleteByIDFn func(ctx context.Context, id string) error
	PingFn       func(ctx context.Context) error

	inserts []model.NewProduct
	deletes []string
}

func (f *fakeStore) ListAll(ctx context.Context) ([]model.Product, error) {
	return f.ListAllFn(ctx)
}

func (f *fakeStore) Insert(ctx context.Context, p model.NewProduct) (*model.Product, error) {
	f.mu.Lock()
	f.inserts = append(f.inserts, p)
	f.mu.Unlock()
	return f.InsertFn(ctx, p)
}

func (f *fakeStore) DeleteByID(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deletes = append(f.deletes, id)
	f.mu.Unlock()
	return f.DeleteByIDFn(ctx, id)
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.PingFn == nil {
		return nil
	}
	return f.PingFn(ctx)
}

func listing(products ...model.Product) func(context.Context) ([]model.Product, error) {
	return func(context.Context) ([]model.Product, error) {
		return products, nil
	}
}

// ---- fakeUploader implementing media.Uploader ----
type fakeUploader struct {
	url   string
	err   error
	calls int
}

func (u *fakeUploader) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	u.calls++
	return u.url, u.err
}
