package grpc

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"

	middleware_grpc "storefront/internal/middleware/grpc"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type memoryStore struct {
	mu        sync.Mutex
	rows      []model.Product
	nextID    int
	failWrite bool
}

func (m *memoryStore) ListAll(context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Product, 0, len(m.rows))
	for i := len(m.rows) - 1; i >= 0; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}

func (m *memoryStore) Insert(_ context.Context, p model.NewProduct) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return nil, errors.New("permission denied for table products")
	}
	m.nextID++
	row := model.Product{ID: strconv.Itoa(m.nextID), Name: p.Name, Price: p.Price, ImageURL: p.ImageURL, Available: p.Available}
	m.rows = append(m.rows, row)
	return &row, nil
}

func (m *memoryStore) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	m.rows = kept
	return nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func startCatalog(t *testing.T, store *memoryStore, secret string) *CatalogClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(middleware_grpc.UnaryTracingInterceptor()))
	RegisterCatalogServer(srv, NewCatalogHandler(service.NewProductService(store, nil), secret))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewCatalogClient(conn)
}

func withSecret(secret string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), AdminSecretHeader, secret)
}

func productStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestCatalog_ListNewestFirst(t *testing.T) {
	store := &memoryStore{}
	_, _ = store.Insert(context.Background(), model.NewProduct{Name: "Shorts", Price: 10, Available: true})
	_, _ = store.Insert(context.Background(), model.NewProduct{Name: "Jersey", Price: 25, Available: true})
	client := startCatalog(t, store, "s3cret")

	var trailer metadata.MD
	list, err := client.List(context.Background(), grpc.Trailer(&trailer))
	require.NoError(t, err)
	require.Len(t, list.GetValues(), 2)

	first := list.GetValues()[0].GetStructValue().GetFields()
	assert.Equal(t, "Jersey", first["name"].GetStringValue())
	assert.Equal(t, float64(25), first["price"].GetNumberValue())
	assert.True(t, first["available"].GetBoolValue())
	assert.NotEmpty(t, trailer.Get("x-trace-id"))
}

func TestCatalog_InsertRequiresSecret(t *testing.T) {
	store := &memoryStore{}
	client := startCatalog(t, store, "s3cret")
	req := productStruct(t, map[string]any{"name": "Cap", "price": "5"})

	_, err := client.Insert(context.Background(), req)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = client.Insert(withSecret("nope"), req)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Empty(t, store.rows)

	out, err := client.Insert(withSecret("s3cret"), req)
	require.NoError(t, err)
	assert.Equal(t, "1", out.GetFields()["id"].GetStringValue())
	assert.Equal(t, float64(5), out.GetFields()["price"].GetNumberValue())
	assert.True(t, out.GetFields()["available"].GetBoolValue())
}

func TestCatalog_EmptySecretDisablesMutations(t *testing.T) {
	client := startCatalog(t, &memoryStore{}, "")

	err := client.Delete(withSecret(""), "1")
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestCatalog_InsertValidation(t *testing.T) {
	client := startCatalog(t, &memoryStore{}, "s3cret")
	ctx := withSecret("s3cret")

	tests := []struct {
		name   string
		fields map[string]any
	}{
		{name: "missing name", fields: map[string]any{"price": 5}},
		{name: "fractional price", fields: map[string]any{"name": "Cap", "price": 2.5}},
		{name: "negative price", fields: map[string]any{"name": "Cap", "price": "-1"}},
		{name: "relative image url", fields: map[string]any{"name": "Cap", "price": 5, "image_url": "/img/cap.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Insert(ctx, productStruct(t, tt.fields))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestCatalog_InsertStoreFailure(t *testing.T) {
	client := startCatalog(t, &memoryStore{failWrite: true}, "s3cret")

	_, err := client.Insert(withSecret("s3cret"), productStruct(t, map[string]any{"name": "Cap", "price": 5}))
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestCatalog_Delete(t *testing.T) {
	store := &memoryStore{}
	_, _ = store.Insert(context.Background(), model.NewProduct{Name: "Shorts", Price: 10, Available: true})
	client := startCatalog(t, store, "s3cret")

	require.NoError(t, client.Delete(withSecret("s3cret"), "1"))
	assert.Empty(t, store.rows)

	// unknown ids are not an error
	require.NoError(t, client.Delete(withSecret("s3cret"), "42"))

	err := client.Delete(withSecret("s3cret"), "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestPriceText(t *testing.T) {
	assert.Equal(t, "12", priceText(structpb.NewNumberValue(12)))
	assert.Equal(t, "2.5", priceText(structpb.NewNumberValue(2.5)))
	assert.Equal(t, "7", priceText(structpb.NewStringValue("7")))
	assert.Equal(t, "", priceText(nil))
}
