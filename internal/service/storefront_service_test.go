package service

import (
	"context"
	"errors"
	"math"
	"net/url"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/errs"
	"storefront/internal/model"
	"storefront/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jersey = model.Product{ID: "2", Name: "Jersey", Price: 25, Available: true}
	shorts = model.Product{ID: "1", Name: "Shorts", Price: 10, Available: true}
)

func testStoreConfig() config.Store {
	return config.Store{
		Name:              "FUTBOL STORE CCS",
		Tagline:           "Camisetas",
		CurrencySymbol:    "$",
		PaymentMethods:    "Zelle",
		DestinationHandle: "584120000000",
		MessagingHost:     "wa.me",
		AdminSecret:       "s3cret",
	}
}

func newStorefront(t *testing.T, store *fakeStore) (*StorefrontService, *session.Session) {
	t.Helper()
	svc := NewStorefrontService(NewProductService(store, nil), testStoreConfig())
	sess := session.NewManager("s3cret", time.Hour).Create()
	return svc, sess
}

func openedStorefront(t *testing.T, store *fakeStore) (*StorefrontService, *session.Session) {
	t.Helper()
	if store.ListAllFn == nil {
		store.ListAllFn = listing(jersey, shorts)
	}
	svc, sess := newStorefront(t, store)
	require.NoError(t, svc.Open(context.Background(), sess))
	return svc, sess
}

func TestOpen_LoadsProductsOnce(t *testing.T) {
	calls := 0
	store := &fakeStore{ListAllFn: func(context.Context) ([]model.Product, error) {
		calls++
		return []model.Product{jersey, shorts}, nil
	}}
	svc, sess := newStorefront(t, store)
	ctx := context.Background()

	require.NoError(t, svc.Open(ctx, sess))
	require.NoError(t, svc.Open(ctx, sess))
	assert.Equal(t, 1, calls)

	view := svc.Products(ctx, sess)
	assert.Equal(t, session.LoadReady, view.LoadState)
	assert.Equal(t, []model.Product{jersey, shorts}, view.Products)
}

func TestOpen_FailureDegradesToEmptyList(t *testing.T) {
	store := &fakeStore{ListAllFn: func(context.Context) ([]model.Product, error) {
		return nil, errors.New("network down")
	}}
	svc, sess := newStorefront(t, store)
	ctx := context.Background()

	err := svc.Open(ctx, sess)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrFetchFailed))

	view := svc.Products(ctx, sess)
	assert.Equal(t, session.LoadFailed, view.LoadState)
	assert.Empty(t, view.Products)

	// the rest of the page keeps working
	_, err = svc.SetCartOpen(ctx, sess, false)
	require.NoError(t, err)
}

func TestOpen_DropsResultForResetSession(t *testing.T) {
	var sess *session.Session
	store := &fakeStore{ListAllFn: func(context.Context) ([]model.Product, error) {
		sess.Reset()
		return []model.Product{jersey}, nil
	}}
	svc, s := newStorefront(t, store)
	sess = s

	require.NoError(t, svc.Open(context.Background(), sess))
	view := svc.Products(context.Background(), sess)
	assert.Equal(t, session.LoadPending, view.LoadState)
	assert.Empty(t, view.Products)
}

func TestOpen_LateDuplicateLoadKeepsCreatedProduct(t *testing.T) {
	var (
		svc   *StorefrontService
		sess  *session.Session
		calls int
	)
	ctx := context.Background()
	store := &fakeStore{
		InsertFn: func(_ context.Context, p model.NewProduct) (*model.Product, error) {
			return &model.Product{ID: "3", Name: p.Name, Price: p.Price, Available: p.Available}, nil
		},
	}
	store.ListAllFn = func(context.Context) ([]model.Product, error) {
		calls++
		if calls == 1 {
			// a second request loads, logs in and creates a product
			// before this load returns
			require.NoError(t, svc.Open(ctx, sess))
			_, err := svc.Login(ctx, sess, "s3cret")
			require.NoError(t, err)
			_, err = svc.CreateProduct(ctx, sess, model.ProductForm{Name: "Cap", Price: "5"})
			require.NoError(t, err)
		}
		return []model.Product{jersey, shorts}, nil
	}
	svc, sess = newStorefront(t, store)

	require.NoError(t, svc.Open(ctx, sess))

	view := svc.Products(ctx, sess)
	assert.Equal(t, session.LoadReady, view.LoadState)
	require.Len(t, view.Products, 3)
	assert.Equal(t, "3", view.Products[0].ID)
	assert.Equal(t, 2, calls)
}

func TestOpen_KeepsProductCreatedWhileLoading(t *testing.T) {
	var (
		svc  *StorefrontService
		sess *session.Session
	)
	ctx := context.Background()
	store := &fakeStore{
		InsertFn: func(_ context.Context, p model.NewProduct) (*model.Product, error) {
			return &model.Product{ID: "3", Name: p.Name, Price: p.Price, Available: p.Available}, nil
		},
	}
	store.ListAllFn = func(context.Context) ([]model.Product, error) {
		_, err := svc.Login(ctx, sess, "s3cret")
		require.NoError(t, err)
		_, err = svc.CreateProduct(ctx, sess, model.ProductForm{Name: "Cap", Price: "5"})
		require.NoError(t, err)
		return []model.Product{jersey, shorts}, nil
	}
	svc, sess = newStorefront(t, store)

	require.NoError(t, svc.Open(ctx, sess))

	products := svc.Products(ctx, sess).Products
	require.Len(t, products, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{products[0].ID, products[1].ID, products[2].ID})
}

func TestMergeCreated_SkipsRowsAlreadyLoaded(t *testing.T) {
	capProduct := model.Product{ID: "3", Name: "Cap", Price: 5}
	got := mergeCreated([]model.Product{capProduct, jersey}, []model.Product{jersey, shorts})
	assert.Equal(t, []model.Product{capProduct, jersey, shorts}, got)

	assert.Equal(t, []model.Product{jersey}, mergeCreated(nil, []model.Product{jersey}))
}

func TestAddToCart(t *testing.T) {
	svc, sess := openedStorefront(t, &fakeStore{})
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, sess, "2")
	require.NoError(t, err)
	view, err := svc.AddToCart(ctx, sess, "2")
	require.NoError(t, err)
	assert.Equal(t, 2, view.Count)
	assert.Equal(t, int64(50), view.Total)

	_, err = svc.AddToCart(ctx, sess, "404")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	assert.Equal(t, 2, svc.Cart(ctx, sess).Count)
}

func TestAddToCart_RejectsOverflowingTotal(t *testing.T) {
	huge := model.Product{ID: "7", Name: "Legacy", Price: math.MaxInt64 - 1, Available: true}
	svc, sess := openedStorefront(t, &fakeStore{ListAllFn: listing(huge, jersey)})
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, sess, "7")
	require.NoError(t, err)

	_, err = svc.AddToCart(ctx, sess, "2")
	assert.Equal(t, errs.KindValidationFailed, errs.KindOf(err))
	assert.Equal(t, errs.ErrMsgCartTooLarge, errs.Message(err))

	view := svc.Cart(ctx, sess)
	assert.Equal(t, 1, view.Count)
	assert.Equal(t, int64(math.MaxInt64-1), view.Total)

	msg, err := svc.PreviewOrder(ctx, sess)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "TOTAL A PAGAR: $9223372036854775806*")
}

func TestAddToCart_WhileLoading(t *testing.T) {
	svc, sess := newStorefront(t, &fakeStore{})

	_, err := svc.AddToCart(context.Background(), sess, "2")
	assert.Equal(t, errs.KindNotReady, errs.KindOf(err))
}

func TestRemoveFromCart_ClosesViewWhenEmpty(t *testing.T) {
	svc, sess := openedStorefront(t, &fakeStore{})
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, sess, "2")
	_, _ = svc.AddToCart(ctx, sess, "1")
	_, err := svc.SetCartOpen(ctx, sess, true)
	require.NoError(t, err)

	view, err := svc.RemoveFromCart(ctx, sess, 0)
	require.NoError(t, err)
	assert.True(t, view.CartOpen)
	assert.Equal(t, "Shorts", view.Entries[0].Name)

	_, err = svc.RemoveFromCart(ctx, sess, 3)
	assert.True(t, errors.Is(err, errs.ErrIndexOutOfRange))
	assert.Equal(t, 1, svc.Cart(ctx, sess).Count)

	view, err = svc.RemoveFromCart(ctx, sess, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Count)
	assert.False(t, view.CartOpen)
}

func TestSetCartOpen_EmptyCart(t *testing.T) {
	svc, sess := openedStorefront(t, &fakeStore{})

	_, err := svc.SetCartOpen(context.Background(), sess, true)
	assert.True(t, errors.Is(err, errs.ErrEmptyCart))
}

func TestPreviewAndPlaceOrder(t *testing.T) {
	svc, sess := openedStorefront(t, &fakeStore{})
	ctx := context.Background()

	_, err := svc.PreviewOrder(ctx, sess)
	assert.True(t, errors.Is(err, errs.ErrEmptyCart))

	_, _ = svc.AddToCart(ctx, sess, "2")
	_, _ = svc.AddToCart(ctx, sess, "1")

	preview, err := svc.PreviewOrder(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Cart(ctx, sess).Count)

	u, err := url.Parse(preview.Link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, preview.Text, u.Query().Get("text"))
	assert.Contains(t, preview.Text, "💰 *TOTAL A PAGAR: $35*")

	placed, err := svc.PlaceOrder(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, preview, placed)

	cart := svc.Cart(ctx, sess)
	assert.Equal(t, 0, cart.Count)
	assert.False(t, cart.CartOpen)

	_, err = svc.PlaceOrder(ctx, sess)
	assert.True(t, errors.Is(err, errs.ErrEmptyCart))
}

func TestLogin(t *testing.T) {
	svc, sess := openedStorefront(t, &fakeStore{})
	ctx := context.Background()

	view := svc.SetLoginOpen(ctx, sess, true)
	assert.True(t, view.LoginOpen)

	_, err := svc.Login(ctx, sess, "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAuthRejected))
	assert.False(t, svc.Storefront(ctx, sess).Session.IsAdmin)
	assert.True(t, svc.Storefront(ctx, sess).Session.LoginOpen)

	view, err = svc.Login(ctx, sess, "s3cret")
	require.NoError(t, err)
	assert.True(t, view.IsAdmin)
	assert.False(t, view.LoginOpen)

	view = svc.Logout(ctx, sess)
	assert.False(t, view.IsAdmin)
}

func TestStorefrontView(t *testing.T) {
	svc, sess := openedStorefront(t, &fakeStore{})
	ctx := context.Background()
	_, _ = svc.AddToCart(ctx, sess, "1")

	view := svc.Storefront(ctx, sess)
	assert.Equal(t, "FUTBOL STORE CCS", view.Name)
	assert.Equal(t, "Camisetas", view.Tagline)
	assert.Equal(t, "$", view.CurrencySymbol)
	assert.Equal(t, 1, view.Session.CartCount)
	assert.Equal(t, int64(10), view.Session.CartTotal)
	assert.Equal(t, session.LoadReady, view.Session.LoadState)
}

func TestCreateProduct_RequiresAdmin(t *testing.T) {
	store := &fakeStore{}
	svc, sess := openedStorefront(t, store)

	_, err := svc.CreateProduct(context.Background(), sess, model.ProductForm{Name: "Cap", Price: "5"})
	assert.True(t, errors.Is(err, errs.ErrForbidden))
	assert.Empty(t, store.inserts)
}

func TestCreateProduct_PrependsLocally(t *testing.T) {
	store := &fakeStore{InsertFn: func(_ context.Context, p model.NewProduct) (*model.Product, error) {
		return &model.Product{ID: "3", Name: p.Name, Price: p.Price, Available: p.Available}, nil
	}}
	svc, sess := openedStorefront(t, store)
	ctx := context.Background()
	_, err := svc.Login(ctx, sess, "s3cret")
	require.NoError(t, err)

	created, err := svc.CreateProduct(ctx, sess, model.ProductForm{Name: "Cap", Price: "5"})
	require.NoError(t, err)
	assert.True(t, created.Available)

	products := svc.Products(ctx, sess).Products
	require.Len(t, products, 3)
	assert.Equal(t, "3", products[0].ID)
}

func TestCreateProduct_FailureLeavesListUnchanged(t *testing.T) {
	store := &fakeStore{InsertFn: func(context.Context, model.NewProduct) (*model.Product, error) {
		return nil, errors.New("rejected")
	}}
	svc, sess := openedStorefront(t, store)
	ctx := context.Background()
	_, _ = svc.Login(ctx, sess, "s3cret")

	_, err := svc.CreateProduct(ctx, sess, model.ProductForm{Name: "Cap", Price: "5"})
	assert.True(t, errors.Is(err, errs.ErrMutationFailed))
	assert.Len(t, svc.Products(ctx, sess).Products, 2)

	_, err = svc.CreateProduct(ctx, sess, model.ProductForm{Name: "Cap", Price: "five"})
	assert.True(t, errors.Is(err, errs.ErrValidationFailed))
	assert.Len(t, store.inserts, 1)
}

func TestDeleteProduct(t *testing.T) {
	store := &fakeStore{DeleteByIDFn: func(context.Context, string) error { return nil }}
	svc, sess := openedStorefront(t, store)
	ctx := context.Background()

	assert.True(t, errors.Is(svc.DeleteProduct(ctx, sess, "2"), errs.ErrForbidden))

	_, _ = svc.AddToCart(ctx, sess, "2")
	_, _ = svc.Login(ctx, sess, "s3cret")
	require.NoError(t, svc.DeleteProduct(ctx, sess, "2"))

	products := svc.Products(ctx, sess).Products
	require.Len(t, products, 1)
	assert.Equal(t, "1", products[0].ID)
	// entries already in the cart are kept
	assert.Equal(t, 1, svc.Cart(ctx, sess).Count)

	// deleting again is still a success
	require.NoError(t, svc.DeleteProduct(ctx, sess, "2"))
}

func TestDeleteProduct_ResetDuringDelete(t *testing.T) {
	var sess *session.Session
	store := &fakeStore{DeleteByIDFn: func(context.Context, string) error {
		sess.Reset()
		return nil
	}}
	svc, s := openedStorefront(t, store)
	sess = s
	ctx := context.Background()
	_, err := svc.Login(ctx, sess, "s3cret")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, sess, "2"))
	assert.Equal(t, []string{"2"}, store.deletes)

	view := svc.Products(ctx, sess)
	assert.Equal(t, session.LoadPending, view.LoadState)
	assert.Empty(t, view.Products)
}

func TestDeleteProduct_Failure(t *testing.T) {
	store := &fakeStore{DeleteByIDFn: func(context.Context, string) error { return errors.New("forbidden by policy") }}
	svc, sess := openedStorefront(t, store)
	ctx := context.Background()
	_, _ = svc.Login(ctx, sess, "s3cret")

	err := svc.DeleteProduct(ctx, sess, "2")
	assert.True(t, errors.Is(err, errs.ErrMutationFailed))
	assert.Len(t, svc.Products(ctx, sess).Products, 2)
}

func TestReset(t *testing.T) {
	svc, sess := openedStorefront(t, &fakeStore{})
	ctx := context.Background()
	_, _ = svc.AddToCart(ctx, sess, "2")
	_, _ = svc.Login(ctx, sess, "s3cret")

	svc.Reset(ctx, sess)

	view := svc.Storefront(ctx, sess)
	assert.False(t, view.Session.IsAdmin)
	assert.Equal(t, 0, view.Session.CartCount)
	assert.Equal(t, session.LoadPending, view.Session.LoadState)
}
