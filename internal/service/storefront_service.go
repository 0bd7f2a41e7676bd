package service

import (
	"context"
	"log/slog"

	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/errs"
	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/order"
	"storefront/internal/session"

	"go.opentelemetry.io/otel"
)

// StorefrontService turns user actions on one session into cart, gate and
// store operations. Store calls never run under the session lock; their
// results are applied only if the session was not reset in the meantime.
type StorefrontService struct {
	products  *ProductService
	formatter *order.Formatter
	store     config.Store
}

var StorefrontServiceTracer = otel.Tracer("StorefrontService")

func NewStorefrontService(products *ProductService, store config.Store) *StorefrontService {
	return &StorefrontService{
		products:  products,
		formatter: order.NewFormatter(&store),
		store:     store,
	}
}

type ProductsView struct {
	Products  []model.Product   `json:"products"`
	LoadState session.LoadState `json:"load_state"`
}

type CartView struct {
	Entries  []cart.Entry `json:"entries"`
	Count    int          `json:"count"`
	Total    int64        `json:"total"`
	CartOpen bool         `json:"cart_open"`
}

type SessionView struct {
	IsAdmin   bool              `json:"is_admin"`
	CartOpen  bool              `json:"cart_open"`
	LoginOpen bool              `json:"login_open"`
	CartCount int               `json:"cart_count"`
	CartTotal int64             `json:"cart_total"`
	LoadState session.LoadState `json:"load_state"`
}

type StorefrontView struct {
	Name           string      `json:"name"`
	Tagline        string      `json:"tagline,omitempty"`
	CurrencySymbol string      `json:"currency_symbol"`
	PaymentMethods string      `json:"payment_methods"`
	Session        SessionView `json:"session"`
}

func cartView(st *session.State) CartView {
	return CartView{
		Entries:  st.Cart.Entries(),
		Count:    st.Cart.Count(),
		Total:    st.Cart.Total(),
		CartOpen: st.CartOpen,
	}
}

func sessionView(st *session.State) SessionView {
	return SessionView{
		IsAdmin:   st.Gate.IsAdmin(),
		CartOpen:  st.CartOpen,
		LoginOpen: st.LoginOpen,
		CartCount: st.Cart.Count(),
		CartTotal: st.Cart.Total(),
		LoadState: st.LoadState,
	}
}

// Open loads the product list the first time a session is used. A failed
// load leaves an empty list in the failed state and returns FetchFailed;
// it is not retried until the session is reset.
func (s *StorefrontService) Open(ctx context.Context, sess *session.Session) error {
	ctx, span := StorefrontServiceTracer.Start(ctx, "StorefrontService.Open")
	defer span.End()

	var pending bool
	gen := sess.Snapshot(func(st *session.State) {
		pending = st.LoadState == session.LoadPending
	})
	if !pending {
		return nil
	}

	products, err := s.products.GetAll(ctx)

	var settled bool
	applied, _ := sess.UpdateIf(gen, func(st *session.State) error {
		// A concurrent request already finished the load.
		if st.LoadState != session.LoadPending {
			settled = true
			return nil
		}
		if err != nil {
			st.Products = []model.Product{}
			st.LoadState = session.LoadFailed
			return nil
		}
		st.Products = mergeCreated(st.Products, products)
		st.LoadState = session.LoadReady
		return nil
	})
	switch {
	case !applied:
		logger.Warn(ctx, "Discarded product list for a reset session", slog.String("session", sess.ID))
		return nil
	case settled:
		logger.Info(ctx, "Discarded duplicate product list", slog.String("session", sess.ID))
		return nil
	}
	return err
}

// mergeCreated keeps products created while the load was in flight that the
// loaded list does not contain yet, in front of it.
func mergeCreated(local, loaded []model.Product) []model.Product {
	if len(local) == 0 {
		return loaded
	}
	seen := make(map[string]bool, len(loaded))
	for _, p := range loaded {
		seen[p.ID] = true
	}
	out := make([]model.Product, 0, len(local)+len(loaded))
	for _, p := range local {
		if !seen[p.ID] {
			out = append(out, p)
		}
	}
	return append(out, loaded...)
}

func (s *StorefrontService) Storefront(ctx context.Context, sess *session.Session) StorefrontView {
	view := StorefrontView{
		Name:           s.store.Name,
		Tagline:        s.store.Tagline,
		CurrencySymbol: s.store.CurrencySymbol,
		PaymentMethods: s.store.PaymentMethods,
	}
	sess.View(func(st *session.State) {
		view.Session = sessionView(st)
	})
	return view
}

func (s *StorefrontService) Products(ctx context.Context, sess *session.Session) ProductsView {
	var view ProductsView
	sess.View(func(st *session.State) {
		view.Products = append([]model.Product{}, st.Products...)
		view.LoadState = st.LoadState
	})
	return view
}

// AddToCart appends the loaded product with productID to the cart.
func (s *StorefrontService) AddToCart(ctx context.Context, sess *session.Session, productID string) (CartView, error) {
	var view CartView
	err := sess.Update(func(st *session.State) error {
		if st.LoadState == session.LoadPending {
			return errs.New(errs.KindNotReady, errs.ErrMsgStillLoading)
		}
		p, ok := findProduct(st.Products, productID)
		if !ok {
			return errs.New(errs.KindNotFound, errs.ErrMsgProductNotFound)
		}
		if !st.Cart.Fits(p.Price) {
			return errs.New(errs.KindValidationFailed, errs.ErrMsgCartTooLarge)
		}
		st.Cart.Add(p)
		view = cartView(st)
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "Add to cart rejected", slog.String("product_id", productID), slog.String("error", err.Error()))
		return CartView{}, err
	}
	return view, nil
}

// RemoveFromCart drops the entry at index. Emptying the cart closes the
// cart view.
func (s *StorefrontService) RemoveFromCart(ctx context.Context, sess *session.Session, index int) (CartView, error) {
	var view CartView
	err := sess.Update(func(st *session.State) error {
		if err := st.Cart.RemoveAt(index); err != nil {
			return err
		}
		if st.Cart.Count() == 0 {
			st.CartOpen = false
		}
		view = cartView(st)
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "Remove from cart rejected", slog.Int("index", index))
		return CartView{}, err
	}
	return view, nil
}

func (s *StorefrontService) Cart(ctx context.Context, sess *session.Session) CartView {
	var view CartView
	sess.View(func(st *session.State) {
		view = cartView(st)
	})
	return view
}

// SetCartOpen shows or hides the cart detail. There is nothing to show for
// an empty cart.
func (s *StorefrontService) SetCartOpen(ctx context.Context, sess *session.Session, open bool) (CartView, error) {
	var view CartView
	err := sess.Update(func(st *session.State) error {
		if open && st.Cart.Count() == 0 {
			return errs.New(errs.KindEmptyCart, errs.ErrMsgEmptyCart)
		}
		st.CartOpen = open
		view = cartView(st)
		return nil
	})
	return view, err
}

// PreviewOrder builds the order message without touching the cart.
func (s *StorefrontService) PreviewOrder(ctx context.Context, sess *session.Session) (*order.Message, error) {
	var (
		msg *order.Message
		err error
	)
	sess.View(func(st *session.State) {
		msg, err = s.formatter.Format(st.Cart)
	})
	return msg, err
}

// PlaceOrder builds the order message, then empties the cart and closes the
// cart view.
func (s *StorefrontService) PlaceOrder(ctx context.Context, sess *session.Session) (*order.Message, error) {
	ctx, span := StorefrontServiceTracer.Start(ctx, "StorefrontService.PlaceOrder")
	defer span.End()

	var msg *order.Message
	err := sess.Update(func(st *session.State) error {
		m, err := s.formatter.Format(st.Cart)
		if err != nil {
			return err
		}
		msg = m
		st.Cart.Clear()
		st.CartOpen = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Order handed off", slog.String("session", sess.ID))
	return msg, nil
}

func (s *StorefrontService) SetLoginOpen(ctx context.Context, sess *session.Session, open bool) SessionView {
	var view SessionView
	sess.View(func(st *session.State) {
		st.LoginOpen = open
		if !open {
			st.Gate.SetPending("")
		}
		view = sessionView(st)
	})
	return view
}

// Login tries secret against the admin gate. Success closes the login prompt.
func (s *StorefrontService) Login(ctx context.Context, sess *session.Session, secret string) (SessionView, error) {
	var view SessionView
	err := sess.Update(func(st *session.State) error {
		st.Gate.SetPending(secret)
		if err := st.Gate.Attempt(secret); err != nil {
			return err
		}
		st.LoginOpen = false
		view = sessionView(st)
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "Admin login rejected", slog.String("session", sess.ID))
		return SessionView{}, err
	}
	logger.Info(ctx, "Admin mode enabled", slog.String("session", sess.ID))
	return view, nil
}

func (s *StorefrontService) Logout(ctx context.Context, sess *session.Session) SessionView {
	var view SessionView
	sess.View(func(st *session.State) {
		st.Gate.Revoke()
		view = sessionView(st)
	})
	return view
}

// CreateProduct inserts a product and prepends it to the session's list.
func (s *StorefrontService) CreateProduct(ctx context.Context, sess *session.Session, form model.ProductForm) (*model.Product, error) {
	ctx, span := StorefrontServiceTracer.Start(ctx, "StorefrontService.CreateProduct")
	defer span.End()

	gen, err := requireAdmin(sess)
	if err != nil {
		return nil, err
	}

	created, err := s.products.Create(ctx, form)
	if err != nil {
		return nil, err
	}

	applied, _ := sess.UpdateIf(gen, func(st *session.State) error {
		st.Products = append([]model.Product{*created}, st.Products...)
		return nil
	})
	if !applied {
		logger.Warn(ctx, "Created product not added to a reset session", slog.String("id", created.ID))
	}
	return created, nil
}

// DeleteProduct deletes id from the store and from the session's list.
// Cart entries already taken from it stay in the cart.
func (s *StorefrontService) DeleteProduct(ctx context.Context, sess *session.Session, id string) error {
	ctx, span := StorefrontServiceTracer.Start(ctx, "StorefrontService.DeleteProduct")
	defer span.End()

	gen, err := requireAdmin(sess)
	if err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	applied, _ := sess.UpdateIf(gen, func(st *session.State) error {
		kept := make([]model.Product, 0, len(st.Products))
		for _, p := range st.Products {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		st.Products = kept
		return nil
	})
	if !applied {
		logger.Warn(ctx, "Deleted product not removed from a reset session", slog.String("id", id))
	}
	return nil
}

// Reset throws the session state away, like reloading the page.
func (s *StorefrontService) Reset(ctx context.Context, sess *session.Session) {
	sess.Reset()
	logger.Info(ctx, "Session reset", slog.String("session", sess.ID))
}

func requireAdmin(sess *session.Session) (uint64, error) {
	var isAdmin bool
	gen := sess.Snapshot(func(st *session.State) {
		isAdmin = st.Gate.IsAdmin()
	})
	if !isAdmin {
		return 0, errs.New(errs.KindForbidden, errs.ErrMsgAdminRequired)
	}
	return gen, nil
}

func findProduct(products []model.Product, id string) (model.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}
