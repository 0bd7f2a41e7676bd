package session

import (
	"sync"
	"sync/atomic"
	"time"

	"storefront/internal/admin"
	"storefront/internal/cart"
	"storefront/internal/model"
)

type LoadState string

const (
	LoadPending LoadState = "pending"
	LoadReady   LoadState = "ready"
	LoadFailed  LoadState = "failed"
)

// State is everything one browser session owns. It is only reachable through
// Session.View and Session.Update, which hold the session lock.
type State struct {
	Products  []model.Product
	LoadState LoadState
	Cart      *cart.Cart
	Gate      *admin.Gate
	CartOpen  bool
	LoginOpen bool
}

type Session struct {
	ID string

	mu          sync.Mutex
	state       State
	generation  uint64
	adminSecret string
	lastSeen    atomic.Int64
}

func newSession(id, adminSecret string, now time.Time) *Session {
	s := &Session{ID: id, adminSecret: adminSecret}
	s.state = freshState(adminSecret)
	s.lastSeen.Store(now.UnixNano())
	return s
}

func freshState(adminSecret string) State {
	return State{
		Products:  []model.Product{},
		LoadState: LoadPending,
		Cart:      cart.New(),
		Gate:      admin.NewGate(adminSecret),
	}
}

// View runs fn with the session locked. fn must not keep st.
func (s *Session) View(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Update runs fn with the session locked and returns its error.
func (s *Session) Update(fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

// Generation identifies the current incarnation of the session state. It
// changes on Reset; results of store calls started under an older generation
// must be dropped.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Snapshot runs fn with the session locked and returns the generation fn saw.
func (s *Session) Snapshot(fn func(st *State)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	return s.generation
}

// UpdateIf runs fn only when the generation is still gen. applied reports
// whether fn ran.
func (s *Session) UpdateIf(gen uint64, fn func(st *State) error) (applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false, nil
	}
	return true, fn(&s.state)
}

// Reset discards all state as a page reload would: empty cart, admin
// revoked, products to be loaded again.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.state = freshState(s.adminSecret)
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}
