// Package admin holds the admin capability flag of a browsing session.
//
// The gate is a plain string comparison against a configured secret. It is
// not a security boundary: there is no hashing, lockout or rate limiting, and
// anyone who can read the configuration can unlock it. Product mutations that
// need real protection belong behind server-side authorization.
package admin

import "storefront/internal/errs"

type Gate struct {
	secret   string
	unlocked bool
	pending  string
}

func NewGate(secret string) *Gate {
	return &Gate{secret: secret}
}

// Attempt unlocks the gate when entered equals the configured secret. A
// mismatch never unlocks it. An empty configured secret rejects everything.
func (g *Gate) Attempt(entered string) error {
	if g.secret == "" || entered != g.secret {
		return errs.New(errs.KindAuthRejected, errs.ErrMsgAuthRejected)
	}
	g.unlocked = true
	g.pending = ""
	return nil
}

func (g *Gate) Revoke() {
	g.unlocked = false
}

func (g *Gate) IsAdmin() bool {
	return g.unlocked
}

// SetPending stores the text typed into the login prompt so far.
func (g *Gate) SetPending(text string) {
	g.pending = text
}

func (g *Gate) Pending() string {
	return g.pending
}
