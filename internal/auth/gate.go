package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// sessionKey is the state key the signed-in session is persisted under.
const sessionKey = "session"

// Authenticator opens and closes owner sessions. Implemented by
// remote.Client over HTTP and by Service in-process.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Token, error)
	SignOut(ctx context.Context, token string) error
}

// StateStore persists small JSON values. Implemented by cache.Store.
type StateStore interface {
	Get(key string, v any) (bool, error)
	Put(key string, v any) error
	Delete(key string) error
}

type persistedSession struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
	EditMode bool     `json:"edit_mode,omitempty"`
}

// Gate is the client's view of who is signed in. Identity changes are
// visible to the next write decision; writes already started are unaffected.
type Gate struct {
	authn  Authenticator
	state  StateStore
	clock  Clock
	logger *slog.Logger

	mu      sync.RWMutex
	session *persistedSession
	subs    map[int]func(Identity, bool)
	nextSub int
}

// NewGate restores any persisted session from state.
func NewGate(authn Authenticator, state StateStore) *Gate {
	return NewGateWithClock(authn, state, realClock{})
}

// NewGateWithClock creates a Gate with a custom clock (for testing).
func NewGateWithClock(authn Authenticator, state StateStore, clock Clock) *Gate {
	g := &Gate{
		authn:  authn,
		state:  state,
		clock:  clock,
		logger: slog.Default(),
		subs:   make(map[int]func(Identity, bool)),
	}
	var ps persistedSession
	ok, err := state.Get(sessionKey, &ps)
	switch {
	case err != nil:
		g.logger.Warn("ignoring unreadable session state", "error", err)
	case ok && ps.Token != "":
		g.session = &ps
	}
	return g
}

func (g *Gate) activeLocked() (*persistedSession, bool) {
	if g.session == nil {
		return nil, false
	}
	if exp := g.session.Identity.ExpiresAt; !exp.IsZero() && !g.clock.Now().Before(exp) {
		return nil, false
	}
	return g.session, true
}

// Identity returns the signed-in owner, if any. Expired sessions read as
// signed out.
func (g *Gate) Identity() (Identity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.activeLocked()
	if !ok {
		return Identity{}, false
	}
	return s.Identity, true
}

// OwnerID reports the identity allowed to write remotely.
func (g *Gate) OwnerID() (string, bool) {
	id, ok := g.Identity()
	return id.OwnerID, ok
}

// IsOwnerEditingAllowed reports whether an owner is signed in.
func (g *Gate) IsOwnerEditingAllowed() bool {
	_, ok := g.Identity()
	return ok
}

// Token returns the bearer token of the active session.
func (g *Gate) Token() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.activeLocked()
	if !ok {
		return "", false
	}
	return s.Token, true
}

// SignIn authenticates the owner and persists the new session.
func (g *Gate) SignIn(ctx context.Context, email, password string) (Identity, error) {
	tok, err := g.authn.SignIn(ctx, email, password)
	if err != nil {
		return Identity{}, err
	}
	ps := &persistedSession{Token: tok.Value, Identity: tok.Identity}

	g.mu.Lock()
	g.session = ps
	err = g.state.Put(sessionKey, ps)
	g.mu.Unlock()
	if err != nil {
		g.logger.Warn("persisting session failed", "error", err)
	}

	g.publish()
	return tok.Identity, nil
}

// SignOut ends the session locally and on the server. The local session
// is cleared even when the server cannot be reached.
func (g *Gate) SignOut(ctx context.Context) error {
	g.mu.Lock()
	s := g.session
	g.session = nil
	g.mu.Unlock()

	if err := g.state.Delete(sessionKey); err != nil {
		g.logger.Warn("removing session state failed", "error", err)
	}
	g.publish()

	if s == nil {
		return nil
	}
	if err := g.authn.SignOut(ctx, s.Token); err != nil && !errors.Is(err, ErrUnauthorized) {
		return fmt.Errorf("revoking session on server: %w", err)
	}
	return nil
}

// Forget drops the local session without contacting the server, used when
// the server has already rejected the token.
func (g *Gate) Forget() {
	g.mu.Lock()
	had := g.session != nil
	g.session = nil
	g.mu.Unlock()
	if !had {
		return
	}
	if err := g.state.Delete(sessionKey); err != nil {
		g.logger.Warn("removing session state failed", "error", err)
	}
	g.publish()
}

// EditMode reports whether the owner has switched edit mode on.
func (g *Gate) EditMode() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.activeLocked()
	return ok && s.EditMode
}

// SetEditMode switches edit mode. Only a signed-in owner can change it.
func (g *Gate) SetEditMode(on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.activeLocked()
	if !ok {
		return fmt.Errorf("%w: sign in to edit", ErrUnauthorized)
	}
	s.EditMode = on
	return g.state.Put(sessionKey, s)
}

// ToggleEditMode flips edit mode and returns the new value.
func (g *Gate) ToggleEditMode() (bool, error) {
	next := !g.EditMode()
	if err := g.SetEditMode(next); err != nil {
		return false, err
	}
	return next, nil
}

// Subscribe registers fn to be called after every identity change. The
// returned function removes the subscription.
func (g *Gate) Subscribe(fn func(Identity, bool)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs, id)
	}
}

func (g *Gate) publish() {
	g.mu.RLock()
	subs := make([]func(Identity, bool), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.RUnlock()

	id, ok := g.Identity()
	for _, fn := range subs {
		fn(id, ok)
	}
}
