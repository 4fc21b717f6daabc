package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kalambet/folio/internal/auth"
	"github.com/kalambet/folio/internal/cache"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/remote"
)

// clientEnv is this device's view of the portfolio: its cache, the
// signed-in session, the server client and the document manager.
type clientEnv struct {
	cache   *cache.Store
	remote  *remote.Client
	gate    *auth.Gate
	profile *profile.Manager

	failures atomic.Int32
}

var newClientEnv = func() (*clientEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return openClientEnv(cfg.Cache.Dir, cfg.Remote.BaseURL, cfg.Remote.Timeout), nil
}

func openClientEnv(cacheDir, baseURL string, timeout time.Duration) *clientEnv {
	store := cache.New(cacheDir)
	rc := remote.New(baseURL, timeout, nil)
	gate := auth.NewGate(rc, store)
	rc.SetTokenSource(gate)

	env := &clientEnv{cache: store, remote: rc, gate: gate}
	gate.Subscribe(logSessionChange)
	env.profile = profile.NewManager(store, rc, gate, profile.WithNotifier(env.notify))
	return env
}

func (e *clientEnv) notify(n profile.Notification) {
	printNotification(n)
	if n.Kind != profile.SaveFailed {
		return
	}
	e.failures.Add(1)
	if errors.Is(n.Err, auth.ErrUnauthorized) {
		e.gate.Forget()
		printWarning("The server rejected the session; run folio login again")
	}
}

// sync pulls the published document before anything reads or edits the
// local copy. An unreachable server leaves the cached copy in place.
func (e *clientEnv) sync(ctx context.Context) {
	if err := e.profile.Refresh(ctx); err != nil {
		printWarning("Working offline: %v", err)
	}
}

// edit applies fn to the document and waits for the resulting remote
// saves. Anonymous edits stay on this device.
func (e *clientEnv) edit(ctx context.Context, fn func(m *profile.Manager) error) error {
	e.sync(ctx)
	if err := fn(e.profile); err != nil {
		return err
	}
	switch {
	case !e.gate.IsOwnerEditingAllowed():
		printWarning("Not signed in: the edit is saved on this device only")
	case !e.gate.EditMode():
		printWarning("Edit mode is off; run folio edit-mode on to hide this warning")
	}
	e.profile.Wait()
	if n := e.failures.Load(); n > 0 {
		return fmt.Errorf("%d remote save(s) failed", n)
	}
	return nil
}

func logSessionChange(id auth.Identity, signedIn bool) {
	if signedIn {
		slog.Debug("session changed", "email", id.Email, "owner_id", id.OwnerID)
		return
	}
	slog.Debug("signed out on this device")
}
