package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/folio/internal/auth"
	"github.com/kalambet/folio/internal/cache"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/remote"
)

type notifications struct {
	mu   sync.Mutex
	list []profile.Notification
}

func (n *notifications) add(x profile.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, x)
}

func (n *notifications) kinds() []profile.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]profile.NotificationKind, len(n.list))
	for i, x := range n.list {
		out[i] = x.Kind
	}
	return out
}

// client is one device: its own cache directory, gate and manager.
type client struct {
	cache   *cache.Store
	gate    *auth.Gate
	manager *profile.Manager
	notes   *notifications
}

func newClient(t *testing.T, baseURL string) *client {
	t.Helper()
	store := cache.New(t.TempDir())
	rc := remote.New(baseURL, 5*time.Second, nil)
	gate := auth.NewGate(rc, store)
	rc.SetTokenSource(gate)

	notes := &notifications{}
	mgr := profile.NewManager(store, rc, gate, profile.WithNotifier(notes.add))
	return &client{cache: store, gate: gate, manager: mgr, notes: notes}
}

func TestEndToEnd_OwnerEditReachesOtherDevices(t *testing.T) {
	env := setupHandler(t, 0)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()
	ctx := context.Background()

	owner := newClient(t, srv.URL)
	if err := owner.manager.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := owner.manager.Snapshot().Hero().Name; got != profile.DefaultName {
		t.Fatalf("fresh hero.name = %q, want default", got)
	}

	if _, err := owner.gate.SignIn(ctx, "owner@example.com", "hunter2"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := owner.manager.SetHeroField("tagline", "new"); err != nil {
		t.Fatalf("SetHeroField: %v", err)
	}
	cached, ok := owner.cache.Load()
	if !ok || cached.Hero().Tagline != "new" {
		t.Fatalf("cache not updated synchronously: %+v", cached.Hero())
	}
	owner.manager.Wait()
	if got := owner.notes.kinds(); len(got) != 1 || got[0] != profile.SaveSucceeded {
		t.Fatalf("notifications = %v, want [SaveSucceeded]", got)
	}

	visitor := newClient(t, srv.URL)
	if err := visitor.manager.Refresh(ctx); err != nil {
		t.Fatalf("visitor Refresh: %v", err)
	}
	got := visitor.manager.Snapshot()
	if got.Hero().Tagline != "new" || got.Hero().Name != profile.DefaultName {
		t.Fatalf("visitor hero = %+v", got.Hero())
	}
	if !got.Equal(owner.manager.Snapshot()) {
		t.Errorf("visitor document differs from owner document")
	}

	if _, err := owner.manager.AppendItem(profile.KeyPetProjects, json.RawMessage(`{"title":"Falcon"}`)); err != nil {
		t.Fatalf("AppendItem: %v", err)
	}
	owner.manager.Wait()
	p, err := remote.New(srv.URL, time.Second, nil).Project(ctx, 0)
	if err != nil {
		t.Fatalf("Project(0): %v", err)
	}
	if p.Title != "Falcon" {
		t.Errorf("project title = %q, want Falcon", p.Title)
	}
	if _, err := remote.New(srv.URL, time.Second, nil).Project(ctx, 1); !errors.Is(err, profile.ErrIndexOutOfRange) {
		t.Errorf("Project(1) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestEndToEnd_AnonymousEditStaysLocal(t *testing.T) {
	env := setupHandler(t, 0)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	visitor := newClient(t, srv.URL)
	if err := visitor.manager.SetHeroField("tagline", "graffiti"); err != nil {
		t.Fatalf("SetHeroField: %v", err)
	}
	visitor.manager.Wait()

	if got := visitor.manager.Snapshot().Hero().Tagline; got != "graffiti" {
		t.Fatalf("local tagline = %q", got)
	}
	if n := visitor.notes.kinds(); len(n) != 0 {
		t.Fatalf("anonymous edit produced notifications %v", n)
	}
	if _, err := env.store.FirstDocument(context.Background()); err == nil {
		t.Fatal("anonymous edit reached the server")
	}
}

func TestEndToEnd_SignedOutServerSideReportsFailure(t *testing.T) {
	env := setupHandler(t, 0)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()
	ctx := context.Background()

	owner := newClient(t, srv.URL)
	if _, err := owner.gate.SignIn(ctx, "owner@example.com", "hunter2"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	tok, _ := owner.gate.Token()
	if err := env.auth.SignOut(ctx, tok); err != nil {
		t.Fatalf("server-side SignOut: %v", err)
	}

	if err := owner.manager.SetHeroField("tagline", "offline edit"); err != nil {
		t.Fatalf("SetHeroField: %v", err)
	}
	owner.manager.Wait()

	if got := owner.notes.kinds(); len(got) != 1 || got[0] != profile.SaveFailed {
		t.Fatalf("notifications = %v, want [SaveFailed]", got)
	}
	reloaded, ok := owner.cache.Load()
	if !ok || reloaded.Hero().Tagline != "offline edit" {
		t.Fatalf("local edit lost after failed save")
	}
}
