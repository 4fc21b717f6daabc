package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachStore runs fn against in-memory SQLite and, when
// FOLIO_TEST_POSTGRES_DSN is set, against a freshly emptied Postgres database.
func forEachStore(t *testing.T, fn func(t *testing.T, s *Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, openTestStore(t)) })

	dsn := os.Getenv("FOLIO_TEST_POSTGRES_DSN")
	t.Run("postgres", func(t *testing.T) {
		if dsn == "" {
			t.Skip("FOLIO_TEST_POSTGRES_DSN not set")
		}
		s, err := OpenPostgres(context.Background(), dsn)
		if err != nil {
			t.Fatalf("OpenPostgres: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		for _, table := range []string{"assets", "sessions", "profile_documents", "owners"} {
			if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
				t.Fatalf("clearing %s: %v", table, err)
			}
		}
		fn(t, s)
	})
}

func createOwner(t *testing.T, s *Store, id, email string) Owner {
	t.Helper()
	o := Owner{ID: id, Email: email, PasswordHash: "hash-" + id, CreatedAt: time.Now()}
	if err := s.CreateOwner(context.Background(), o); err != nil {
		t.Fatalf("CreateOwner: %v", err)
	}
	return o
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) || len(v1) != 2 {
		t.Errorf("migration count changed or unexpected: %v -> %v", v1, v2)
	}
}

func TestTablesExist(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{"owners", "sessions", "profile_documents", "assets"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master: %v", err)
		}
		if count != 1 {
			t.Errorf("table %s not found", table)
		}
	}
}

func TestConnect_UnknownDriver(t *testing.T) {
	if _, err := Connect(context.Background(), "mysql", "", ""); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: Postgres}
	got := pg.rebind("SELECT a FROM t WHERE b = ? AND c = ?")
	if want := "SELECT a FROM t WHERE b = $1 AND c = $2"; got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}
	lite := &Store{dialect: SQLite}
	if got := lite.rebind("x = ?"); got != "x = ?" {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestOwners(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		o := createOwner(t, s, "o1", "me@example.com")

		got, err := s.GetOwnerByEmail(ctx, "me@example.com")
		if err != nil {
			t.Fatalf("GetOwnerByEmail: %v", err)
		}
		if got.ID != o.ID || got.PasswordHash != o.PasswordHash {
			t.Errorf("owner mismatch: %+v", got)
		}

		err = s.CreateOwner(ctx, Owner{ID: "o2", Email: "me@example.com", PasswordHash: "x", CreatedAt: time.Now()})
		if !errors.Is(err, ErrConflict) {
			t.Errorf("duplicate email: expected ErrConflict, got %v", err)
		}

		if _, err := s.GetOwner(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		if err := s.UpdateOwnerPassword(ctx, "o1", "new-hash"); err != nil {
			t.Fatalf("UpdateOwnerPassword: %v", err)
		}
		got, _ = s.GetOwner(ctx, "o1")
		if got.PasswordHash != "new-hash" {
			t.Errorf("password hash = %q", got.PasswordHash)
		}
		if err := s.UpdateOwnerPassword(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		owners, err := s.ListOwners(ctx)
		if err != nil || len(owners) != 1 {
			t.Errorf("ListOwners = %v, %v", owners, err)
		}
	})
}

func TestSessions(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		createOwner(t, s, "o1", "me@example.com")

		now := time.Now().UTC().Truncate(time.Second)
		sess := Session{ID: "s1", OwnerID: "o1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}

		got, err := s.GetSession(ctx, "s1")
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if !got.ExpiresAt.Equal(sess.ExpiresAt) || got.RevokedAt != nil {
			t.Errorf("unexpected session: %+v", got)
		}
		if !got.Active(now) {
			t.Error("session should be active")
		}
		if got.Active(now.Add(2 * time.Hour)) {
			t.Error("session should be expired")
		}

		if err := s.RevokeSession(ctx, "s1", now.Add(time.Minute)); err != nil {
			t.Fatalf("RevokeSession: %v", err)
		}
		if err := s.RevokeSession(ctx, "s1", now.Add(time.Hour)); err != nil {
			t.Fatalf("second RevokeSession: %v", err)
		}
		got, _ = s.GetSession(ctx, "s1")
		if got.RevokedAt == nil || !got.RevokedAt.Equal(now.Add(time.Minute)) {
			t.Errorf("revoked_at = %v, want first revocation time", got.RevokedAt)
		}
		if got.Active(now) {
			t.Error("revoked session should not be active")
		}

		if err := s.RevokeSession(ctx, "missing", now); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteExpiredSessions(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		createOwner(t, s, "o1", "me@example.com")

		now := time.Now()
		_ = s.CreateSession(ctx, Session{ID: "old", OwnerID: "o1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)})
		_ = s.CreateSession(ctx, Session{ID: "live", OwnerID: "o1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)})

		n, err := s.DeleteExpiredSessions(ctx, now)
		if err != nil {
			t.Fatalf("DeleteExpiredSessions: %v", err)
		}
		if n != 1 {
			t.Errorf("deleted %d sessions, want 1", n)
		}
		if _, err := s.GetSession(ctx, "old"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expired session still present: %v", err)
		}
		if _, err := s.GetSession(ctx, "live"); err != nil {
			t.Errorf("live session removed: %v", err)
		}
	})
}

func TestDocuments(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		if _, err := s.FirstDocument(ctx); !errors.Is(err, ErrNotFound) {
			t.Fatalf("empty store: expected ErrNotFound, got %v", err)
		}

		first := []byte(`{"hero":{"name":"A"}}`)
		if err := s.UpsertDocument(ctx, "o1", first); err != nil {
			t.Fatalf("UpsertDocument: %v", err)
		}
		got, err := s.FirstDocument(ctx)
		if err != nil {
			t.Fatalf("FirstDocument: %v", err)
		}
		if got.OwnerID != "o1" || string(got.Data) != string(first) {
			t.Errorf("unexpected document: %s %s", got.OwnerID, got.Data)
		}

		second := []byte(`{"hero":{"name":"B"},  "softSkills":["x"]}`)
		if err := s.UpsertDocument(ctx, "o1", second); err != nil {
			t.Fatalf("second UpsertDocument: %v", err)
		}
		got, _ = s.GetDocument(ctx, "o1")
		if string(got.Data) != string(second) {
			t.Errorf("data not replaced byte for byte: %s", got.Data)
		}
		if got.UpdatedAt.Before(got.CreatedAt) {
			t.Errorf("updated_at %v before created_at %v", got.UpdatedAt, got.CreatedAt)
		}

		var count int
		if err := s.queryRow(ctx, "SELECT COUNT(*) FROM profile_documents").Scan(&count); err != nil {
			t.Fatalf("counting rows: %v", err)
		}
		if count != 1 {
			t.Errorf("expected one row per owner, got %d", count)
		}

		time.Sleep(2 * time.Millisecond)
		if err := s.UpsertDocument(ctx, "o2", []byte(`{}`)); err != nil {
			t.Fatalf("UpsertDocument o2: %v", err)
		}
		got, _ = s.FirstDocument(ctx)
		if got.OwnerID != "o1" {
			t.Errorf("FirstDocument returned %s, want earliest owner o1", got.OwnerID)
		}

		if _, err := s.GetDocument(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAssets(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		now := time.Now()

		for i, id := range []string{"a1", "a2"} {
			a := Asset{
				ID: id, OwnerID: "o1", Name: id + ".png", ContentType: "image/png",
				Size: int64(100 + i), Path: "o1/" + id + ".png", CreatedAt: now.Add(time.Duration(i) * time.Second),
			}
			if err := s.SaveAsset(ctx, a); err != nil {
				t.Fatalf("SaveAsset: %v", err)
			}
		}

		got, err := s.GetAsset(ctx, "a2")
		if err != nil {
			t.Fatalf("GetAsset: %v", err)
		}
		if got.Size != 101 || got.ContentType != "image/png" || got.Path != "o1/a2.png" {
			t.Errorf("unexpected asset: %+v", got)
		}

		list, err := s.ListAssets(ctx, "o1", 10)
		if err != nil {
			t.Fatalf("ListAssets: %v", err)
		}
		if len(list) != 2 || list[0].ID != "a2" {
			t.Errorf("expected newest first, got %+v", list)
		}

		if err := s.DeleteAsset(ctx, "a1"); err != nil {
			t.Fatalf("DeleteAsset: %v", err)
		}
		if err := s.DeleteAsset(ctx, "a1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestLoadMigrations(t *testing.T) {
	for _, d := range []Dialect{SQLite, Postgres} {
		ms, err := loadMigrations(d)
		if err != nil {
			t.Fatalf("%s: %v", d, err)
		}
		if len(ms) != 2 || ms[0].version != 1 || ms[1].version != 2 {
			t.Errorf("%s migrations = %+v", d, ms)
		}
		if ms[1].name != "002_assets" {
			t.Errorf("%s second migration name = %q", d, ms[1].name)
		}
	}
}

func TestSQLitePragmas(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}
