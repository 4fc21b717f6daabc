package config

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"
)

// mockKeychain is a test double for secretStore.
type mockKeychain struct {
	values map[string]string
	err    error
}

func (m *mockKeychain) Get(service, account string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[service+"/"+account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *mockKeychain) Set(service, account, value string) error {
	if m.err != nil {
		return m.err
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[service+"/"+account] = value
	return nil
}

// mapBackend is an in-memory Backend.
type mapBackend map[string]string

func (b mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b[key]
	return v, ok, nil
}

func (b mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b[key]
	if !ok {
		return 0, false, nil
	}
	i, err := strconv.Atoi(v)
	return i, true, err
}

func (b mapBackend) SetString(key, val string) error { b[key] = val; return nil }
func (b mapBackend) SetInt(key string, val int) error {
	b[key] = strconv.Itoa(val)
	return nil
}
func (b mapBackend) Delete(key string) error { delete(b, key); return nil }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when nothing is configured.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{}, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Server.MaxConns != 256 {
		t.Errorf("Server.MaxConns = %d, want 256", cfg.Server.MaxConns)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Remote.BaseURL != "http://127.0.0.1:4100" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("Remote.Timeout = %v, want 10s", cfg.Remote.Timeout)
	}
	if cfg.Auth.TokenTTL != 720*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 720h", cfg.Auth.TokenTTL)
	}
	if cfg.Assets.MaxBytes != 10<<20 {
		t.Errorf("Assets.MaxBytes = %d", cfg.Assets.MaxBytes)
	}
	if !strings.HasPrefix(cfg.Cache.Dir, cfg.Storage.DataDir) {
		t.Errorf("Cache.Dir = %q, want it under %q", cfg.Cache.Dir, cfg.Storage.DataDir)
	}
	if cfg.Log.SlogLevel() != slog.LevelInfo {
		t.Errorf("log level = %v", cfg.Log.SlogLevel())
	}
}

// TestBackendValues verifies that backend values replace defaults.
func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := mapBackend{
		"server.port":      "5000",
		"remote.base_url":  "https://folio.example.com",
		"remote.timeout":   "3s",
		"auth.token_ttl":   "not-a-duration",
		"cache.dir":        "/tmp/folio-cache",
		"assets.max_bytes": "1024",
		"log.level":        "debug",
	}
	cfg, err := loadWith(b, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Remote.BaseURL != "https://folio.example.com" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Timeout != 3*time.Second {
		t.Errorf("Remote.Timeout = %v", cfg.Remote.Timeout)
	}
	if cfg.Auth.TokenTTL != 720*time.Hour {
		t.Errorf("unparseable duration should keep the default, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Cache.Dir != "/tmp/folio-cache" {
		t.Errorf("Cache.Dir = %q", cfg.Cache.Dir)
	}
	if cfg.Assets.MaxBytes != 1024 {
		t.Errorf("Assets.MaxBytes = %d", cfg.Assets.MaxBytes)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.Log.SlogLevel())
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("FOLIO_SERVER_PORT", "6000")
	t.Setenv("FOLIO_REMOTE_TIMEOUT", "250ms")
	t.Setenv("FOLIO_SERVER_MAX_CONNS", "lots")

	cfg, err := loadWith(mapBackend{"server.port": "5000"}, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Remote.Timeout != 250*time.Millisecond {
		t.Errorf("Remote.Timeout = %v", cfg.Remote.Timeout)
	}
	if cfg.Server.MaxConns != 256 {
		t.Errorf("unparseable env var should keep the default, got %d", cfg.Server.MaxConns)
	}
}

// TestSecrets verifies secrets come from the environment first, then the secret store,
// and are never read from the backend.
func TestSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("FOLIO_AUTH_OWNER_PASSWORD", "env-password")

	kc := &mockKeychain{values: map[string]string{
		"folio/auth_owner_password": "stored-password",
		"folio/auth_jwt_secret":     "stored-secret",
	}}
	b := mapBackend{"auth.jwt_secret": "backend-secret"}

	cfg, err := loadWith(b, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.OwnerPassword != "env-password" {
		t.Errorf("OwnerPassword = %q, want env-password", cfg.Auth.OwnerPassword)
	}
	if cfg.Auth.JWTSecret != "stored-secret" {
		t.Errorf("JWTSecret = %q, want stored-secret", cfg.Auth.JWTSecret)
	}

	for _, k := range ShowAll(cfg) {
		if strings.Contains(k.Value, "password") || strings.Contains(k.Value, "secret") {
			t.Errorf("ShowAll leaked a secret: %+v", k)
		}
	}
}

// TestPostgresRequiresDSN verifies a clear error when the postgres driver has no DSN.
func TestPostgresRequiresDSN(t *testing.T) {
	clearEnv(t)

	_, err := loadWith(mapBackend{"storage.driver": "postgres"}, &mockKeychain{})
	if err == nil {
		t.Fatal("expected error for missing DSN, got nil")
	}
	if want := "missing required config"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want it to contain %q", err.Error(), want)
	}

	t.Setenv("FOLIO_STORAGE_DSN", "postgres://localhost/folio")
	cfg, err := loadWith(mapBackend{"storage.driver": "postgres"}, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.DSN != "postgres://localhost/folio" {
		t.Errorf("DSN = %q", cfg.Storage.DSN)
	}

	if _, err := loadWith(mapBackend{"storage.driver": "mysql"}, &mockKeychain{}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestEnsureJWTSecret(t *testing.T) {
	kc := &mockKeychain{}
	cfg := defaults()

	if err := ensureJWTSecret(&cfg, kc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Auth.JWTSecret) != 64 {
		t.Fatalf("JWTSecret = %q, want 64 hex chars", cfg.Auth.JWTSecret)
	}
	if kc.values["folio/auth_jwt_secret"] != cfg.Auth.JWTSecret {
		t.Error("generated secret was not stored")
	}

	first := cfg.Auth.JWTSecret
	if err := ensureJWTSecret(&cfg, kc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.JWTSecret != first {
		t.Error("existing secret was replaced")
	}

	cfg = defaults()
	if err := ensureJWTSecret(&cfg, &mockKeychain{err: errors.New("locked")}); err == nil {
		t.Error("expected error when the secret store is unavailable")
	}
}

func TestSetKey(t *testing.T) {
	b := mapBackend{}

	if err := setKey(b, "server.port", "4200"); err != nil {
		t.Fatalf("setKey: %v", err)
	}
	if b["server.port"] != "4200" {
		t.Errorf("server.port = %q", b["server.port"])
	}
	if err := setKey(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKey(b, "remote.timeout", "5s"); err != nil {
		t.Fatalf("setKey duration: %v", err)
	}
	if err := setKey(b, "remote.timeout", "soon"); err == nil {
		t.Error("expected error for invalid duration")
	}
	if err := setKey(b, "auth.owner_password", "x"); err == nil || !strings.Contains(err.Error(), "FOLIO_AUTH_OWNER_PASSWORD") {
		t.Errorf("secret key error = %v", err)
	}
	if err := setKey(b, "nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}

	if err := unsetKey(b, "server.port"); err != nil {
		t.Fatalf("unsetKey: %v", err)
	}
	if _, ok := b["server.port"]; ok {
		t.Error("server.port still set")
	}
}

func TestValidKeys(t *testing.T) {
	keys := ValidKeys()
	for _, k := range keys {
		if k == "auth.jwt_secret" || k == "storage.dsn" || k == "auth.owner_password" {
			t.Errorf("ValidKeys includes secret %q", k)
		}
	}
	if len(keys) != len(specs)-3 {
		t.Errorf("got %d keys, want %d", len(keys), len(specs)-3)
	}
}

func TestShowAll_SortedWithDurations(t *testing.T) {
	list := ShowAll(defaults())
	for i := 1; i < len(list); i++ {
		if list[i-1].Key > list[i].Key {
			t.Fatalf("ShowAll not sorted at %q > %q", list[i-1].Key, list[i].Key)
		}
	}
	for _, k := range list {
		if k.Key == "remote.timeout" && k.Value != "10s" {
			t.Errorf("remote.timeout shown as %q, want 10s", k.Value)
		}
	}
}
