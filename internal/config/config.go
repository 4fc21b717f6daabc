package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

const secretService = "folio"

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Remote  RemoteConfig
	Auth    AuthConfig
	Cache   CacheConfig
	Assets  AssetsConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	MaxConns int
}

type StorageConfig struct {
	Driver  string
	DataDir string
	DSN     string
}

type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AuthConfig struct {
	OwnerEmail    string
	OwnerPassword string
	JWTSecret     string
	TokenTTL      time.Duration
}

type CacheConfig struct {
	Dir string
}

type AssetsConfig struct {
	MaxBytes int64
}

type LogConfig struct {
	Level string
}

// SlogLevel maps the configured level name to a slog level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     4100,
			MaxConns: 256,
		},
		Storage: StorageConfig{
			Driver:  "sqlite",
			DataDir: defaultDataDir(),
		},
		Remote: RemoteConfig{
			BaseURL: "http://127.0.0.1:4100",
			Timeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 720 * time.Hour,
		},
		Assets: AssetsConfig{
			MaxBytes: 10 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.folio.app) and secrets
// fall back to the macOS Keychain (service: folio).
// Elsewhere the backend is a JSON file at $XDG_CONFIG_HOME/folio/config.json
// and secrets fall back to $XDG_DATA_HOME/folio/secrets.json.
//
// Environment variables (FOLIO_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), newSecretStore())
}

func loadWith(b Backend, kc secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, kc)

	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(cfg.Storage.DataDir, "cache")
	}

	switch cfg.Storage.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Storage.DSN == "" {
			return Config{}, fmt.Errorf("%s", "missing required config: storage.dsn is required for the postgres driver. "+
				"Set it via environment variable FOLIO_STORAGE_DSN"+secretHint("storage_dsn"))
		}
	default:
		return Config{}, fmt.Errorf("invalid storage.driver %q: want sqlite or postgres", cfg.Storage.Driver)
	}

	return cfg, nil
}

// applySecrets fills secrets not given in the environment from the
// platform secret store.
func applySecrets(cfg *Config, kc secretStore) {
	for _, s := range specs {
		if !s.secret || s.extract(*cfg) != "" {
			continue
		}
		if v, err := kc.Get(secretService, secretAccount(s.key)); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}

func secretAccount(key string) string {
	return strings.ReplaceAll(key, ".", "_")
}

// EnsureJWTSecret generates and stores a signing secret on first use so that
// tokens stay valid across server restarts.
func EnsureJWTSecret(cfg *Config) error {
	return ensureJWTSecret(cfg, newSecretStore())
}

func ensureJWTSecret(cfg *Config, kc secretStore) error {
	if cfg.Auth.JWTSecret != "" {
		return nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generating jwt secret: %w", err)
	}
	secret := hex.EncodeToString(buf)
	if err := kc.Set(secretService, secretAccount("auth.jwt_secret"), secret); err != nil {
		return fmt.Errorf("storing jwt secret: %w", err)
	}
	cfg.Auth.JWTSecret = secret
	return nil
}
