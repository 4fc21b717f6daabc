package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/folio/internal/api"
	"github.com/kalambet/folio/internal/assets"
	"github.com/kalambet/folio/internal/auth"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/storage"
)

const sessionSweepInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the portfolio document (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		return runServer(cmd.Context(), host)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running folio server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server, session and local document status",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		showStatus(cmd.Context(), env)
		return nil
	},
}

func init() {
	serveCmd.Flags().String("host", "127.0.0.1", "interface to listen on")
}

// pidFile records the serving process so `folio stop` can signal it.
type pidFile string

func pidFileIn(dataDir string) pidFile {
	return pidFile(filepath.Join(dataDir, "folio.pid"))
}

func (p pidFile) write() error {
	if err := os.MkdirAll(filepath.Dir(string(p)), 0o755); err != nil {
		return err
	}
	return os.WriteFile(string(p), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func (p pidFile) read() (int, error) {
	data, err := os.ReadFile(string(p))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func (p pidFile) remove() { _ = os.Remove(string(p)) }

// checkNotRunning fails when something already answers /health on port.
func checkNotRunning(port int, pid pidFile) error {
	c := &http.Client{Timeout: 2 * time.Second}
	resp, err := c.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		return nil
	}
	resp.Body.Close()
	if n, err := pid.read(); err == nil {
		return fmt.Errorf("server already running (PID %d)", n)
	}
	return fmt.Errorf("server already running on port %d", port)
}

func runServer(ctx context.Context, host string) error {
	fmt.Fprintf(os.Stderr, "folio version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	if err := config.EnsureJWTSecret(&cfg); err != nil {
		return fmt.Errorf("initializing token signing secret: %w", err)
	}

	pid := pidFileIn(cfg.Storage.DataDir)
	if err := checkNotRunning(cfg.Server.Port, pid); err != nil {
		return err
	}
	if err := pid.write(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer pid.remove()

	store, err := storage.Connect(ctx, cfg.Storage.Driver, cfg.Storage.DataDir, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()
	slog.Info("storage ready", "driver", store.Dialect())

	authSvc := auth.NewService(store, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if cfg.Auth.OwnerEmail != "" && cfg.Auth.OwnerPassword != "" {
		owner, err := authSvc.EnsureOwner(ctx, cfg.Auth.OwnerEmail, cfg.Auth.OwnerPassword)
		if err != nil {
			return fmt.Errorf("setting up owner account: %w", err)
		}
		slog.Info("owner account ready", "email", owner.Email)
	} else {
		slog.Warn("no owner configured, sign-in is disabled",
			"hint", "set auth.owner_email and FOLIO_AUTH_OWNER_PASSWORD")
	}

	assetStore := assets.New(filepath.Join(cfg.Storage.DataDir, "assets"), store, cfg.Assets.MaxBytes)
	handler := api.NewHandler(api.Deps{
		Store:  store,
		Auth:   authSvc,
		Assets: assetStore,
		Logger: slog.Default(),
	})

	addr := net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "folio listening on %s\n", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sweepSessions(gctx, store, sessionSweepInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type sessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// sweepSessions deletes expired sessions every interval until ctx is done.
func sweepSessions(ctx context.Context, store sessionSweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpiredSessions(ctx, time.Now().UTC())
			if err != nil {
				slog.Warn("sweeping expired sessions failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("swept expired sessions", "count", n)
			}
		}
	}
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pid := pidFileIn(cfg.Storage.DataDir)
	n, err := pid.read()
	if err != nil {
		return fmt.Errorf("folio is not running (no PID file): %w", err)
	}
	process, err := os.FindProcess(n)
	if err == nil {
		err = process.Signal(syscall.SIGTERM)
	}
	if err != nil {
		// Stale file from a crashed server.
		pid.remove()
		return fmt.Errorf("could not stop folio (PID %d): %w", n, err)
	}
	printSuccess("Sent stop signal to folio (PID %d)", n)
	return nil
}

func showStatus(ctx context.Context, env *clientEnv) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := env.remote.Health(ctx); err != nil {
		printStatus("Server", "unreachable at %s", env.remote.BaseURL())
	} else {
		printStatus("Server", "running at %s", env.remote.BaseURL())
	}

	if id, ok := env.gate.Identity(); ok {
		printStatus("Signed in", "%s (until %s)", id.Email, id.ExpiresAt.Local().Format(time.RFC1123))
		printStatus("Edit mode", "%s", onOff(env.gate.EditMode()))
	} else {
		printStatus("Signed in", "no")
	}

	if doc, ok := env.cache.Load(); ok {
		printStatus("Local document", "%d sections, %d pet projects", len(doc.Keys()), len(doc.PetProjects()))
	} else {
		printStatus("Local document", "none (the default profile %q is shown)", profile.DefaultName)
	}
	printStatus("Cache dir", "%s", env.cache.Dir())
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
