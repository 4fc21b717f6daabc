// Package api serves the portfolio document over HTTP and MCP.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/folio/internal/assets"
	"github.com/kalambet/folio/internal/auth"
	"github.com/kalambet/folio/internal/storage"
)

const maxDocumentBodySize = 4 << 20 // 4MB

// OwnerHeader names the owner a document write is addressed to. Requests
// that send it must match the signed-in owner.
const OwnerHeader = "X-Folio-Owner"

// Deps holds what the HTTP handlers need.
type Deps struct {
	Store  *storage.Store
	Auth   *auth.Service
	Assets *assets.Store
	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// NewHandler builds the API router. Reads are public; writes need an
// owner session.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	requireOwner := auth.RequireOwner(deps.Auth)

	r.Get("/health", handleHealth(deps))
	r.Get("/document", handleGetDocument(deps))
	r.Get("/projects/{index}", handleGetProject(deps))
	r.Post("/session", handleSignIn(deps))
	r.Get("/assets/{id}", handleGetAsset(deps))

	r.Group(func(r chi.Router) {
		r.Use(requireOwner)
		r.Put("/document", handlePutDocument(deps))
		r.Get("/session", handleWhoami(deps))
		r.Delete("/session", handleSignOut(deps))
		r.Post("/assets", handleUpload(deps))
		r.Get("/assets", handleListAssets(deps))
		r.Delete("/assets/{id}", handleDeleteAsset(deps))
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.Ping(r.Context()); err != nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "storage unavailable: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
