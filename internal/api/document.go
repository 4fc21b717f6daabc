package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/folio/internal/auth"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/storage"
)

func handleGetDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := deps.Store.FirstDocument(r.Context())
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "no document has been saved yet")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read document: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Last-Modified", doc.UpdatedAt.UTC().Format(http.TimeFormat))
		w.Write(doc.Data)
	}
}

// handlePutDocument replaces the signed-in owner's document. The row is
// always keyed by the verified session, never by anything the body says.
func handlePutDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "no owner session")
			return
		}
		if target := r.Header.Get(OwnerHeader); target != "" && target != id.OwnerID {
			httpError(w, http.StatusForbidden, "permission_error", "session does not belong to owner %s", target)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBodySize)
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "document exceeds %d bytes", tooLarge.Limit)
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading body: %v", err)
			return
		}

		doc, err := profile.ParseDocument(body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err := profile.Validate(doc); err != nil {
			httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "%v", err)
			return
		}

		if err := deps.Store.UpsertDocument(r.Context(), id.OwnerID, doc.Bytes()); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save document: %v", err)
			return
		}
		deps.logger().Info("document saved", "owner", id.OwnerID, "bytes", len(body))
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleGetProject serves one pet project by its position in the list.
func handleGetProject(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || index < 0 {
			httpError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}

		row, err := deps.Store.FirstDocument(r.Context())
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read document: %v", err)
			return
		}
		doc, err := profile.ParseDocument(row.Data)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "stored document is unreadable: %v", err)
			return
		}

		item, ok := profile.At(profile.RawList(doc, profile.KeyPetProjects), index)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(item)
	}
}
