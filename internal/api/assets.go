package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/folio/internal/assets"
	"github.com/kalambet/folio/internal/auth"
	"github.com/kalambet/folio/internal/storage"
)

// multipartOverhead is allowed on top of the asset limit for form headers.
const multipartOverhead = 1 << 20

type assetResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func toAssetResponse(a storage.Asset) assetResponse {
	return assetResponse{
		ID:          a.ID,
		URL:         "/assets/" + a.ID,
		Name:        a.Name,
		ContentType: a.ContentType,
		Size:        a.Size,
	}
}

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		limit := deps.Assets.MaxBytes()
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
		defer r.Body.Close()

		if err := r.ParseMultipartForm(limit); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "file exceeds %d bytes", limit)
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid multipart body: %v", err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		f, hdr, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "file is required")
			return
		}
		defer f.Close()

		a, err := deps.Assets.Put(r.Context(), id.OwnerID, hdr.Filename, f)
		switch {
		case errors.Is(err, assets.ErrTooLarge):
			httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "%v", err)
			return
		case errors.Is(err, assets.ErrUnsupportedType):
			httpError(w, http.StatusUnsupportedMediaType, "invalid_request_error", "%v", err)
			return
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "failed to store upload: %v", err)
			return
		}

		deps.logger().Info("asset stored", "id", a.ID, "type", a.ContentType, "size", a.Size)
		writeJSON(w, http.StatusCreated, toAssetResponse(a))
	}
}

func handleGetAsset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, f, err := deps.Assets.Open(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "asset not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to open asset: %v", err)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", a.ContentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.ServeContent(w, r, a.Name, a.CreatedAt, f)
	}
}

func handleListAssets(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		limit := parseIntParam(r, "limit", 50, 500)

		list, err := deps.Store.ListAssets(r.Context(), id.OwnerID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list assets: %v", err)
			return
		}

		out := make([]assetResponse, 0, len(list))
		for _, a := range list {
			out = append(out, toAssetResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleDeleteAsset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		assetID := chi.URLParam(r, "id")

		a, err := deps.Store.GetAsset(r.Context(), assetID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "asset not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get asset: %v", err)
			return
		}
		if a.OwnerID != id.OwnerID {
			httpError(w, http.StatusForbidden, "permission_error", "asset belongs to another owner")
			return
		}

		if err := deps.Assets.Delete(r.Context(), assetID); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete asset: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
