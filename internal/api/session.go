package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kalambet/folio/internal/auth"
)

const maxSessionBodySize = 64 << 10

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string    `json:"token,omitempty"`
	OwnerID   string    `json:"owner_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

func handleSignIn(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSessionBodySize)
		defer r.Body.Close()

		var req signInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Email == "" || req.Password == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "email and password are required")
			return
		}

		tok, err := deps.Auth.SignIn(r.Context(), req.Email, req.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			httpError(w, http.StatusUnauthorized, "authentication_error", "invalid email or password")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "sign-in failed: %v", err)
			return
		}

		deps.logger().Info("owner signed in", "owner", tok.Identity.OwnerID, "session", tok.Identity.SessionID)
		writeJSON(w, http.StatusOK, sessionResponse{
			Token:     tok.Value,
			OwnerID:   tok.Identity.OwnerID,
			Email:     tok.Identity.Email,
			ExpiresAt: tok.Identity.ExpiresAt,
		})
	}
}

func handleWhoami(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		writeJSON(w, http.StatusOK, sessionResponse{
			OwnerID:   id.OwnerID,
			Email:     id.Email,
			ExpiresAt: id.ExpiresAt,
		})
	}
}

func handleSignOut(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, _ := auth.BearerToken(r)
		if err := deps.Auth.SignOut(r.Context(), tok); err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or expired session")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "sign-out failed: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
