// Package api implements the notekeep REST API using chi.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/notekeep/internal/apperr"
	"github.com/starford/notekeep/internal/models"
	"github.com/starford/notekeep/internal/noteservice"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ctxKey struct{}

// RequireSession rejects requests without a logged-in user with 401 and
// stores the current user in the request context otherwise.
func RequireSession(svc *noteservice.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := svc.CurrentUser(r.Context())
			if err != nil {
				if !errors.Is(err, apperr.ErrUnauthenticated) {
					slog.Error("load session failed", slog.String("error", err.Error()))
				}
				writeJSON(w, http.StatusUnauthorized, errorBody("not logged in"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
		})
	}
}

// sessionUser returns the user stored by RequireSession.
func sessionUser(r *http.Request) models.User {
	u, _ := r.Context().Value(ctxKey{}).(models.User)
	return u
}
