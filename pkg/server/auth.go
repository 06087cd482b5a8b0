package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/facilog/facilog/pkg/log"
)

// authMiddleware validates the incoming bearer token against the
// configured OIDC providers and stashes the caller's email in the request
// context. With auth-bypass every request passes with an empty email and
// admin rights.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		if s.bypassAuth {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSONError(w, "invalid authorization header", http.StatusBadRequest)
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		email, _, err := s.authenticateToken(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "auth token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}

		ctx = context.WithValue(ctx, emailContextKey, email)
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("authEmail", email)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) getEmail(r *http.Request) string {
	if email, ok := r.Context().Value(emailContextKey).(string); ok {
		return email
	}
	return ""
}

// canEditSettings gates the settings update endpoint. Bypass mode is a
// single-operator deployment so everyone is an admin there.
func (s *Server) canEditSettings(r *http.Request) bool {
	if s.bypassAuth {
		return true
	}
	return s.isAdmin(s.getEmail(r))
}

func (s *Server) authenticateToken(ctx context.Context, token string) (string, time.Time, error) {
	var errs []error

	for providerName, verifier := range s.oidcVerifiers {
		idToken, err := verifier(ctx, token)
		if err == nil {
			var claims struct {
				Email string `json:"email"`
			}
			err = idToken.Claims(&claims)
			if err == nil {
				return claims.Email, idToken.Expiry, nil
			}
		}
		errs = append(errs, fmt.Errorf("%s verifier failed: %v", providerName, err))
	}

	if len(errs) > 0 {
		return "", time.Time{}, errors.Join(errs...)
	}
	return "", time.Time{}, errors.New("no valid audiences configured or token invalid")
}
