package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"

	"github.com/facilog/facilog/pkg/config"
	"github.com/facilog/facilog/pkg/log"
	"github.com/facilog/facilog/pkg/publisher"
	"github.com/facilog/facilog/pkg/reconciler"
	"github.com/facilog/facilog/pkg/storage"
)

type contextKey string

const emailContextKey contextKey = "email"

// tokenVerifier validates an OIDC ID token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// Server exposes the daily logbook over HTTP: reconciled day records,
// field mutators, save, and settings.
type Server struct {
	rec  *reconciler.Reconciler
	db   storage.Database
	site *config.Site
	pub  publisher.Publisher

	listenAddr string
	serverName string
	httpServer *http.Server

	adminEmails   []string
	oidcAudiences map[string]string
	oidcVerifiers map[string]tokenVerifier
	bypassAuth    bool
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(rec *reconciler.Reconciler, db storage.Database, site *config.Site, pub publisher.Publisher) *Server {
	srv := &Server{
		rec:        rec,
		db:         db,
		site:       site,
		pub:        pub,
		serverName: "facilog",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	adminEmails := lflag.String("admin-emails", "", "comma-delimited list of email addresses allowed to update settings")
	oidcAudiences := map[string]string{}
	lflag.JSON(&oidcAudiences, "oidc-audiences", oidcAudiences, "JSON map of provider (google/apple) to audience/client ID")
	bypassAuth := lflag.Bool("auth-bypass", false, "Disable authentication (local development only)")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		if *adminEmails != "" {
			srv.adminEmails = strings.Split(*adminEmails, ",")
			for i, email := range srv.adminEmails {
				srv.adminEmails[i] = strings.TrimSpace(email)
			}
		}
		if len(oidcAudiences) > 0 {
			srv.oidcAudiences = make(map[string]string, len(oidcAudiences))
			srv.oidcVerifiers = make(map[string]tokenVerifier, len(oidcAudiences))
			for n, a := range oidcAudiences {
				var issuer string
				switch n {
				case "google":
					issuer = "https://accounts.google.com"
				case "apple":
					issuer = "https://appleid.apple.com"
				default:
					log.Ctx(context.Background()).Error("unsupported oidc audience client", slog.String("client", n))
					os.Exit(1)
				}
				provider, err := oidc.NewProvider(context.Background(), issuer)
				if err != nil {
					log.Ctx(context.Background()).Error("failed to initialize OIDC provider", slog.String("client", n), slog.Any("error", err))
					os.Exit(1)
				}
				srv.oidcVerifiers[n] = provider.Verifier(&oidc.Config{ClientID: a}).Verify
				srv.oidcAudiences[n] = a
			}
		}
		srv.bypassAuth = *bypassAuth
		if srv.bypassAuth && len(srv.oidcAudiences) > 0 {
			log.Ctx(context.Background()).Error("auth-bypass cannot be combined with oidc-audiences")
			os.Exit(1)
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/day", s.handleGetDay)
	apiMux.HandleFunc("POST /api/day/reading", s.handleSetReading)
	apiMux.HandleFunc("POST /api/day/task", s.handleTaskMutation)
	apiMux.HandleFunc("DELETE /api/day/task", s.handleRemoveTask)
	apiMux.HandleFunc("POST /api/day/save", s.handleSave)
	apiMux.HandleFunc("POST /api/day/refresh", s.handleRefresh)
	apiMux.HandleFunc("GET /api/settings", s.handleGetSettings)
	apiMux.HandleFunc("POST /api/settings", s.handleUpdateSettings)
	apiMux.HandleFunc("GET /api/site", s.handleGetSite)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(mux))
}

// Run starts the HTTP server and blocks until the context is canceled or
// an error occurs, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// handleGetSite returns the subsystem layout so the frontend can render
// the right channels and categories per page.
func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.site)
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

// isAdmin returns true if the email is in the adminEmails list.
func (s *Server) isAdmin(email string) bool {
	for _, adminEmail := range s.adminEmails {
		if email == adminEmail {
			return true
		}
	}
	return false
}
