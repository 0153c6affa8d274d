// Package api provides the inbound HTTP surface of a sync worker.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prudhvinik1/dbsync/internal/scheduler"
	"github.com/prudhvinik1/dbsync/internal/services"
)

// TokenVerifier validates peer bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*services.TokenClaims, error)
}

// StatusProvider reports scheduler progress.
type StatusProvider interface {
	Status() scheduler.Status
}

// Pinger checks connectivity to the row store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerOption configures the API server
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
	verifier       TokenVerifier
	status         StatusProvider
	pinger         Pinger
	receiver       ReceiveHandler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler serves h on /metrics
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// WithTokenVerifier requires a valid bearer token on inbound sync batches
func WithTokenVerifier(v TokenVerifier) ServerOption {
	return func(cfg *serverConfig) {
		cfg.verifier = v
	}
}

func WithStatusProvider(p StatusProvider) ServerOption {
	return func(cfg *serverConfig) {
		cfg.status = p
	}
}

func WithPinger(p Pinger) ServerOption {
	return func(cfg *serverConfig) {
		cfg.pinger = p
	}
}

// WithReceiveHandler replaces the default handler for inbound batches
func WithReceiveHandler(h ReceiveHandler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.receiver = h
	}
}

// NewServer creates and configures the HTTP router
func NewServer(opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.receiver == nil {
		cfg.receiver = NewLoggingReceiveHandler(nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(cfg.pinger))

	if cfg.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.verifier != nil {
				r.Use(BearerAuth(cfg.verifier))
			}
			r.Post("/receive-sync", receiveSyncHandler(cfg.receiver))
		})
		r.Get("/path", pathHandler)
		if cfg.status != nil {
			r.Get("/sync/status", statusHandler(cfg.status))
		}
	})

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func readinessHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			if err := pinger.Ping(r.Context()); err != nil {
				slog.Warn("Readiness check failed", "error", err)
				writeErrorResponse(w, "row store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		writeJSONResponse(w, map[string]string{"status": "ready"}, http.StatusOK)
	}
}

func statusHandler(p StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, p.Status(), http.StatusOK)
	}
}
