// Package web serves the datadash dashboard and its JSON API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/datadash/internal/config"
	"github.com/JonMunkholm/datadash/internal/core"
	"github.com/JonMunkholm/datadash/internal/session"
	mw "github.com/JonMunkholm/datadash/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Options configure a Server. Zero values select defaults.
type Options struct {
	Server   config.ServerConfig
	Session  config.SessionConfig
	Rate     config.RateLimitConfig
	Security config.SecurityConfig

	// DownloadTimeout bounds the download and upload routes, which skip
	// the ordinary request timeout.
	DownloadTimeout time.Duration

	// HasCredentials toggles the remote-source notice on the dashboard.
	HasCredentials bool
}

// Server is the HTTP server for the dashboard.
type Server struct {
	service  *core.Service
	sessions *session.Store
	opts     Options
	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer builds the router. sessions is shared with the reaper.
func NewServer(service *core.Service, sessions *session.Store, opts Options) *Server {
	if opts.Session.CookieName == "" {
		opts.Session.CookieName = "datadash_session"
	}
	if opts.Server.RequestTimeout <= 0 {
		opts.Server.RequestTimeout = 60 * time.Second
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = core.DownloadTimeout
	}
	s := &Server{
		service:  service,
		sessions: sessions,
		opts:     opts,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.opts.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(securityHeaders(s.opts.Security.EnableCSP))

	if s.opts.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.opts.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	s.router.Get("/healthz", s.handleHealth)

	// Long-running transfers get their own timeout and a tighter rate.
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.opts.DownloadTimeout + 30*time.Second))
		if s.opts.Rate.Enabled {
			r.Use(s.newRateLimiter(s.opts.Rate.DownloadLimit, time.Minute).middleware)
		}
		r.Use(s.withSession)
		r.Post("/dataset/download", s.handleDownload)
		r.Post("/dataset/upload", s.handleUpload)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.opts.Server.RequestTimeout))
		r.Use(s.withSession)

		r.Get("/", s.handleDashboard)
		r.Post("/dataset/select", s.handleSelect)
		r.Post("/dataset/load", s.handleLoad)
		r.Post("/dataset/clear", s.handleClearDataset)
		r.Post("/staging/clear", s.handleClearStaging)
		r.Get("/export.csv", s.handleExport)

		r.Get("/chart/distribution/*", s.handleDistributionChart)
		r.Get("/chart/missing.png", s.handleMissingChart)

		r.Route("/api", func(r chi.Router) {
			r.Use(mw.APIKeyAuth(s.opts.Security.RequireAPIKey, s.opts.Security.APIKeys))

			r.Get("/files", s.handleListFiles)
			r.Get("/session", s.handleSessionState)
			r.Get("/summary", s.handleSummary)
			r.Get("/describe", s.handleDescribe)
			r.Get("/missing", s.handleMissing)
			r.Get("/correlation", s.handleCorrelation)
			r.Get("/distribution/{column}", s.handleDistribution)
			r.Get("/values/{column}", s.handleValues)
			r.Get("/filter", s.handleFilter)
			r.Get("/preview", s.handlePreview)
			r.Get("/activity", s.handleActivity)
			r.Get("/downloads", s.handleDownloadStatus)
		})
	})
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.Server.ReadTimeout,
		WriteTimeout: s.opts.Server.WriteTimeout,
		IdleTimeout:  s.opts.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background sweepers.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"sessions":  s.sessions.Len(),
		"downloads": s.service.Limiter().Status(),
	})
}

// securityHeaders adds hardening headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				// Inline handlers are limited to the staging-clear confirm.
				w.Header().Set("Content-Security-Policy",
					"default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	writeJSONBody(w, v)
}

// writeJSONBody encodes v. Encoding errors are logged since the header is
// already sent.
func writeJSONBody(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
