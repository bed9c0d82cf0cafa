// Package http serves the dashboard JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"omzet/internal/export"
	"omzet/internal/log"
	"omzet/internal/middleware/ratelimit"
	"omzet/internal/middleware/security"
	"omzet/internal/middleware/trace"
	"omzet/internal/report"
	"omzet/internal/services"
)

// DashboardService is what the API needs from the service layer.
type DashboardService interface {
	Dashboard(ctx context.Context, q report.Query) (report.Dashboard, error)
	Categories(ctx context.Context) ([]string, error)
	DefaultQuery(ctx context.Context) (report.Query, error)
	Refresh(ctx context.Context) (services.RefreshResult, error)
	Ready(ctx context.Context) error
}

// Options tunes a Server. Zero values take defaults.
type Options struct {
	Logger             *log.Logger
	Exports            *export.Service
	RateLimitPerMinute int
	ExportTitle        string
	RequestTimeout     time.Duration
}

type Server struct {
	http.Server
	svc      DashboardService
	exports  *export.Service
	limiter  *ratelimit.Limiter
	detector *security.Detector
	title    string
	timeout  time.Duration
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc DashboardService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	exports := opts.Exports
	if exports == nil {
		exports = export.NewService()
	}
	title := opts.ExportTitle
	if title == "" {
		title = "Laporan Omzet"
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Server{
		svc:      svc,
		exports:  exports,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		title:    title,
		timeout:  timeout,
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/export.xlsx", s.handleExport(export.FormatExcel))
	mux.HandleFunc("GET /api/export.pdf", s.handleExport(export.FormatPDF))

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, try again later").
			Header("Retry-After", "60").
			Write(w)
	}, http.MethodPost)

	var handler http.Handler = mux
	handler = limited(handler)
	handler = s.detector.Middleware(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = log.Middleware(logger, trace.FromRequest, s.detector.ExtractClientIP)(handler)
	handler = trace.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
