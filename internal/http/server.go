package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/insight"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	appweb "fintrack/web"
)

// Ledger is what the handlers need from the ledger service.
type Ledger interface {
	AddEntry(ctx context.Context, e core.Entry) error
	DeleteAt(ctx context.Context, position int) error
	Reset(ctx context.Context) error
	Snapshot(ctx context.Context) (services.Snapshot, error)
	Ping(ctx context.Context) error
}

// InsightRequester produces the insight text shown below the charts.
type InsightRequester interface {
	Request(ctx context.Context, prompt string) insight.Result
	Provider() string
}

var (
	_ Ledger           = (*services.LedgerService)(nil)
	_ InsightRequester = (*insight.Requester)(nil)
)

const (
	// handlerTimeout bounds ledger reads and writes done inside a request.
	handlerTimeout = 10 * time.Second

	// recentEntries is how many rows the page lists.
	recentEntries = 10
)

// Options tune the server. Zero values select the defaults.
type Options struct {
	// PostsPerMinute is the sustained per-client POST rate.
	PostsPerMinute int
	Burst          int
}

type Server struct {
	http.Server
	templates   *template.Template
	ledger      Ledger
	insight     InsightRequester
	logger      *applog.Logger
	reqLog      *applog.StructuredLogger
	rateLimiter *rateLimiter
	today       func() core.Date

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, ins InsightRequester, logger *applog.Logger, opts Options) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if opts.PostsPerMinute <= 0 {
		opts.PostsPerMinute = 60
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:      ledger,
		insight:     ins,
		logger:      logger.WithComponent(applog.ComponentHTTP),
		reqLog:      applog.NewStructuredLogger(logger),
		rateLimiter: newRateLimiter(opts.PostsPerMinute, opts.Burst),
		today:       core.Today,
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /entries", s.handleCreateEntry)
	mux.HandleFunc("POST /entries/delete", s.handleDeleteEntry)
	mux.HandleFunc("POST /entries/reset", s.handleReset)
	mux.HandleFunc("POST /insight", s.handleInsight)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = s.withSecurityHeaders(h)
	h = applog.RequestIDMiddleware(requestIDFromContext)(h)
	h = withRequestID(h)
	h = applog.Middleware(logger)(h)
	s.Handler = h

	return s
}

// Shutdown stops the rate limiter cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready only when the ledger can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		applog.FromContext(ctx).WithComponent(applog.ComponentHTTP).
			WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		http.Error(w, "ledger unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
