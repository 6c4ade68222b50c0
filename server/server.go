// Package server exposes the dashboard over a json http api.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aouyang1/go-disease-tracker/chat"
	"github.com/aouyang1/go-disease-tracker/dashboard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxHorizon      = 365
	DefaultSessionTTL      = 30 * time.Minute
	DefaultMaxHistory      = 50
	DefaultMaxBodyBytes    = 1 << 20
	DefaultSweepInterval   = time.Minute
)

// Config tunes the http server. Zero values use the defaults above, a zero RateLimit disables
// rate limiting.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	DefaultHorizon int
	MaxHorizon     int

	SessionTTL time.Duration
	MaxHistory int

	RateLimit float64
	RateBurst int

	MaxBodyBytes int64

	// SweepInterval is how often expired forecasts and chat sessions are dropped
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.DefaultHorizon <= 0 {
		c.DefaultHorizon = dashboard.DefaultHorizon
	}
	if c.MaxHorizon <= 0 {
		c.MaxHorizon = DefaultMaxHorizon
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = DefaultMaxHistory
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// Server serves the dashboard api
type Server struct {
	cfg      Config
	svc      *dashboard.Service
	sessions *chat.SessionStore
	metrics  *Metrics
	logger   *slog.Logger
	router   chi.Router
	started  time.Time
}

// New builds the server and its routes. The metrics are typically also passed to the dashboard
// service as its forecast observer; nil registers a fresh set.
func New(svc *dashboard.Service, metrics *Metrics, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		sessions: chat.NewSessionStore(cfg.SessionTTL, cfg.MaxHistory),
		logger:   logger.With("component", "server"),
		started:  time.Now(),
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if err := metrics.trackSessions(s.sessionCount); err != nil {
		s.logger.Warn("chat session gauge not registered", "error", err)
	}
	s.metrics = metrics
	s.router = s.routes()
	return s
}

func (s *Server) sessionCount() float64 {
	return float64(s.sessions.Len())
}

// Sessions is the chat session store backing POST /api/chat
func (s *Server) Sessions() *chat.SessionStore {
	return s.sessions
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger, s.metrics))
	r.Use(recoverer(s.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

		r.Group(func(r chi.Router) {
			r.Use(rateLimiter(s.cfg.RateLimit, s.cfg.RateBurst, s.logger, s.metrics))

			r.Get("/diseases", s.handleDiseases)
			r.Get("/countries", s.handleCountries)

			r.Route("/series/{disease}/{country}", func(r chi.Router) {
				r.Get("/", s.handleSeries)
				r.Get("/cases", s.handleCasesOn)
			})
			r.Get("/view/{disease}/{country}", s.handleView)
			r.Get("/forecast/{disease}/{country}", s.handleForecast)
			r.Get("/compare/{disease}/{country}/{other}", s.handleCompare)
			r.Get("/charts/{disease}/{country}", s.handleCharts)
			r.Get("/news/{disease}/{country}", s.handleNews)

			r.Post("/chat", s.handleChat)
			r.Get("/chat/{id}", s.handleGetSession)
			r.Delete("/chat/{id}", s.handleDeleteSession)

			r.Post("/risk", s.handleRisk)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, newProblem(http.StatusNotFound, "no route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, newProblem(http.StatusMethodNotAllowed, r.Method+" is not allowed on "+r.URL.Path))
	})
	return r
}

// Run listens on the configured address until the context is done, then drains in-flight
// requests within the shutdown timeout. Expired forecasts and chat sessions are swept while
// the server runs.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s, %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.svc.Janitor(ctx, s.cfg.SweepInterval)
	go s.sweepSessions(ctx, s.cfg.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, stop := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed, %w", err)
	}
	return nil
}

func (s *Server) sweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				s.logger.Debug("expired chat sessions", "count", n)
			}
		}
	}
}
