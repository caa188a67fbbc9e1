package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/config"
	"github.com/parserlab/ocrdiff/internal/history"
	"github.com/parserlab/ocrdiff/internal/home"
	"github.com/parserlab/ocrdiff/internal/ocr"
	"github.com/parserlab/ocrdiff/internal/parsers"
	"github.com/parserlab/ocrdiff/internal/server/endpoints"
	"github.com/parserlab/ocrdiff/internal/svcctx"
)

// Server is the main ocrdiff HTTP server.
// It owns the parser catalog, the OCR runner and the run history, and
// closes them on shutdown.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	home       *home.Dir
	logger     *slog.Logger

	// Injected dependencies; nil means build from config.
	submitter ocr.Submitter
	store     parsers.Store

	history *history.Store

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support.
	// Nil uses the defaults.
	ConfigManager *config.Manager
	// Home is the ocrdiff home directory (default: ~/.ocrdiff)
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
	// Submitter replaces the OCR API client built from config.
	Submitter ocr.Submitter
	// Store replaces the parser store built from config.
	Store parsers.Store
	// SwaggerSpecPath is the path to swagger.json
	SwaggerSpecPath string
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		h, err := home.New("")
		if err != nil {
			return nil, err
		}
		cfg.Home = h
	}
	conf := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		conf = cfg.ConfigManager.Get()
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Host == "" {
		cfg.Host = conf.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = conf.Server.Port
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,
		submitter: cfg.Submitter,
		store:     cfg.Store,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{SwaggerSpecPath: cfg.SwaggerSpecPath}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:     s.withServices(mux),
		ReadTimeout: 2 * time.Minute,
		// A dual run makes two OCR calls, each with its own retries.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Init builds the services: parser store and catalog, OCR runner and run
// history. A catalog that fails to load is logged and can be retried with
// the sync endpoint.
func (s *Server) Init(ctx context.Context) error {
	conf := s.config()

	if err := s.home.EnsureExists(); err != nil {
		return err
	}

	store := s.store
	if store == nil {
		var err error
		store, err = NewParserStore(ctx, conf, s.home, s.logger)
		if err != nil {
			return fmt.Errorf("failed to create parser store: %w", err)
		}
	}
	catalog := parsers.NewCatalog(store, s.logger)
	if err := catalog.Load(ctx); err != nil {
		s.logger.Error("failed to load parsers", "backend", store.Name(), "error", err)
	}

	var hist *history.Store
	if conf.History.Enabled {
		path := conf.History.Path
		if path == "" {
			path = s.home.HistoryPath()
		}
		var err error
		hist, err = history.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		s.logger.Info("run history opened", "path", path)
	}

	s.mu.Lock()
	s.history = hist
	s.services = &svcctx.Services{
		Catalog:   catalog,
		Runner:    ocr.NewRunner(s.newSubmitter(conf), s.logger),
		History:   hist,
		ConfigMgr: s.configMgr,
		Logger:    s.logger,
		Home:      s.home,
	}
	s.mu.Unlock()

	// OCR settings hot reload; store and history changes need a restart.
	if s.configMgr != nil && s.submitter == nil {
		s.configMgr.OnChange(func(c *config.Config) {
			if err := c.Validate(); err != nil {
				s.logger.Warn("ignoring invalid config change", "error", err)
				return
			}
			s.mu.Lock()
			next := *s.services
			next.Runner = ocr.NewRunner(s.newSubmitter(c), s.logger)
			s.services = &next
			s.mu.Unlock()
			s.logger.Info("OCR client reloaded from config", "endpoint", c.OCR.Endpoint)
		})
	}
	return nil
}

func (s *Server) config() *config.Config {
	if s.configMgr != nil {
		return s.configMgr.Get()
	}
	return config.DefaultConfig()
}

func (s *Server) newSubmitter(c *config.Config) ocr.Submitter {
	if s.submitter != nil {
		return s.submitter
	}
	return ocr.NewClient(ocr.Config{
		Endpoint:   c.OCR.Endpoint,
		Timeout:    c.OCR.Timeout(),
		MaxRetries: c.OCR.MaxRetries,
		RetryDelay: c.OCR.RetryDelay(),
		ClientIP:   c.OCR.ClientIP,
		Location:   c.OCR.Location,
		UserAgent:  c.OCR.UserAgent,
		Limiter:    ocr.NewLimiter(c.OCR.RequestsPerMinute),
		Logger:     s.logger,
	})
}

// Start initializes the services and serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Init(ctx); err != nil {
		s.setNotRunning()
		return err
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops the HTTP server and closes the run history.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := s.Close(); err != nil {
		s.logger.Error("run history close error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// Close releases the services created by Init.
func (s *Server) Close() error {
	s.mu.Lock()
	hist := s.history
	s.history = nil
	s.mu.Unlock()
	if hist != nil {
		return hist.Close()
	}
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the HTTP handler with services attached.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Services returns the current services, or nil before Init.
func (s *Server) Services() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// Routes lists the registered routes.
func (s *Server) Routes() []string {
	return s.endpointRegistry.Routes()
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc := s.Services(); svc != nil {
			ctx = svcctx.WithServices(ctx, svc)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the services exist and the parser
// catalog has loaded.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := s.Services()
		if svc == nil {
			unavailable(w, "server not fully initialized")
			return
		}
		if !svc.Catalog.Loaded() {
			unavailable(w, "parser catalog not loaded")
			return
		}
		next(w, r)
	}
}

func unavailable(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}
