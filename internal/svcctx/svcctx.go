// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/parserlab/ocrdiff/internal/config"
	"github.com/parserlab/ocrdiff/internal/history"
	"github.com/parserlab/ocrdiff/internal/home"
	"github.com/parserlab/ocrdiff/internal/ocr"
	"github.com/parserlab/ocrdiff/internal/parsers"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Catalog   *parsers.Catalog
	Runner    *ocr.Runner
	History   *history.Store
	ConfigMgr *config.Manager
	Logger    *slog.Logger
	Home      *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// CatalogFrom extracts the parser catalog from context.
func CatalogFrom(ctx context.Context) *parsers.Catalog {
	if s := ServicesFrom(ctx); s != nil {
		return s.Catalog
	}
	return nil
}

// RunnerFrom extracts the dual-run runner from context.
func RunnerFrom(ctx context.Context) *ocr.Runner {
	if s := ServicesFrom(ctx); s != nil {
		return s.Runner
	}
	return nil
}

// HistoryFrom extracts the run history from context. Nil when history is
// disabled.
func HistoryFrom(ctx context.Context) *history.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.History
	}
	return nil
}

// ConfigFrom returns the current configuration, or the defaults when no
// manager is attached.
func ConfigFrom(ctx context.Context) *config.Config {
	if s := ServicesFrom(ctx); s != nil && s.ConfigMgr != nil {
		return s.ConfigMgr.Get()
	}
	return config.DefaultConfig()
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
