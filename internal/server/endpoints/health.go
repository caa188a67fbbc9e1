package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/ocr"
	"github.com/parserlab/ocrdiff/internal/svcctx"
	"github.com/parserlab/ocrdiff/version"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Parsers string `json:"parsers,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Health check
//	@Description	Returns ok while the HTTP server is responding
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Returns ok once the parser catalog has loaded
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Parsers: "loaded"}

	catalog := svcctx.CatalogFrom(r.Context())
	switch {
	case catalog == nil:
		resp.Status = "degraded"
		resp.Parsers = "not_initialized"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	case !catalog.Loaded():
		resp.Status = "degraded"
		resp.Parsers = "not_loaded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes the parser catalog)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:  %s\n", resp.Status)
			if resp.Parsers != "" {
				fmt.Printf("Parsers: %s\n", resp.Parsers)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server  string        `json:"server"`
	Version string        `json:"version"`
	Parsers ParsersStatus `json:"parsers"`
	OCR     OCRStatus     `json:"ocr"`
	History HistoryStatus `json:"history"`
}

// ParsersStatus shows the parser catalog and its backing store.
type ParsersStatus struct {
	Backend string `json:"backend"`
	Loaded  bool   `json:"loaded"`
	Count   int    `json:"count"`
}

// OCRStatus shows the OCR API settings in effect.
type OCRStatus struct {
	Endpoint       string `json:"endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxRetries     int    `json:"max_retries"`
	// RateLimit is set when submissions are paced.
	RateLimit *ocr.LimiterStatus `json:"rate_limit,omitempty"`
}

// HistoryStatus shows whether runs are recorded.
type HistoryStatus struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server status
//	@Description	Detailed status of the parser catalog, OCR settings and run history
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := svcctx.ConfigFrom(ctx)

	resp := StatusResponse{
		Server:  "running",
		Version: version.GitRelease,
		OCR: OCRStatus{
			Endpoint:       cfg.OCR.Endpoint,
			TimeoutSeconds: cfg.OCR.TimeoutSeconds,
			MaxRetries:     cfg.OCR.MaxRetries,
		},
	}

	if runner := svcctx.RunnerFrom(ctx); runner != nil {
		resp.OCR.RateLimit = runner.Limiter().Status()
	}

	if catalog := svcctx.CatalogFrom(ctx); catalog != nil {
		resp.Parsers.Backend = catalog.Store().Name()
		resp.Parsers.Loaded = catalog.Loaded()
		resp.Parsers.Count = len(catalog.List())
	} else {
		resp.Parsers.Backend = "not_initialized"
	}

	if hist := svcctx.HistoryFrom(ctx); hist != nil {
		resp.History.Enabled = true
		resp.History.Path = hist.Path()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatJSON {
				return api.Output(resp)
			}
			fmt.Printf("Server:  %s (%s)\n", resp.Server, resp.Version)
			fmt.Printf("Parsers:\n")
			fmt.Printf("  Backend: %s\n", resp.Parsers.Backend)
			fmt.Printf("  Loaded:  %t\n", resp.Parsers.Loaded)
			fmt.Printf("  Count:   %d\n", resp.Parsers.Count)
			fmt.Printf("OCR:\n")
			fmt.Printf("  Endpoint: %s\n", resp.OCR.Endpoint)
			fmt.Printf("  Timeout:  %ds x %d attempts\n", resp.OCR.TimeoutSeconds, resp.OCR.MaxRetries)
			if rl := resp.OCR.RateLimit; rl != nil {
				fmt.Printf("  Rate:     %d/min, %d available\n", rl.RequestsPerMinute, rl.Available)
			}
			fmt.Printf("History: %t %s\n", resp.History.Enabled, resp.History.Path)
			return nil
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
