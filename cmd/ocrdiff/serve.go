package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/config"
	"github.com/parserlab/ocrdiff/internal/home"
	"github.com/parserlab/ocrdiff/internal/server"
)

var (
	serveHost   string
	servePort   string
	swaggerPath string
	logLevel    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ocrdiff server",
	Long: `Start the ocrdiff HTTP server.

The server loads the parser catalog from the configured store, opens the
run history and serves the API and the comparison page. The config file is
watched and OCR client settings are reloaded on change.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes parser catalog status)
  - /api/*  - Parser, compare and run endpoints
  - /       - Comparison page

Examples:
  ocrdiff serve                    # Start on the configured port (8080)
  ocrdiff serve --port 3000        # Start on custom port
  ocrdiff serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		path := cfgFile
		if path == "" && h.ConfigExists() {
			path = h.ConfigPath()
		}
		cfgMgr, err := config.NewManager(path)
		if err != nil {
			return err
		}
		if f := cfgMgr.ConfigFile(); f != "" {
			logger.Info("using config file", "path", f)
			cfgMgr.WatchConfig()
		}

		srv, err := server.New(server.Config{
			Host:            serveHost,
			Port:            servePort,
			ConfigManager:   cfgMgr,
			Home:            h,
			Logger:          logger,
			SwaggerSpecPath: swaggerPath,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config: 127.0.0.1)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config: 8080)")
	serveCmd.Flags().StringVar(&swaggerPath, "swagger", "", "Path to swagger.json (default: docs/swagger/swagger.json)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd)
}
