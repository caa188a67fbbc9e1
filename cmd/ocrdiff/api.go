package main

import (
	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running ocrdiff server via HTTP.

These commands require a running server (ocrdiff serve).
Use --server to specify a custom server URL.

Examples:
  ocrdiff api health                          # Check server health
  ocrdiff api parsers list                    # List parsers
  ocrdiff api runs create invoices scan.pdf   # Run a dual comparison
  ocrdiff api runs export <id> --format html  # Export a run`,
}

var parsersCmd = &cobra.Command{
	Use:   "parsers",
	Short: "Parser catalog commands",
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Dual run and history commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health and standalone endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.CompareEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	for _, ep := range endpoints.ParserCommands() {
		parsersCmd.AddCommand(ep.Command(getServerURL))
	}
	for _, ep := range endpoints.RunCommands() {
		runsCmd.AddCommand(ep.Command(getServerURL))
	}

	apiCmd.AddCommand(parsersCmd)
	apiCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(apiCmd)
}
