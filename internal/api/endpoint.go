package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Endpoint is one server route and the `ocrdiff api` command that calls it.
type Endpoint interface {
	// Route returns the HTTP method, path, and handler for this endpoint.
	Route() (method, path string, handler http.HandlerFunc)

	// RequiresInit reports whether the handler needs the parser catalog,
	// runner and run history. Such routes answer 503 until Init succeeds.
	RequiresInit() bool

	// Command returns the CLI command for the endpoint, or nil for routes
	// with no command. getServerURL is evaluated when the command runs.
	Command(getServerURL func() string) *cobra.Command
}

// RouteInfo describes a registered route for the route index.
type RouteInfo struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
	// Command is the `ocrdiff api` subcommand name, when there is one.
	Command string `json:"command,omitempty"`
}

// Describe lists the routes of eps in order. Summaries come from each
// endpoint's command.
func Describe(eps []Endpoint) []RouteInfo {
	noServer := func() string { return "" }
	out := make([]RouteInfo, 0, len(eps))
	for _, ep := range eps {
		method, path, _ := ep.Route()
		info := RouteInfo{Method: method, Path: path}
		if cmd := ep.Command(noServer); cmd != nil {
			info.Summary = cmd.Short
			info.Command = cmd.Name()
		}
		out = append(out, info)
	}
	return out
}
