package endpoints

import (
	"github.com/parserlab/ocrdiff/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	SwaggerSpecPath string
}

// All returns all endpoint instances. The swagger endpoint indexes the
// others for its fallback spec.
func All(cfg Config) []api.Endpoint {
	swagger := &SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath}
	eps := []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Parser endpoints. Fixed paths come before {name}.
		&ListParsersEndpoint{},
		&ParserTypesEndpoint{},
		&SyncParsersEndpoint{},
		&GetParserEndpoint{},
		&ParserLinkEndpoint{},
		&CreateParserEndpoint{},
		&UpdateParserEndpoint{},
		&DeleteParserEndpoint{},

		// Comparison endpoints
		&CompareEndpoint{},
		&CreateRunEndpoint{},
		&ListRunsEndpoint{},
		&GetRunEndpoint{},
		&DeleteRunEndpoint{},
		&ExportRunEndpoint{},

		// Swagger/OpenAPI endpoints
		swagger,
		&SwaggerUIEndpoint{},

		// Static files (catch-all, must be last)
		&StaticEndpoint{},
	}
	swagger.Routes = func() []api.RouteInfo { return api.Describe(eps) }
	return eps
}

// ParserCommands returns endpoints grouped under the "parsers" command.
func ParserCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListParsersEndpoint{},
		&GetParserEndpoint{},
		&CreateParserEndpoint{},
		&UpdateParserEndpoint{},
		&DeleteParserEndpoint{},
		&ParserTypesEndpoint{},
		&SyncParsersEndpoint{},
		&ParserLinkEndpoint{},
	}
}

// RunCommands returns endpoints grouped under the "runs" command.
func RunCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateRunEndpoint{},
		&ListRunsEndpoint{},
		&GetRunEndpoint{},
		&DeleteRunEndpoint{},
		&ExportRunEndpoint{},
	}
}
