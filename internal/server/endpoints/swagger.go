package endpoints

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/version"
)

// SwaggerEndpoint serves the OpenAPI spec generated by swag. Without a
// generated file it serves a route index built from the registry.
type SwaggerEndpoint struct {
	// SpecPath is the path to the swagger.json file.
	SpecPath string
	// Routes lists the registered routes for the fallback spec.
	Routes func() []api.RouteInfo
}

func (e *SwaggerEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/swagger.json", e.handler
}

func (e *SwaggerEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		OpenAPI spec
//	@Description	The generated spec, or a route index when none was generated. format=yaml returns YAML.
//	@Tags			meta
//	@Produce		json
//	@Produce		application/yaml
//	@Param			format	query	string	false	"json (default) or yaml"
//	@Success		200	{object}	map[string]any
//	@Failure		404	{object}	ErrorResponse
//	@Router			/swagger.json [get]
func (e *SwaggerEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	spec, err := e.load()
	if err != nil {
		writeError(w, http.StatusNotFound, "swagger.json not found")
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	case "yaml", "yml":
		w.Header().Set("Content-Type", "application/yaml")
		api.OutputTo(w, api.OutputFormatYAML, spec)
	default:
		writeError(w, http.StatusBadRequest, "format must be json or yaml")
	}
}

// load reads the generated spec, falling back to the route index.
func (e *SwaggerEndpoint) load() (json.RawMessage, error) {
	specPath := e.SpecPath
	if specPath == "" {
		specPath = "docs/swagger/swagger.json"
	}
	data, err := os.ReadFile(specPath)
	if err == nil {
		return data, nil
	}
	if e.Routes == nil {
		return nil, err
	}
	return json.Marshal(routeIndexSpec(e.Routes()))
}

// routeIndexSpec is a minimal Swagger 2.0 document listing every API route.
// The static catch-all is left out.
func routeIndexSpec(routes []api.RouteInfo) map[string]any {
	paths := map[string]map[string]any{}
	for _, rt := range routes {
		if strings.HasSuffix(rt.Path, "...}") {
			continue
		}
		ops := paths[rt.Path]
		if ops == nil {
			ops = map[string]any{}
			paths[rt.Path] = ops
		}
		op := map[string]any{
			"responses": map[string]any{"default": map[string]any{"description": "see ocrdiff api " + rt.Command + " --help"}},
		}
		if rt.Summary != "" {
			op["summary"] = rt.Summary
		}
		ops[strings.ToLower(rt.Method)] = op
	}
	return map[string]any{
		"swagger":  "2.0",
		"info":     map[string]any{"title": "ocrdiff API", "version": version.GitRelease},
		"basePath": "/",
		"paths":    paths,
	}
}

func (e *SwaggerEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "swagger",
		Short: "Fetch OpenAPI spec from server",
		Example: `  ocrdiff api swagger --out openapi.yaml
  ocrdiff api swagger -o json > openapi.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			var spec json.RawMessage
			if err := client.Get(cmd.Context(), "/swagger.json", &spec); err != nil {
				return err
			}
			if outputFile != "" {
				return api.OutputToFile(spec, outputFile)
			}
			return api.Output(spec)
		},
	}
	cmd.Flags().StringVar(&outputFile, "out", "", "Write the spec to this file; .json, .yaml or .yml picks the format")
	return cmd
}

// SwaggerUIEndpoint serves Swagger UI.
type SwaggerUIEndpoint struct{}

func (e *SwaggerUIEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/swagger", e.handler
}

func (e *SwaggerUIEndpoint) RequiresInit() bool { return false }

const swaggerUIPage = `<!DOCTYPE html>
<html>
<head>
  <title>ocrdiff API</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/swagger.json',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout',
      tagsSorter: 'alpha'
    });
  </script>
</body>
</html>`

func (e *SwaggerUIEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(swaggerUIPage))
}

func (e *SwaggerUIEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:    "swagger-ui",
		Hidden: true,
		Short:  "Print the Swagger UI address",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println("Open in browser:", getServerURL()+"/swagger")
			return nil
		},
	}
}

// GetSwaggerSpecPath returns docs/swagger/swagger.json next to the
// executable when it exists there, and relative to the working directory
// otherwise.
func GetSwaggerSpecPath() string {
	if exe, err := os.Executable(); err == nil {
		specPath := filepath.Join(filepath.Dir(exe), "docs", "swagger", "swagger.json")
		if _, err := os.Stat(specPath); err == nil {
			return specPath
		}
	}
	return "docs/swagger/swagger.json"
}
