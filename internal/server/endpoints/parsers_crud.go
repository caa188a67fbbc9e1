package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/parsers"
	"github.com/parserlab/ocrdiff/internal/svcctx"
)

// ParserRequest is the body for creating or updating a parser.
type ParserRequest struct {
	Name string `json:"name"`
	parsers.Parser
}

func (req ParserRequest) parser() parsers.Parser {
	p := req.Parser
	p.Name = req.Name
	return p
}

func decodeParserRequest(r *http.Request) (ParserRequest, error) {
	var req ParserRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

// CreateParserEndpoint handles POST /api/parsers.
type CreateParserEndpoint struct{}

func (e *CreateParserEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/parsers", e.handler
}

func (e *CreateParserEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Create parser
//	@Description	Add a parser and save the catalog to its store
//	@Tags			parsers
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ParserRequest	true	"Parser"
//	@Success		201		{object}	ParserResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/parsers [post]
func (e *CreateParserEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catalog := svcctx.CatalogFrom(ctx)
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "parser catalog not initialized")
		return
	}

	req, err := decodeParserRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := catalog.Add(ctx, req.parser())
	if err != nil {
		writeParserError(w, err)
		return
	}
	svcctx.LoggerFrom(ctx).Info("parser created", "parser", p.Name)
	writeJSON(w, http.StatusCreated, parserResponse(p))
}

func (e *CreateParserEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flags parserFlags
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a parser",
		Example: `  ocrdiff api parsers create invoices --api-key $KEY --app-id app-1 --type invoice \
      --expected-file sample.json --map "total=Total Amount"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ParserRequest{Name: args[0]}
			if err := flags.apply(cmd, &req.Parser); err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp ParserResponse
			if err := client.Post(cmd.Context(), "/api/parsers", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	flags.register(cmd)
	return cmd
}

// UpdateParserEndpoint handles PUT /api/parsers/{name}.
type UpdateParserEndpoint struct{}

func (e *UpdateParserEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/parsers/{name}", e.handler
}

func (e *UpdateParserEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Update parser
//	@Description	Replace a parser and save the catalog to its store
//	@Tags			parsers
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Parser name"
//	@Param			request	body		ParserRequest	true	"Parser"
//	@Success		200		{object}	ParserResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/parsers/{name} [put]
func (e *UpdateParserEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catalog := svcctx.CatalogFrom(ctx)
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "parser catalog not initialized")
		return
	}

	req, err := decodeParserRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = r.PathValue("name")

	p, err := catalog.Update(ctx, req.parser())
	if err != nil {
		writeParserError(w, err)
		return
	}
	svcctx.LoggerFrom(ctx).Info("parser updated", "parser", p.Name)
	writeJSON(w, http.StatusOK, parserResponse(p))
}

func (e *UpdateParserEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flags parserFlags
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Update a parser",
		Long: `Update a parser. Only the flags given are changed.

The API key is never returned by the server, so --api-key is required.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())

			var current ParserResponse
			if err := client.Get(ctx, parserPath(args[0]), &current); err != nil {
				return err
			}
			req := ParserRequest{Name: args[0], Parser: current.Parser}
			req.APIKey = ""
			if err := flags.apply(cmd, &req.Parser); err != nil {
				return err
			}

			var resp ParserResponse
			if err := client.Put(ctx, parserPath(args[0]), req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	flags.register(cmd)
	return cmd
}

// DeleteParserEndpoint handles DELETE /api/parsers/{name}.
type DeleteParserEndpoint struct{}

func (e *DeleteParserEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/parsers/{name}", e.handler
}

func (e *DeleteParserEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete parser
//	@Description	Remove a parser and save the catalog to its store
//	@Tags			parsers
//	@Param			name	path	string	true	"Parser name"
//	@Success		204		"No Content"
//	@Failure		404		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/parsers/{name} [delete]
func (e *DeleteParserEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catalog := svcctx.CatalogFrom(ctx)
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "parser catalog not initialized")
		return
	}

	name := r.PathValue("name")
	if err := catalog.Delete(ctx, name); err != nil {
		writeParserError(w, err)
		return
	}
	svcctx.LoggerFrom(ctx).Info("parser deleted", "parser", name)
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteParserEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a parser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), parserPath(args[0])); err != nil {
				return err
			}
			fmt.Println("Parser deleted successfully")
			return nil
		},
	}
}

// parserFlags are the CLI flags shared by create and update.
type parserFlags struct {
	apiKey        string
	appID         string
	parserType    string
	extraAccuracy bool
	expectedFile  string
	sampleCurl    string
	mappings      map[string]string
}

func (f *parserFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "OCR API key")
	cmd.Flags().StringVar(&f.appID, "app-id", "", "Parser app id")
	cmd.Flags().StringVar(&f.parserType, "type", "", "Parser type ("+typeNames()+")")
	cmd.Flags().BoolVar(&f.extraAccuracy, "extra-accuracy", false, "Enable extra accuracy by default")
	cmd.Flags().StringVar(&f.expectedFile, "expected-file", "", "JSON file with the expected response")
	cmd.Flags().StringVar(&f.sampleCurl, "sample-curl", "", "Sample curl command")
	cmd.Flags().StringToStringVar(&f.mappings, "map", nil, "Field mapping path=Label (repeatable)")
}

// apply copies the flags that were set onto p.
func (f *parserFlags) apply(cmd *cobra.Command, p *parsers.Parser) error {
	changed := cmd.Flags().Changed
	if changed("api-key") {
		p.APIKey = f.apiKey
	}
	if changed("app-id") {
		p.AppID = f.appID
	}
	if changed("type") {
		p.Type = parsers.Type(f.parserType)
	}
	if changed("extra-accuracy") {
		p.ExtraAccuracy = f.extraAccuracy
	}
	if changed("sample-curl") {
		p.SampleCurl = f.sampleCurl
	}
	if changed("expected-file") {
		data, err := os.ReadFile(f.expectedFile)
		if err != nil {
			return fmt.Errorf("failed to read expected response: %w", err)
		}
		p.ExpectedResponse = string(data)
	}
	if changed("map") {
		if p.FieldMappings == nil {
			p.FieldMappings = map[string]string{}
		}
		for k, v := range f.mappings {
			p.FieldMappings[k] = v
		}
	}
	return nil
}

func typeNames() string {
	names := make([]string, len(parsers.Types))
	for i, t := range parsers.Types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
