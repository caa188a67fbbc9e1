package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/parsers"
	"github.com/parserlab/ocrdiff/internal/svcctx"
)

// ParserResponse is a parser as served by the API. The API key is masked.
type ParserResponse struct {
	Name string `json:"name"`
	parsers.Parser
}

func parserResponse(p parsers.Parser) ParserResponse {
	return ParserResponse{Name: p.Name, Parser: p.Redacted()}
}

// ListParsersResponse is the response for listing parsers.
type ListParsersResponse struct {
	Parsers []ParserResponse `json:"parsers"`
	Total   int              `json:"total"`
}

// writeParserError maps catalog errors to HTTP statuses.
func writeParserError(w http.ResponseWriter, err error) {
	var syncErr *parsers.SyncError
	switch {
	case errors.Is(err, parsers.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, parsers.ErrExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, parsers.ErrInvalidParser):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &syncErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parserPath(name string) string {
	return "/api/parsers/" + url.PathEscape(name)
}

// ListParsersEndpoint handles GET /api/parsers.
type ListParsersEndpoint struct{}

func (e *ListParsersEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/parsers", e.handler
}

func (e *ListParsersEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List parsers
//	@Description	List configured parsers sorted by name, optionally filtered by type
//	@Tags			parsers
//	@Produce		json
//	@Param			type	query		string	false	"Parser type"
//	@Success		200		{object}	ListParsersResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/parsers [get]
func (e *ListParsersEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	catalog := svcctx.CatalogFrom(r.Context())
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "parser catalog not initialized")
		return
	}

	filter := r.URL.Query().Get("type")
	resp := ListParsersResponse{Parsers: []ParserResponse{}}
	for _, p := range catalog.List() {
		if filter != "" && p.Type != parsers.NormalizeType(filter) {
			continue
		}
		resp.Parsers = append(resp.Parsers, parserResponse(p))
	}
	resp.Total = len(resp.Parsers)

	writeJSON(w, http.StatusOK, resp)
}

func (e *ListParsersEndpoint) Command(getServerURL func() string) *cobra.Command {
	var parserType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured parsers",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/parsers"
			if parserType != "" {
				path += "?type=" + url.QueryEscape(parserType)
			}
			client := api.NewClient(getServerURL())
			var resp ListParsersResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&parserType, "type", "", "Filter by parser type")
	return cmd
}

// GetParserEndpoint handles GET /api/parsers/{name}.
type GetParserEndpoint struct{}

func (e *GetParserEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/parsers/{name}", e.handler
}

func (e *GetParserEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get parser
//	@Description	Get a parser by name
//	@Tags			parsers
//	@Produce		json
//	@Param			name	path		string	true	"Parser name"
//	@Success		200		{object}	ParserResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/parsers/{name} [get]
func (e *GetParserEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	catalog := svcctx.CatalogFrom(r.Context())
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "parser catalog not initialized")
		return
	}

	p, err := catalog.Get(r.PathValue("name"))
	if err != nil {
		writeParserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parserResponse(p))
}

func (e *GetParserEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Get a parser by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ParserResponse
			if err := client.Get(cmd.Context(), parserPath(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ParserTypesResponse lists the parser types in use and the known ones.
type ParserTypesResponse struct {
	InUse []parsers.Type `json:"in_use"`
	Known []parsers.Type `json:"known"`
}

// ParserTypesEndpoint handles GET /api/parsers/types.
type ParserTypesEndpoint struct{}

func (e *ParserTypesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/parsers/types", e.handler
}

func (e *ParserTypesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List parser types
//	@Description	Distinct parser types in use, plus the known types
//	@Tags			parsers
//	@Produce		json
//	@Success		200	{object}	ParserTypesResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/parsers/types [get]
func (e *ParserTypesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	catalog := svcctx.CatalogFrom(r.Context())
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "parser catalog not initialized")
		return
	}
	writeJSON(w, http.StatusOK, ParserTypesResponse{InUse: catalog.Types(), Known: parsers.Types})
}

func (e *ParserTypesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List parser types",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ParserTypesResponse
			if err := client.Get(cmd.Context(), "/api/parsers/types", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ParserLinkResponse is a shareable client link for a parser.
type ParserLinkResponse struct {
	Parser string `json:"parser"`
	URL    string `json:"url"`
}

// ParserLinkEndpoint handles GET /api/parsers/{name}/link.
type ParserLinkEndpoint struct{}

func (e *ParserLinkEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/parsers/{name}/link", e.handler
}

func (e *ParserLinkEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Parser client link
//	@Description	Build the shareable page link for a parser from server.public_url
//	@Tags			parsers
//	@Produce		json
//	@Param			name	path		string	true	"Parser name"
//	@Success		200		{object}	ParserLinkResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/parsers/{name}/link [get]
func (e *ParserLinkEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catalog := svcctx.CatalogFrom(ctx)
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "parser catalog not initialized")
		return
	}

	name := r.PathValue("name")
	link, err := catalog.ClientLink(svcctx.ConfigFrom(ctx).Server.PublicURL, name)
	if err != nil {
		writeParserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ParserLinkResponse{Parser: name, URL: link})
}

func (e *ParserLinkEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "link <name>",
		Short: "Print the shareable client link for a parser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ParserLinkResponse
			if err := client.Get(cmd.Context(), parserPath(args[0])+"/link", &resp); err != nil {
				return err
			}
			fmt.Println(resp.URL)
			return nil
		},
	}
}
