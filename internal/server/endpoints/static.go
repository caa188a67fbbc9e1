package endpoints

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/parsers"
	"github.com/parserlab/ocrdiff/internal/svcctx"
	"github.com/parserlab/ocrdiff/web"
)

// StaticEndpoint serves the embedded comparison page. Paths that are not
// embedded files get index.html.
//
// Client links (/?client=true&parser=<name>) open the page locked to one
// parser. A link naming a parser the loaded catalog does not have is
// answered with 404 instead of a page that cannot run.
type StaticEndpoint struct{}

var _ api.Endpoint = (*StaticEndpoint)(nil)

func (e *StaticEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/{path...}", e.handler
}

func (e *StaticEndpoint) RequiresInit() bool {
	return false
}

func (e *StaticEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}

func (e *StaticEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	distFS, err := web.DistFS()
	if err != nil {
		http.Error(w, "Frontend not available", http.StatusInternalServerError)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/")
	if name != "" && name != "index.html" {
		if _, err := fs.Stat(distFS, name); err == nil {
			http.FileServer(http.FS(distFS)).ServeHTTP(w, r)
			return
		}
	}

	if q := r.URL.Query(); q.Get("client") == "true" {
		if status, msg := checkClientLink(r, q.Get("parser")); status != http.StatusOK {
			http.Error(w, msg, status)
			return
		}
	}

	index, err := web.Index()
	if err != nil {
		http.Error(w, "Frontend not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// The page reads its mode from the query string.
	w.Header().Set("Cache-Control", "no-store")
	w.Write(index)
}

// checkClientLink validates the parser of a client link. Before the
// catalog is loaded every link is let through.
func checkClientLink(r *http.Request, parser string) (int, string) {
	if parser == "" {
		return http.StatusBadRequest, "client link is missing the parser"
	}
	catalog := svcctx.CatalogFrom(r.Context())
	if catalog == nil {
		return http.StatusOK, ""
	}
	if _, err := catalog.Get(parser); errors.Is(err, parsers.ErrNotFound) {
		return http.StatusNotFound, "unknown parser " + parser
	}
	return http.StatusOK, ""
}
