package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/svcctx"
)

// SyncParsersResponse reports the catalog after a reload.
type SyncParsersResponse struct {
	Backend string `json:"backend"`
	Count   int    `json:"count"`
}

// SyncParsersEndpoint handles POST /api/parsers/sync.
type SyncParsersEndpoint struct{}

func (e *SyncParsersEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/parsers/sync", e.handler
}

// RequiresInit is false so a catalog that failed to load at startup can be
// retried.
func (e *SyncParsersEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Reload parsers
//	@Description	Reload the parser catalog from its store
//	@Tags			parsers
//	@Produce		json
//	@Success		200	{object}	SyncParsersResponse
//	@Failure		502	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/parsers/sync [post]
func (e *SyncParsersEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catalog := svcctx.CatalogFrom(ctx)
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "parser catalog not initialized")
		return
	}

	if err := catalog.Load(ctx); err != nil {
		svcctx.LoggerFrom(ctx).Error("parser sync failed", "backend", catalog.Store().Name(), "error", err)
		writeParserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncParsersResponse{
		Backend: catalog.Store().Name(),
		Count:   len(catalog.List()),
	})
}

func (e *SyncParsersEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reload the parser catalog from its store",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SyncParsersResponse
			if err := client.Post(cmd.Context(), "/api/parsers/sync", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Loaded %d parsers from %s\n", resp.Count, resp.Backend)
			return nil
		},
	}
}
