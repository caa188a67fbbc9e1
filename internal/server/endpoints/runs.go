package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/history"
	"github.com/parserlab/ocrdiff/internal/ocr"
	"github.com/parserlab/ocrdiff/internal/svcctx"
)

// ListRunsResponse is the response for listing recorded runs.
type ListRunsResponse struct {
	Runs  []history.Summary `json:"runs"`
	Total int               `json:"total"`
}

func runPath(id string) string {
	return "/api/runs/" + url.PathEscape(id)
}

// historyOrUnavailable returns the run history, writing 503 when it is
// disabled.
func historyOrUnavailable(w http.ResponseWriter, r *http.Request) *history.Store {
	h := svcctx.HistoryFrom(r.Context())
	if h == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
	}
	return h
}

func writeRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// ListRunsEndpoint handles GET /api/runs.
type ListRunsEndpoint struct{}

func (e *ListRunsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/runs", e.handler
}

func (e *ListRunsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List runs
//	@Description	List recorded runs, newest first
//	@Tags			runs
//	@Produce		json
//	@Param			parser	query		string	false	"Filter by parser name"
//	@Param			limit	query		int		false	"Maximum number of runs (default 50)"
//	@Success		200		{object}	ListRunsResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/runs [get]
func (e *ListRunsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	h := historyOrUnavailable(w, r)
	if h == nil {
		return
	}

	q := r.URL.Query()
	limit := history.DefaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		limit = n
	}

	runs, err := h.List(r.Context(), q.Get("parser"), limit)
	if err != nil {
		writeRunError(w, err)
		return
	}
	if runs == nil {
		runs = []history.Summary{}
	}
	writeJSON(w, http.StatusOK, ListRunsResponse{Runs: runs, Total: len(runs)})
}

func (e *ListRunsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var parser string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if parser != "" {
				q.Set("parser", parser)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/runs"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			client := api.NewClient(getServerURL())
			var resp ListRunsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&parser, "parser", "", "Filter by parser name")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of runs")
	return cmd
}

// GetRunEndpoint handles GET /api/runs/{id}.
type GetRunEndpoint struct{}

func (e *GetRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/runs/{id}", e.handler
}

func (e *GetRunEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get run
//	@Description	Get a recorded run with both results and its comparison
//	@Tags			runs
//	@Produce		json
//	@Param			id	path		string	true	"Run ID"
//	@Success		200	{object}	ocr.Run
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/runs/{id} [get]
func (e *GetRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	h := historyOrUnavailable(w, r)
	if h == nil {
		return
	}
	run, err := h.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (e *GetRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var run ocr.Run
			if err := client.Get(cmd.Context(), runPath(args[0]), &run); err != nil {
				return err
			}
			if full {
				return api.Output(&run)
			}
			return api.Output(history.Summarize(&run))
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Print both results and the comparison")
	return cmd
}

// DeleteRunEndpoint handles DELETE /api/runs/{id}.
type DeleteRunEndpoint struct{}

func (e *DeleteRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/runs/{id}", e.handler
}

func (e *DeleteRunEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete run
//	@Description	Remove a run from the history
//	@Tags			runs
//	@Param			id	path	string	true	"Run ID"
//	@Success		204	"No Content"
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/runs/{id} [delete]
func (e *DeleteRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	h := historyOrUnavailable(w, r)
	if h == nil {
		return
	}
	id := r.PathValue("id")
	if err := h.Delete(r.Context(), id); err != nil {
		writeRunError(w, err)
		return
	}
	svcctx.LoggerFrom(r.Context()).Info("run deleted", "run_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), runPath(args[0])); err != nil {
				return err
			}
			fmt.Println("Run deleted successfully")
			return nil
		},
	}
}
