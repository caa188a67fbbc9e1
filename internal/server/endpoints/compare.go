package endpoints

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/config"
	"github.com/parserlab/ocrdiff/internal/jsondiff"
	"github.com/parserlab/ocrdiff/internal/report"
	"github.com/parserlab/ocrdiff/internal/svcctx"
)

// maxCompareBody caps the size of a posted document pair.
const maxCompareBody = 32 << 20

// CompareRequest is the body for comparing two documents. Reference and
// candidate are arbitrary JSON documents; object key order is kept.
type CompareRequest struct {
	Reference       json.RawMessage `json:"reference" swaggertype:"object"`
	Candidate       json.RawMessage `json:"candidate" swaggertype:"object"`
	Separator       string          `json:"separator,omitempty"`
	EmptyContainers *bool           `json:"empty_containers,omitempty"`
}

// CompareResponse is a comparison table with its summary.
type CompareResponse struct {
	Separator  string                 `json:"separator"`
	Summary    jsondiff.Summary       `json:"summary"`
	Rows       []jsondiff.Row         `json:"rows,omitempty"`
	Mismatches []jsondiff.MismatchRow `json:"mismatches,omitempty"`
}

// CompareEndpoint handles POST /api/compare.
type CompareEndpoint struct{}

func (e *CompareEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/compare", e.handler
}

func (e *CompareEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Compare two documents
//	@Description	Flatten both documents and compare them leaf by leaf. The reference decides which paths are compared.
//	@Tags			compare
//	@Accept			json
//	@Produce		json
//	@Produce		text/csv
//	@Param			request	body		CompareRequest	true	"Documents to compare"
//	@Param			view	query		string			false	"table or mismatches"
//	@Param			format	query		string			false	"json (default) or csv"
//	@Success		200		{object}	CompareResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/compare [post]
func (e *CompareEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := report.ParseView(q.Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCompareBody)
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := compareDocuments(svcctx.ConfigFrom(r.Context()).Compare, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch q.Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, compareResponse(res, view))
	case "csv":
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, res, view, nil); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", report.FormatCSV.ContentType())
		w.Write(buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", q.Get("format")))
	}
}

func compareResponse(res *jsondiff.Result, view report.View) CompareResponse {
	resp := CompareResponse{Separator: res.Separator, Summary: res.Summary()}
	if view == report.ViewMismatches {
		resp.Mismatches = res.Mismatches()
	} else {
		resp.Rows = res.Table()
	}
	return resp
}

func compareDocuments(defaults config.CompareCfg, req CompareRequest) (*jsondiff.Result, error) {
	if len(req.Reference) == 0 || len(req.Candidate) == 0 {
		return nil, errors.New("reference and candidate are required")
	}
	ref, err := jsondiff.DecodeBytes(req.Reference)
	if err != nil {
		return nil, fmt.Errorf("invalid reference: %w", err)
	}
	cand, err := jsondiff.DecodeBytes(req.Candidate)
	if err != nil {
		return nil, fmt.Errorf("invalid candidate: %w", err)
	}

	sep := defaults.Separator
	if req.Separator != "" {
		sep = req.Separator
	}
	empty := defaults.EmptyContainers
	if req.EmptyContainers != nil {
		empty = *req.EmptyContainers
	}
	return jsondiff.Compare(ref, cand, jsondiff.WithSeparator(sep), jsondiff.WithEmptyContainers(empty)), nil
}

func (e *CompareEndpoint) Command(getServerURL func() string) *cobra.Command {
	var view, separator string
	cmd := &cobra.Command{
		Use:   "compare <reference.json> <candidate.json>",
		Short: "Compare two JSON documents on the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cand, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			req := CompareRequest{Reference: ref, Candidate: cand, Separator: separator}

			client := api.NewClient(getServerURL())
			var resp CompareResponse
			if err := client.Post(cmd.Context(), "/api/compare?view="+view, req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&view, "view", "table", "table or mismatches")
	cmd.Flags().StringVar(&separator, "separator", "", "Path separator (default from server config)")
	return cmd
}
