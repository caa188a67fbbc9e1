package endpoints

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/home"
	"github.com/parserlab/ocrdiff/internal/report"
	"github.com/parserlab/ocrdiff/internal/svcctx"
)

// ExportRunEndpoint handles GET /api/runs/{id}/export.
type ExportRunEndpoint struct{}

func (e *ExportRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/runs/{id}/export", e.handler
}

func (e *ExportRunEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Export run
//	@Description	Download a recorded run as a CSV table, a text or HTML diff, a JSON merge patch, a PDF report, or the full run as JSON or YAML.
//	@Description	Table rows use the parser's field mappings as labels when the parser still exists.
//	@Tags			runs
//	@Produce		text/csv
//	@Produce		text/plain
//	@Produce		text/html
//	@Produce		json
//	@Produce		application/pdf
//	@Param			id		path		string	true	"Run ID"
//	@Param			format	query		string	false	"csv (default), diff, html, patch, json, yaml or pdf"
//	@Param			view	query		string	false	"table (default) or mismatches"
//	@Success		200		{file}		file
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/runs/{id}/export [get]
func (e *ExportRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	h := historyOrUnavailable(w, r)
	if h == nil {
		return
	}
	ctx := r.Context()

	q := r.URL.Query()
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := report.ParseView(q.Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeRunError(w, err)
		return
	}

	opts := report.Options{Format: format, View: view}
	if catalog := svcctx.CatalogFrom(ctx); catalog != nil {
		if p, err := catalog.Get(run.Parser); err == nil && len(p.FieldMappings) > 0 {
			opts.Label = report.Labels(p.FieldMappings)
		}
	}

	var buf bytes.Buffer
	if err := report.Export(&buf, run, opts); err != nil {
		if errors.Is(err, report.ErrNoComparison) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		svcctx.LoggerFrom(ctx).Error("export failed", "run_id", run.ID, "format", format, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(run.ID, format)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func exportFilename(runID string, format report.Format) string {
	return fmt.Sprintf("run_%s.%s", runID, format.Extension())
}

func (e *ExportRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	var format, view, out string
	var save bool
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a recorded run",
		Long: `Export a recorded run. Without --out or --save the report is written
to stdout.

Formats: csv, diff, html, patch, json, yaml, pdf.`,
		Example: `  ocrdiff api runs export 2f1c... --format csv --view mismatches
  ocrdiff api runs export 2f1c... --format html --out report.html
  ocrdiff api runs export 2f1c... --format pdf --save
  ocrdiff api runs export 2f1c... --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			if _, err := report.ParseView(view); err != nil {
				return err
			}
			if save && out != "" {
				return errors.New("--out and --save are mutually exclusive")
			}

			q := url.Values{}
			q.Set("format", string(f))
			q.Set("view", view)
			path := runPath(args[0]) + "/export?" + q.Encode()

			if save {
				homePath := ""
				if flag := cmd.Flag("home"); flag != nil {
					homePath = flag.Value.String()
				}
				dir, err := home.New(homePath)
				if err != nil {
					return err
				}
				out = dir.RunExportPath(args[0], f.Extension())
			}

			client := api.NewClient(getServerURL())
			if out == "" {
				return client.GetRaw(cmd.Context(), path, os.Stdout)
			}
			return exportToFile(cmd, client, path, out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatCSV), "Export format")
	cmd.Flags().StringVar(&view, "view", string(report.ViewTable), "table or mismatches")
	cmd.Flags().StringVar(&out, "out", "", "Write the report to this file")
	cmd.Flags().BoolVar(&save, "save", false, "Write the report to the home exports directory")
	return cmd
}

func exportToFile(cmd *cobra.Command, client *api.Client, path, out string) error {
	var buf bytes.Buffer
	if err := client.GetRaw(cmd.Context(), path, &buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	_, err := io.WriteString(cmd.ErrOrStderr(), "Exported to "+out+"\n")
	return err
}
