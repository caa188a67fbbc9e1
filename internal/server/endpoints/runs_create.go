package endpoints

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/history"
	"github.com/parserlab/ocrdiff/internal/ocr"
	"github.com/parserlab/ocrdiff/internal/svcctx"
)

const (
	// maxUploadSize caps the multipart body of a run.
	maxUploadSize = 64 << 20
	// multipartMemory is how much of an upload is kept in memory before
	// spilling to temp files.
	multipartMemory = 32 << 20
)

// fetchClient downloads documents given by URL.
var fetchClient = &http.Client{Timeout: ocr.FetchTimeout}

// CreateRunEndpoint handles POST /api/runs.
type CreateRunEndpoint struct{}

func (e *CreateRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/runs", e.handler
}

func (e *CreateRunEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Run a dual OCR comparison
//	@Description	Submit the uploaded files with and without extra accuracy and compare the two responses
//	@Tags			runs
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			parser				formData	string	true	"Parser name"
//	@Param			files				formData	file	false	"Files (pdf, png, jpg, jpeg, bmp, gif, tiff)"
//	@Param			urls				formData	string	false	"Document URLs, one per line"
//	@Param			separator			formData	string	false	"Path separator"
//	@Param			empty_containers	formData	bool	false	"Keep empty objects and arrays as leaves"
//	@Success		201					{object}	ocr.Run
//	@Failure		400					{object}	ErrorResponse
//	@Failure		404					{object}	ErrorResponse
//	@Failure		503					{object}	ErrorResponse
//	@Router			/api/runs [post]
func (e *CreateRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catalog := svcctx.CatalogFrom(ctx)
	runner := svcctx.RunnerFrom(ctx)
	if catalog == nil || runner == nil {
		writeError(w, http.StatusServiceUnavailable, "runner not initialized")
		return
	}
	logger := svcctx.LoggerFrom(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	p, err := catalog.Get(r.FormValue("parser"))
	if err != nil {
		writeParserError(w, err)
		return
	}

	files, err := readUploads(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fetched, err := fetchURLs(ctx, formURLs(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	files = append(files, fetched...)
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "at least one file or url is required")
		return
	}

	cfg := svcctx.ConfigFrom(ctx)
	req := ocr.RunRequest{
		Parser:          p.Name,
		Credentials:     p.Credentials(),
		Files:           files,
		Separator:       cfg.Compare.Separator,
		EmptyContainers: cfg.Compare.EmptyContainers,

		ParserExtraAccuracy: p.ExtraAccuracy,
	}
	if sep := r.FormValue("separator"); sep != "" {
		req.Separator = sep
	}
	if v := r.FormValue("empty_containers"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid empty_containers: "+v)
			return
		}
		req.EmptyContainers = b
	}
	expected, err := p.Expected()
	if err != nil {
		writeError(w, http.StatusBadRequest, "parser expected_response is not valid JSON")
		return
	}
	req.Expected = expected

	run, err := runner.Run(ctx, req)
	if err != nil {
		if errors.Is(err, ocr.ErrInvalidRun) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("dual run failed", "parser", p.Name, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if hist := svcctx.HistoryFrom(ctx); hist != nil {
		if err := hist.Save(ctx, run); err != nil {
			logger.Error("failed to record run", "run_id", run.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, run)
}

// readUploads reads the "files" parts in upload order.
func readUploads(r *http.Request) ([]*ocr.File, error) {
	headers := r.MultipartForm.File["files"]
	files := make([]*ocr.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		file, err := ocr.NewFile(fh.Filename, data)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// formURLs collects the "urls" values, one URL per line.
func formURLs(r *http.Request) []string {
	var urls []string
	for _, v := range r.MultipartForm.Value["urls"] {
		for _, line := range strings.Split(v, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				urls = append(urls, line)
			}
		}
	}
	return urls
}

// fetchURLs downloads each URL in order, sharing the upload size cap.
func fetchURLs(ctx context.Context, urls []string) ([]*ocr.File, error) {
	var files []*ocr.File
	remaining := int64(maxUploadSize)
	for _, u := range urls {
		f, err := ocr.FetchFile(ctx, fetchClient, u, remaining)
		if err != nil {
			return nil, err
		}
		remaining -= int64(f.Size())
		files = append(files, f)
	}
	return files, nil
}

func (e *CreateRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	var separator string
	var emptyContainers bool
	var urls []string
	cmd := &cobra.Command{
		Use:   "create <parser> [file...]",
		Short: "Run a dual OCR comparison",
		Long: `Upload files and submit them to the OCR API with and without extra
accuracy, then compare the two responses. The extra-accuracy response is the
reference.

Documents can also be given by URL; the server downloads them before
submitting. Both submissions are made even when the parser does not enable
extra accuracy; the output reports the parser's setting.`,
		Example: `  ocrdiff api runs create invoices scan-1.pdf scan-2.png
  ocrdiff api runs create invoices --url https://example.com/receipt.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 && len(urls) == 0 {
				return errors.New("at least one file or --url is required")
			}
			fields := map[string]string{"parser": args[0]}
			if len(urls) > 0 {
				fields["urls"] = strings.Join(urls, "\n")
			}
			if separator != "" {
				fields["separator"] = separator
			}
			if cmd.Flags().Changed("empty-containers") {
				fields["empty_containers"] = strconv.FormatBool(emptyContainers)
			}

			client := api.NewClient(getServerURL())
			var run ocr.Run
			if err := client.PostFiles(cmd.Context(), "/api/runs", fields, "files", args[1:], &run); err != nil {
				return err
			}
			return api.Output(history.Summarize(&run))
		},
	}
	cmd.Flags().StringVar(&separator, "separator", "", "Path separator (default from server config)")
	cmd.Flags().BoolVar(&emptyContainers, "empty-containers", false, "Keep empty objects and arrays as leaves")
	cmd.Flags().StringArrayVar(&urls, "url", nil, "Document URL to download and submit (repeatable)")
	return cmd
}
