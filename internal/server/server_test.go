package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/parserlab/ocrdiff/internal/config"
	"github.com/parserlab/ocrdiff/internal/history"
	"github.com/parserlab/ocrdiff/internal/home"
	"github.com/parserlab/ocrdiff/internal/ocr"
	"github.com/parserlab/ocrdiff/internal/parsers"
	"github.com/parserlab/ocrdiff/internal/server/endpoints"
	"github.com/parserlab/ocrdiff/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const seedParsers = `{
    "invoices": {
        "api_key": "key-123456",
        "parser_app_id": "app-1",
        "extra_accuracy": false,
        "type": "invoice",
        "expected_response": "{\"name\":\"John\",\"total\":\"10.00\"}",
        "sample_curl": "",
        "field_mappings": {"name": "Customer Name"}
    }
}
`

const (
	withExtraDoc    = `{"name":"John","total":"10.00","items":[{"sku":"a"}]}`
	withoutExtraDoc = `{"name":"Jon","total":"10.00"}`
)

type testEnv struct {
	srv  *Server
	ts   *httptest.Server
	home *home.Dir
	sub  *ocr.MockSubmitter
}

// newTestEnv builds an initialized server over a file store seeded with
// seedParsers and a mock OCR API.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	h, err := home.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, h.EnsureExists())
	require.NoError(t, os.WriteFile(h.ParsersPath(), []byte(seedParsers), 0o644))

	sub, err := ocr.NewMockSubmitterJSON(withExtraDoc, withoutExtraDoc)
	require.NoError(t, err)

	srv, err := New(Config{
		Home:      h,
		Logger:    testutil.Logger(t),
		Submitter: sub,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Init(context.Background()))
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{srv: srv, ts: ts, home: h, sub: sub}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// upload posts a multipart run request. Files map names to contents.
func (e *testEnv) upload(t *testing.T, fields map[string]string, files map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := e.ts.Client().Post(e.ts.URL+"/api/runs", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestNew_Defaults(t *testing.T) {
	srv, err := New(Config{Home: mustHome(t), Logger: testutil.Logger(t)})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", srv.Addr())
	assert.False(t, srv.IsRunning())
	assert.Nil(t, srv.Services())
	assert.Contains(t, srv.Routes(), "POST /api/runs")
}

func mustHome(t *testing.T) *home.Dir {
	t.Helper()
	h, err := home.New(t.TempDir())
	require.NoError(t, err)
	return h
}

func mustConfig(t *testing.T, path string) *config.Manager {
	t.Helper()
	m, err := config.NewManager(path)
	require.NoError(t, err)
	return m
}

func TestServer_BeforeInit(t *testing.T) {
	srv, err := New(Config{Home: mustHome(t), Logger: testutil.Logger(t)})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = ts.Client().Get(ts.URL + "/ready")
	require.NoError(t, err)
	ready := decode[endpoints.HealthResponse](t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "not_initialized", ready.Parsers)

	resp, err = ts.Client().Get(ts.URL + "/api/parsers")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_CatalogLoadFailure(t *testing.T) {
	h := mustHome(t)
	require.NoError(t, h.EnsureExists())
	require.NoError(t, os.WriteFile(h.ParsersPath(), []byte(`{"broken": {"api_key": ""}}`), 0o644))

	srv, err := New(Config{Home: h, Logger: testutil.Logger(t), Submitter: ocr.NewMockSubmitter(nil, nil)})
	require.NoError(t, err)
	require.NoError(t, srv.Init(context.Background()))
	defer srv.Close()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/parsers")
	require.NoError(t, err)
	errResp := decode[endpoints.ErrorResponse](t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "parser catalog not loaded", errResp.Error)

	// Fix the file and sync.
	require.NoError(t, os.WriteFile(h.ParsersPath(), []byte(seedParsers), 0o644))
	resp, err = ts.Client().Post(ts.URL+"/api/parsers/sync", "application/json", nil)
	require.NoError(t, err)
	synced := decode[endpoints.SyncParsersResponse](t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, endpoints.SyncParsersResponse{Backend: "file", Count: 1}, synced)

	resp, err = ts.Client().Get(ts.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Status(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/status", nil)
	status := decode[endpoints.StatusResponse](t, resp)
	assert.Equal(t, "running", status.Server)
	assert.Equal(t, endpoints.ParsersStatus{Backend: "file", Loaded: true, Count: 1}, status.Parsers)
	assert.True(t, status.History.Enabled)
	assert.Equal(t, env.home.HistoryPath(), status.History.Path)
	assert.Equal(t, 3, status.OCR.MaxRetries)
}

func TestServer_ParserCRUD(t *testing.T) {
	env := newTestEnv(t)

	// list
	resp := env.do(t, http.MethodGet, "/api/parsers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[endpoints.ListParsersResponse](t, resp)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "invoices", list.Parsers[0].Name)
	assert.Equal(t, "******3456", list.Parsers[0].APIKey)

	// create
	create := endpoints.ParserRequest{Name: "cards", Parser: parsers.Parser{
		APIKey: "card-key-9999",
		AppID:  "app-2",
		Type:   "Visiting_Card",
	}}
	resp = env.do(t, http.MethodPost, "/api/parsers", create)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[endpoints.ParserResponse](t, resp)
	assert.Equal(t, "cards", created.Name)
	assert.Equal(t, parsers.TypeVisitingCard, created.Type)

	// duplicate
	resp = env.do(t, http.MethodPost, "/api/parsers", create)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// invalid
	resp = env.do(t, http.MethodPost, "/api/parsers", endpoints.ParserRequest{Name: "bad"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// filter by type
	resp = env.do(t, http.MethodGet, "/api/parsers?type=visiting_card", nil)
	list = decode[endpoints.ListParsersResponse](t, resp)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "cards", list.Parsers[0].Name)

	// types
	resp = env.do(t, http.MethodGet, "/api/parsers/types", nil)
	types := decode[endpoints.ParserTypesResponse](t, resp)
	assert.Equal(t, []parsers.Type{parsers.TypeInvoice, parsers.TypeVisitingCard}, types.InUse)
	assert.Equal(t, parsers.Types, types.Known)

	// update
	update := endpoints.ParserRequest{Parser: parsers.Parser{
		APIKey:        "card-key-0000",
		AppID:         "app-1",
		Type:          parsers.TypeBusinessCard,
		ExtraAccuracy: true,
	}}
	resp = env.do(t, http.MethodPut, "/api/parsers/cards", update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[endpoints.ParserResponse](t, resp)
	assert.Equal(t, parsers.TypeBusinessCard, updated.Type)
	assert.True(t, updated.ExtraAccuracy)

	resp = env.do(t, http.MethodPut, "/api/parsers/missing", update)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// link counts parsers sharing the app id
	resp = env.do(t, http.MethodGet, "/api/parsers/cards/link", nil)
	link := decode[endpoints.ParserLinkResponse](t, resp)
	assert.Equal(t, "http://127.0.0.1:8080/?client=true&id=2&parser=cards", link.URL)

	// persisted to parsers.json
	data, err := os.ReadFile(env.home.ParsersPath())
	require.NoError(t, err)
	doc, err := parsers.DecodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"cards", "invoices"}, doc.Names())
	assert.Equal(t, "card-key-0000", doc["cards"].APIKey)

	// delete
	resp = env.do(t, http.MethodDelete, "/api/parsers/cards", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/parsers/cards", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(t, http.MethodDelete, "/api/parsers/cards", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Compare(t *testing.T) {
	env := newTestEnv(t)

	req := map[string]any{
		"reference": json.RawMessage(`{"a":1,"b":{"c":"x"}}`),
		"candidate": json.RawMessage(`{"a":1.0,"b":{"c":"y"}}`),
		"separator": "/",
	}
	resp := env.do(t, http.MethodPost, "/api/compare", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[endpoints.CompareResponse](t, resp)
	assert.Equal(t, "/", out.Separator)
	assert.Equal(t, 2, out.Summary.Total)
	assert.Equal(t, 1, out.Summary.Mismatches)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "b/c", out.Rows[1].Path)

	resp = env.do(t, http.MethodPost, "/api/compare?view=mismatches&format=csv", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Field,Result with Extra Accuracy,Result without Extra Accuracy\nb/c,x,y\n", readBody(t, resp))

	resp = env.do(t, http.MethodPost, "/api/compare", map[string]any{"reference": json.RawMessage(`{}`)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/compare?view=bogus", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	absent := map[string]any{
		"reference": json.RawMessage(`{"a":1,"b":2}`),
		"candidate": json.RawMessage(`{"b":null}`),
	}
	resp = env.do(t, http.MethodPost, "/api/compare?view=mismatches", absent)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decode[endpoints.CompareResponse](t, resp)
	require.Len(t, out.Mismatches, 2)
	assert.True(t, out.Mismatches[0].Missing)
	assert.Nil(t, out.Mismatches[0].Candidate)
	assert.False(t, out.Mismatches[1].Missing)
	assert.Nil(t, out.Mismatches[1].Candidate)
}

func TestServer_Runs(t *testing.T) {
	env := newTestEnv(t)

	resp := env.upload(t, map[string]string{"parser": "invoices"}, map[string]string{"scan.png": "fake-png"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var run ocr.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))

	assert.Equal(t, ocr.StatusCompared, run.Status)
	assert.Equal(t, "invoices", run.Parser)
	require.Len(t, run.Files, 1)
	assert.Equal(t, "image/png", run.Files[0].ContentType)
	require.NotNil(t, run.Comparison)
	s := run.Comparison.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Mismatches)
	assert.Equal(t, 1, s.Missing)
	require.NotNil(t, run.ExpectedComparison)
	assert.True(t, run.ExpectedComparison.Matched())

	// both submissions went out, extra accuracy first
	reqs := env.sub.Requests()
	require.Len(t, reqs, 2)
	assert.True(t, reqs[0].ExtraAccuracy)
	assert.False(t, reqs[1].ExtraAccuracy)
	assert.Equal(t, "app-1", reqs[0].Credentials.AppID)
	assert.False(t, run.ParserExtraAccuracy)

	// list
	resp = env.do(t, http.MethodGet, "/api/runs?parser=invoices", nil)
	list := decode[endpoints.ListRunsResponse](t, resp)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, history.Summary{
		ID:         run.ID,
		Parser:     "invoices",
		Status:     ocr.StatusCompared,
		Files:      1,
		Paths:      3,
		Mismatches: 2,
		StartedAt:  list.Runs[0].StartedAt,
		DurationMS: list.Runs[0].DurationMS,
	}, list.Runs[0])

	resp = env.do(t, http.MethodGet, "/api/runs?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// get
	resp = env.do(t, http.MethodGet, "/api/runs/"+run.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got ocr.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Comparison.Table(), got.Comparison.Table())

	// export csv uses field mappings
	resp = env.do(t, http.MethodGet, "/api/runs/"+run.ID+"/export?view=mismatches", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="run_`+run.ID+`.csv"`, resp.Header.Get("Content-Disposition"))
	csv := readBody(t, resp)
	assert.Contains(t, csv, "Customer Name,John,Jon\n")
	assert.Contains(t, csv, `items.0.sku,a,N/A`)

	// export patch
	resp = env.do(t, http.MethodGet, "/api/runs/"+run.ID+"/export?format=patch", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"name":"Jon","items":null}`, readBody(t, resp))

	// export pdf
	resp = env.do(t, http.MethodGet, "/api/runs/"+run.ID+"/export?format=pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="run_`+run.ID+`.pdf"`, resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(readBody(t, resp), "%PDF-"))

	resp = env.do(t, http.MethodGet, "/api/runs/"+run.ID+"/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// delete
	resp = env.do(t, http.MethodDelete, "/api/runs/"+run.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/runs/"+run.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/runs/"+run.ID+"/export", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_RunFromURLs(t *testing.T) {
	env := newTestEnv(t)
	docs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/receipt.png" {
			w.Write([]byte("fake-png"))
			return
		}
		http.NotFound(w, r)
	}))
	defer docs.Close()

	update := endpoints.ParserRequest{Parser: parsers.Parser{
		APIKey:        "key-123456",
		AppID:         "app-1",
		Type:          parsers.TypeInvoice,
		ExtraAccuracy: true,
	}}
	resp := env.do(t, http.MethodPut, "/api/parsers/invoices", update)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.upload(t, map[string]string{
		"parser": "invoices",
		"urls":   docs.URL + "/receipt.png\n\n",
	}, map[string]string{"scan.png": "fake-png"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	run := decode[ocr.Run](t, resp)
	require.Len(t, run.Files, 2)
	assert.Equal(t, "scan.png", run.Files[0].Name)
	assert.Equal(t, "receipt.png", run.Files[1].Name)
	assert.True(t, run.ParserExtraAccuracy)

	resp = env.do(t, http.MethodGet, "/api/runs", nil)
	list := decode[endpoints.ListRunsResponse](t, resp)
	require.Equal(t, 1, list.Total)
	assert.True(t, list.Runs[0].ParserExtraAccuracy)

	// a url alone is enough
	resp = env.upload(t, map[string]string{"parser": "invoices", "urls": docs.URL + "/receipt.png"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.upload(t, map[string]string{"parser": "invoices", "urls": docs.URL + "/gone.png"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[endpoints.ErrorResponse](t, resp).Error, "failed to fetch document")
}

func TestServer_RunErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		fields map[string]string
		files  map[string]string
		status int
		errMsg string
	}{
		{
			name:   "unknown parser",
			fields: map[string]string{"parser": "nope"},
			files:  map[string]string{"a.png": "x"},
			status: http.StatusNotFound,
			errMsg: "parser not found",
		},
		{
			name:   "no files",
			fields: map[string]string{"parser": "invoices"},
			status: http.StatusBadRequest,
			errMsg: "at least one file or url is required",
		},
		{
			name:   "unsupported type",
			fields: map[string]string{"parser": "invoices"},
			files:  map[string]string{"notes.txt": "x"},
			status: http.StatusBadRequest,
			errMsg: "unsupported file type",
		},
		{
			name:   "empty file",
			fields: map[string]string{"parser": "invoices"},
			files:  map[string]string{"a.png": ""},
			status: http.StatusBadRequest,
			errMsg: "empty file",
		},
		{
			name:   "bad empty_containers",
			fields: map[string]string{"parser": "invoices", "empty_containers": "maybe"},
			files:  map[string]string{"a.png": "x"},
			status: http.StatusBadRequest,
			errMsg: "invalid empty_containers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.upload(t, tt.fields, tt.files)
			assert.Equal(t, tt.status, resp.StatusCode)
			errResp := decode[endpoints.ErrorResponse](t, resp)
			assert.Contains(t, errResp.Error, tt.errMsg)
		})
	}
	assert.Empty(t, env.sub.Requests())
}

func TestServer_FailedRunExport(t *testing.T) {
	env := newTestEnv(t)
	env.sub.WithoutExtra = ocr.MockHTTPFailure(http.StatusBadGateway, "upstream down")

	resp := env.upload(t, map[string]string{"parser": "invoices"}, map[string]string{"scan.png": "x"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var run ocr.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, ocr.StatusFailed, run.Status)
	assert.Nil(t, run.Comparison)

	resp = env.do(t, http.MethodGet, "/api/runs/"+run.ID+"/export", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/runs/"+run.ID+"/export?format=json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"status": "failed"`)
}

func TestServer_HistoryDisabled(t *testing.T) {
	h := mustHome(t)
	require.NoError(t, h.EnsureExists())
	require.NoError(t, os.WriteFile(h.ParsersPath(), []byte(seedParsers), 0o644))
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("history:\n  enabled: false\n"), 0o644))

	srv, err := New(Config{
		Home:          h,
		Logger:        testutil.Logger(t),
		ConfigManager: mustConfig(t, cfgPath),
		Submitter:     ocr.NewMockSubmitter(map[string]any{"a": "1"}, map[string]any{"a": "1"}),
	})
	require.NoError(t, err)
	require.NoError(t, srv.Init(context.Background()))
	defer srv.Close()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/runs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, err = os.Stat(h.HistoryPath())
	assert.True(t, os.IsNotExist(err))
}

func TestServer_StaticFallback(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/?client=true&parser=invoices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(readBody(t, resp), "<title>ocrdiff</title>"))

	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	resp = env.do(t, http.MethodGet, "/some/client/route", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp = env.do(t, http.MethodGet, "/?client=true&parser=nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "unknown parser nope")

	resp = env.do(t, http.MethodGet, "/?client=true", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// without client mode the parser is not checked
	resp = env.do(t, http.MethodGet, "/?parser=nope", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_SwaggerRouteIndex(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/swagger.json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var spec struct {
		Swagger string                               `json:"swagger"`
		Paths   map[string]map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&spec))
	assert.Equal(t, "2.0", spec.Swagger)
	assert.Equal(t, "Run a dual OCR comparison", spec.Paths["/api/runs"]["post"]["summary"])
	assert.Contains(t, spec.Paths["/api/runs"], "get")
	assert.Contains(t, spec.Paths, "/api/runs/{id}/export")
	assert.NotContains(t, spec.Paths, "/{path...}")

	resp = env.do(t, http.MethodGet, "/swagger.json?format=yaml", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, readBody(t, resp), "swagger: \"2.0\"\n")

	resp = env.do(t, http.MethodGet, "/swagger.json?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
