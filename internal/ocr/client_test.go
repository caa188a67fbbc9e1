package ocr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parserlab/ocrdiff/internal/jsondiff"
)

func testRequest(t *testing.T, extra bool) *Request {
	t.Helper()
	f, err := NewFile("invoice.png", []byte("fake png bytes"))
	require.NoError(t, err)
	return &Request{
		Files:         []*File{f},
		Credentials:   Credentials{APIKey: "key-1", AppID: "app-9"},
		ExtraAccuracy: extra,
	}
}

func newTestClient(url string) *Client {
	return NewClient(Config{
		Endpoint:   url,
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})
}

func TestClient_Submit(t *testing.T) {
	t.Run("sends multipart form and parses ordered document", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if got := r.Header.Get("x-api-key"); got != "key-1" {
				t.Errorf("unexpected api key: %s", got)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
				return
			}
			want := map[string]string{
				"parserApp":      "app-9",
				"user_ip":        "127.0.0.1",
				"location":       "delhi",
				"user_agent":     "Dummy-device-testing11",
				"extra_accuracy": "true",
			}
			for k, v := range want {
				if got := r.FormValue(k); got != v {
					t.Errorf("field %s = %q, want %q", k, got, v)
				}
			}
			files := r.MultipartForm.File["file"]
			if len(files) != 1 {
				t.Errorf("expected 1 file part, got %d", len(files))
				return
			}
			if files[0].Filename != "invoice.png" {
				t.Errorf("unexpected filename: %s", files[0].Filename)
			}
			if ct := files[0].Header.Get("Content-Type"); ct != "image/png" {
				t.Errorf("unexpected part content type: %s", ct)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"total":10,"name":"ACME"}`)
		}))
		defer server.Close()

		res, err := newTestClient(server.URL).Submit(context.Background(), testRequest(t, true))
		require.NoError(t, err)
		require.True(t, res.OK())
		require.Equal(t, 1, res.Attempts)
		require.Equal(t, jsondiff.Object{
			{Key: "total", Value: jsondiff.Number("10")},
			{Key: "name", Value: "ACME"},
		}, res.Value())
	})

	t.Run("retries transient status then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			io.WriteString(w, `{"ok":true}`)
		}))
		defer server.Close()

		res, err := newTestClient(server.URL).Submit(context.Background(), testRequest(t, false))
		require.NoError(t, err)
		require.True(t, res.OK())
		require.Equal(t, 3, res.Attempts)
		require.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, "slow down")
		}))
		defer server.Close()

		res, err := newTestClient(server.URL).Submit(context.Background(), testRequest(t, false))
		require.NoError(t, err)
		require.Equal(t, OutcomeHTTPFailure, res.Outcome)
		require.Equal(t, http.StatusTooManyRequests, res.StatusCode)
		require.Equal(t, "slow down", res.Body)
		require.Equal(t, 3, res.Attempts)
		require.Equal(t, int32(3), calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "bad app id", http.StatusBadRequest)
		}))
		defer server.Close()

		res, err := newTestClient(server.URL).Submit(context.Background(), testRequest(t, true))
		require.NoError(t, err)
		require.Equal(t, OutcomeHTTPFailure, res.Outcome)
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		require.False(t, res.OK())
		require.Nil(t, res.Value())
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("malformed success body is a transport failure", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			io.WriteString(w, `<html>oops</html>`)
		}))
		defer server.Close()

		res, err := newTestClient(server.URL).Submit(context.Background(), testRequest(t, true))
		require.NoError(t, err)
		require.Equal(t, OutcomeTransportFailure, res.Outcome)
		require.Contains(t, res.Message, "invalid JSON")
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("timeouts are retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				select {
				case <-time.After(500 * time.Millisecond):
				case <-r.Context().Done():
				}
				return
			}
			io.WriteString(w, `{"ok":true}`)
		}))
		defer server.Close()

		client := NewClient(Config{
			Endpoint:   server.URL,
			Timeout:    100 * time.Millisecond,
			MaxRetries: 2,
			RetryDelay: time.Millisecond,
		})
		res, err := client.Submit(context.Background(), testRequest(t, true))
		require.NoError(t, err)
		require.True(t, res.OK())
		require.Equal(t, 2, res.Attempts)
	})

	t.Run("connection failures are not retried", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		res, err := newTestClient(url).Submit(context.Background(), testRequest(t, true))
		require.NoError(t, err)
		require.Equal(t, OutcomeTransportFailure, res.Outcome)
		require.Equal(t, 1, res.Attempts)
	})

	t.Run("cancelled context returns error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{}`)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestClient(server.URL).Submit(ctx, testRequest(t, true))
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid requests are rejected before sending", func(t *testing.T) {
		client := newTestClient("http://127.0.0.1:1")

		_, err := client.Submit(context.Background(), &Request{Credentials: Credentials{APIKey: "k", AppID: "a"}})
		require.True(t, errors.Is(err, ErrNoFiles))

		req := testRequest(t, true)
		req.Credentials.AppID = "  "
		_, err = client.Submit(context.Background(), req)
		require.ErrorIs(t, err, ErrMissingCredentials)
	})
}
