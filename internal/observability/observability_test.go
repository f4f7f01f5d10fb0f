package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvchat/internal/config"
)

func TestTraceMiddlewarePreservesIncomingTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "trace-1", TraceIDFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(traceHeader, "trace-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "trace-1", rr.Header().Get(traceHeader))
}

func TestTraceMiddlewareGeneratesTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, TraceIDFromContext(r.Context()))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rr.Header().Get(traceHeader), 36)
}

func TestTraceIDContextHelpers(t *testing.T) {
	assert.Equal(t, "", TraceIDFromContext(context.Background()))
	ctx := ContextWithTraceID(context.Background(), "abc123")
	assert.Equal(t, "abc123", TraceIDFromContext(ctx))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request served", line["msg"])
	assert.Equal(t, "INFO", line["level"])
	assert.EqualValues(t, 202, line["status"])
	assert.EqualValues(t, 2, line["bytes"])
	assert.Equal(t, "/x", line["route"])
}

func TestLoggingMiddlewareDefaultsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	silent := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	silent.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quiet", nil))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.EqualValues(t, 200, line["status"])

	buf.Reset()
	failing := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/43", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "200"))
	assert.Equal(t, before+2, after)
}

func TestDomainMetrics(t *testing.T) {
	before := testutil.ToFloat64(submissionsTotal.WithLabelValues("answered"))
	ObserveSubmission("answered")
	assert.Equal(t, before+1, testutil.ToFloat64(submissionsTotal.WithLabelValues("answered")))

	beforeErr := testutil.ToFloat64(executionErrorsTotal.WithLabelValues("syntax_error"))
	ObserveExecution("syntax_error", time.Millisecond)
	ObserveExecution("", time.Millisecond)
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(executionErrorsTotal.WithLabelValues("syntax_error")))

	beforeUp := testutil.ToFloat64(uploadsTotal.WithLabelValues("error"))
	ObserveUpload(false)
	assert.Equal(t, beforeUp+1, testutil.ToFloat64(uploadsTotal.WithLabelValues("error")))

	SetLiveSessions(-3)
	assert.Equal(t, 0.0, testutil.ToFloat64(liveSessions))
	SetLiveSessions(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(liveSessions))

	ObserveGeneration(time.Second)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LogConfig{Level: "warn", JSON: true}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "csvchat", line["service"])
	assert.Contains(t, line, "source")

	_, err = NewLogger(config.LogConfig{Level: "nope"}, io.Discard)
	assert.Error(t, err)

	text, err := NewLogger(config.LogConfig{Level: "info"}, nil)
	require.NoError(t, err)
	text.Info("discarded")
}

func TestOpenLogWriter(t *testing.T) {
	w, closeFn, err := OpenLogWriter(config.LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, w)
	assert.NoError(t, closeFn())

	path := filepath.Join(t.TempDir(), "err.log")
	w, closeFn, err = OpenLogWriter(config.LogConfig{File: path})
	require.NoError(t, err)
	_, err = w.Write([]byte("x\n"))
	require.NoError(t, err)
	assert.NoError(t, closeFn())
	assert.FileExists(t, path)
}
