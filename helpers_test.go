package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"csvchat/internal/config"
	"csvchat/internal/dataset"
	"csvchat/internal/nl2sql"
)

// fakeTranslator returns canned SQL per request without calling a model.
type fakeTranslator struct {
	mu    sync.Mutex
	calls int
	sql   map[string]string
	err   error
}

func (f *fakeTranslator) Translate(_ context.Context, req nl2sql.Request) (nl2sql.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nl2sql.Result{}, f.err
	}
	sql, ok := f.sql[req.NaturalLanguage]
	if !ok {
		sql = "SELECT * FROM data"
	}
	return nl2sql.Result{SQL: sql, Provider: "fake", Model: "fake-1"}, nil
}

func (f *fakeTranslator) factory() nl2sql.Factory {
	return func(apiKey string) (nl2sql.Translator, error) {
		if apiKey == "" {
			return nil, errors.New("API key is required")
		}
		return f, nil
	}
}

// testConfig returns defaults with renaming and the preview skip disabled so
// small fixtures can be used as is.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg.LLM.APIKey = ""
	cfg.Dataset.Rename = dataset.RenameNone
	cfg.Dataset.PreviewSkip = 0
	cfg.Server.SessionSecret = "test-secret-key-32-bytes-long!!"
	return cfg
}

// SetupTestServer starts the full router with a fake translator.
func SetupTestServer(t *testing.T, tr *fakeTranslator) (*httptest.Server, *Server) {
	t.Helper()

	s, err := NewServer(testConfig(t), nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	s.pipeline.Factory = tr.factory()

	ts := httptest.NewServer(s.Routes())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts, s
}

// newClient returns a client that keeps the session cookie.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func postForm(t *testing.T, c *http.Client, target string, values url.Values) string {
	t.Helper()
	resp, err := c.PostForm(target, values)
	if err != nil {
		t.Fatalf("POST %s failed: %v", target, err)
	}
	return readBody(t, resp)
}

func uploadCSV(t *testing.T, c *http.Client, target, name, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := io.Copy(fw, strings.NewReader(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	resp, err := c.Post(target, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload to %s failed: %v", target, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(body)
}
