package main

import (
	"errors"
	"html"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"csvchat/internal/pipeline"
)

const viewsCSV = "Views\n10\n20\n30\n"

// TestChatPageEmptySession tests the first page load
func TestChatPageEmptySession(t *testing.T) {
	ts, s := SetupTestServer(t, &fakeTranslator{})
	c := newClient(t)

	resp, err := c.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	body := readBody(t, resp)

	if !strings.Contains(body, "CSV Chat") {
		t.Error("Expected page title in body")
	}
	if !strings.Contains(body, "No questions yet.") {
		t.Error("Expected empty transcript message")
	}
	if strings.Contains(body, "Database preview") {
		t.Error("Expected no preview before upload")
	}
	if s.sessions.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", s.sessions.Count())
	}
}

// TestSessionCookieSurvivesPlainHTTP tests that repeated page loads reuse one session
func TestSessionCookieSurvivesPlainHTTP(t *testing.T) {
	ts, s := SetupTestServer(t, &fakeTranslator{})
	c := newClient(t)

	for i := 0; i < 3; i++ {
		resp, err := c.Get(ts.URL + "/")
		if err != nil {
			t.Fatalf("GET / failed: %v", err)
		}
		for _, ck := range resp.Cookies() {
			if ck.Name == s.cfg.Session.CookieName && ck.Secure {
				t.Error("Expected session cookie without Secure on plain http")
			}
		}
		readBody(t, resp)
	}
	if s.sessions.Count() != 1 {
		t.Errorf("Expected 1 session after 3 page loads, got %d", s.sessions.Count())
	}
}

func TestSecureCookiesOption(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.SecureCookies = true
	s, err := NewServer(cfg, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	defer s.Close()
	if !s.sessionStore.Options.Secure {
		t.Error("Expected Secure cookies when configured")
	}
}

// TestWebChatFlow tests key entry, upload, a question and the duplicate guard
func TestWebChatFlow(t *testing.T) {
	tr := &fakeTranslator{sql: map[string]string{
		"total views": "SELECT SUM(Views) AS total FROM data",
	}}
	ts, _ := SetupTestServer(t, tr)
	c := newClient(t)

	postForm(t, c, ts.URL+"/apikey", url.Values{"api_key": {"sk-test"}})

	body := readBody(t, uploadCSV(t, c, ts.URL+"/upload", "views.csv", viewsCSV))
	if !strings.Contains(body, "views.csv: 3 rows") {
		t.Errorf("Expected dataset summary after upload, got:\n%s", body)
	}
	if !strings.Contains(body, "Views (integer)") {
		t.Error("Expected schema description on page")
	}

	body = postForm(t, c, ts.URL+"/query", url.Values{"query": {"total views"}})
	if !strings.Contains(body, "SELECT SUM(Views) AS total FROM data") {
		t.Error("Expected generated SQL in transcript")
	}
	if !strings.Contains(body, "60") {
		t.Error("Expected query result 60 in transcript")
	}

	body = postForm(t, c, ts.URL+"/query", url.Values{"query": {"total views"}})
	if !strings.Contains(body, pipeline.NoticeDuplicate) {
		t.Error("Expected duplicate notice")
	}
	if tr.calls != 1 {
		t.Errorf("Expected 1 generation call, got %d", tr.calls)
	}

	// flashes are shown once
	resp, err := c.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	if strings.Contains(readBody(t, resp), pipeline.NoticeDuplicate) {
		t.Error("Expected notice to be consumed")
	}
}

// TestWebQueryWithoutAPIKey tests the API key gate
func TestWebQueryWithoutAPIKey(t *testing.T) {
	tr := &fakeTranslator{}
	ts, _ := SetupTestServer(t, tr)
	c := newClient(t)

	body := postForm(t, c, ts.URL+"/query", url.Values{"query": {"anything"}})
	if !strings.Contains(body, pipeline.NoticeNoDataset) {
		t.Error("Expected no-dataset notice before upload")
	}

	readBody(t, uploadCSV(t, c, ts.URL+"/upload", "views.csv", viewsCSV))
	body = postForm(t, c, ts.URL+"/query", url.Values{"query": {"anything"}})
	if !strings.Contains(body, pipeline.NoticeNoAPIKey) {
		t.Error("Expected API key notice")
	}
	if tr.calls != 0 {
		t.Errorf("Expected no generation calls, got %d", tr.calls)
	}
}

// TestWebTableRequest tests HTML table rendering for requests mentioning "table"
func TestWebTableRequest(t *testing.T) {
	ts, _ := SetupTestServer(t, &fakeTranslator{sql: map[string]string{
		"empty": "SELECT * FROM data WHERE Views > 1000",
	}})
	c := newClient(t)
	postForm(t, c, ts.URL+"/apikey", url.Values{"api_key": {"sk-test"}})
	readBody(t, uploadCSV(t, c, ts.URL+"/upload", "views.csv", viewsCSV))

	body := postForm(t, c, ts.URL+"/query", url.Values{"query": {"show me a table"}})
	if !strings.Contains(body, `class="result-table"`) {
		t.Error("Expected rendered result table")
	}

	body = postForm(t, c, ts.URL+"/query", url.Values{"query": {"empty"}})
	if !strings.Contains(body, "returned no results") {
		t.Error("Expected empty-result message")
	}
}

// TestWebGenerationFailure tests that a failed generation shows a notice
func TestWebGenerationFailure(t *testing.T) {
	ts, _ := SetupTestServer(t, &fakeTranslator{err: errors.New("model unavailable")})
	c := newClient(t)
	postForm(t, c, ts.URL+"/apikey", url.Values{"api_key": {"sk-test"}})
	readBody(t, uploadCSV(t, c, ts.URL+"/upload", "views.csv", viewsCSV))

	body := postForm(t, c, ts.URL+"/query", url.Values{"query": {"anything"}})
	if !strings.Contains(body, "Failed to generate SQL") {
		t.Error("Expected generation failure notice")
	}
	if !strings.Contains(body, "No questions yet.") {
		t.Error("Expected no transcript entry after a generation failure")
	}
}

// TestWebFilter tests the display-only preview filter
func TestWebFilter(t *testing.T) {
	ts, _ := SetupTestServer(t, &fakeTranslator{})
	c := newClient(t)
	readBody(t, uploadCSV(t, c, ts.URL+"/upload", "geo.csv", "Country,Views\nDE,1\nFR,2\nFR,3\n"))

	body := postForm(t, c, ts.URL+"/filter", url.Values{"column": {"Country"}, "value": {"FR"}})
	if !strings.Contains(body, "<td>FR</td>") {
		t.Error("Expected FR rows in preview")
	}
	if strings.Contains(body, "<td>DE</td>") {
		t.Error("Expected DE rows to be filtered out")
	}
	if !strings.Contains(body, "Showing 2 of 2 rows") {
		t.Error("Expected filtered row count")
	}

	body = postForm(t, c, ts.URL+"/filter", url.Values{"column": {""}})
	if !strings.Contains(body, "<td>DE</td>") {
		t.Error("Expected filter to be cleared")
	}
}

// TestWebUploadErrors tests that a bad upload keeps the previous dataset
func TestWebUploadErrors(t *testing.T) {
	ts, _ := SetupTestServer(t, &fakeTranslator{})
	c := newClient(t)
	readBody(t, uploadCSV(t, c, ts.URL+"/upload", "views.csv", viewsCSV))

	body := readBody(t, uploadCSV(t, c, ts.URL+"/upload", "empty.csv", ""))
	if !strings.Contains(body, "Failed to load CSV") {
		t.Error("Expected upload error notice")
	}
	if !strings.Contains(body, "views.csv: 3 rows") {
		t.Error("Expected previous dataset to remain")
	}
}

// TestWebReset tests that reset starts a fresh session
func TestWebReset(t *testing.T) {
	ts, s := SetupTestServer(t, &fakeTranslator{})
	c := newClient(t)
	readBody(t, uploadCSV(t, c, ts.URL+"/upload", "views.csv", viewsCSV))

	body := postForm(t, c, ts.URL+"/reset", nil)
	if strings.Contains(body, "views.csv") {
		t.Error("Expected dataset to be gone after reset")
	}
	if s.sessions.Count() != 1 {
		t.Errorf("Expected only the new session to be live, got %d", s.sessions.Count())
	}
}

// TestTranscriptEscapesRequest tests that user text is HTML-escaped
func TestTranscriptEscapesRequest(t *testing.T) {
	ts, _ := SetupTestServer(t, &fakeTranslator{})
	c := newClient(t)
	postForm(t, c, ts.URL+"/apikey", url.Values{"api_key": {"sk-test"}})
	readBody(t, uploadCSV(t, c, ts.URL+"/upload", "views.csv", viewsCSV))

	request := "<script>alert(1)</script>"
	body := postForm(t, c, ts.URL+"/query", url.Values{"query": {request}})
	if strings.Contains(body, request) {
		t.Error("Expected request to be escaped")
	}
	if !strings.Contains(body, html.EscapeString("<script>")) && !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Expected escaped request in transcript")
	}
}
