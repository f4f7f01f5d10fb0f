package main

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/sessions"

	"csvchat/internal/dataset"
	"csvchat/internal/observability"
	"csvchat/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// previewLimit caps the rows rendered in the database preview.
const previewLimit = 200

const (
	filterColumnKey = "filter_column"
	filterValueKey  = "filter_value"
)

// WebHandler serves the browser chat page and its form posts.
type WebHandler struct {
	server    *Server
	templates *template.Template
}

// NewWebHandler creates a WebHandler with parsed templates
func NewWebHandler(s *Server) *WebHandler {
	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		// go-pretty already escapes cell text in rendered tables
		"safeHTML":    func(s string) template.HTML { return template.HTML(s) },
		"formatValue": dataset.FormatValue,
	}).ParseFS(templateFS, "templates/*.html"))
	return &WebHandler{server: s, templates: tmpl}
}

// ChatPage renders the chat transcript, upload form and data preview.
func (h *WebHandler) ChatPage(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.server.browserSession(r)

	var notices []string
	for _, f := range cs.Flashes() {
		if msg, ok := f.(string); ok {
			notices = append(notices, msg)
		}
	}

	data := map[string]interface{}{
		"Title":     "CSV Chat",
		"SessionID": sess.ID,
		"HasAPIKey": sess.APIKey() != "",
		"Engine":    h.server.cfg.Store.Engine,
		"Entries":   sess.History().Entries(),
		"Notices":   notices,
	}

	if d := sess.Dataset(); d != nil {
		column, _ := cs.Values[filterColumnKey].(string)
		value, _ := cs.Values[filterValueKey].(string)

		preview, err := sess.Filter(column, value)
		if err != nil {
			notices = append(notices, fmt.Sprintf("Filter ignored: %v", err))
			data["Notices"] = notices
			column, value = "", ""
			preview = sess.Preview()
		}
		data["Dataset"] = d
		data["Schema"] = dataset.Summarize(d)
		data["Preview"] = preview.Slice(0, previewLimit)
		data["PreviewTotal"] = preview.RowCount()
		data["FilterColumn"] = column
		data["FilterValue"] = value
		if column != "" {
			data["FilterValues"] = sess.Preview().DistinctValues(column)
		}
	}

	h.saveCookie(w, r, cs)
	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.server.logger.Error("Template error", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Upload replaces the session's dataset with the posted CSV file.
func (h *WebHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.server.browserSession(r)

	d, err := h.server.uploadFromRequest(w, r, sess)
	observability.ObserveUpload(err == nil)
	if err != nil {
		h.server.logger.Warn("CSV upload failed", "session", sess.ID, "error", err)
		cs.AddFlash(fmt.Sprintf("Failed to load CSV: %v", err))
	} else {
		h.server.logger.Info("CSV uploaded", "session", sess.ID, "file", d.Name, "rows", d.RowCount(), "columns", len(d.Columns))
		delete(cs.Values, filterColumnKey)
		delete(cs.Values, filterValueKey)
	}
	h.redirectHome(w, r, cs)
}

// Query submits a natural-language request through the pipeline.
func (h *WebHandler) Query(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	sess, cs := h.server.browserSession(r)

	reply, err := h.server.pipeline.Submit(r.Context(), sess, r.FormValue("query"))
	if err != nil {
		h.server.logger.Error("Submit failed", "session", sess.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if reply.Notice != "" {
		cs.AddFlash(reply.Notice)
	}
	h.redirectHome(w, r, cs)
}

// APIKey stores the user's inference API key on the session.
func (h *WebHandler) APIKey(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	sess, cs := h.server.browserSession(r)
	sess.SetAPIKey(r.FormValue("api_key"))
	h.redirectHome(w, r, cs)
}

// Filter narrows the database preview. It never touches the store.
func (h *WebHandler) Filter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	_, cs := h.server.browserSession(r)
	column := r.FormValue("column")
	if column == "" {
		delete(cs.Values, filterColumnKey)
		delete(cs.Values, filterValueKey)
	} else {
		cs.Values[filterColumnKey] = column
		cs.Values[filterValueKey] = r.FormValue("value")
	}
	h.redirectHome(w, r, cs)
}

// Reset discards the session and starts over.
func (h *WebHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess, cs := h.server.browserSession(r)
	if err := h.server.sessions.Delete(sess.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
		h.server.logger.Error("Failed to delete session", "session", sess.ID, "error", err)
	}
	for k := range cs.Values {
		delete(cs.Values, k)
	}
	h.redirectHome(w, r, cs)
}

func (h *WebHandler) redirectHome(w http.ResponseWriter, r *http.Request, cs *sessions.Session) {
	h.saveCookie(w, r, cs)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *WebHandler) saveCookie(w http.ResponseWriter, r *http.Request, cs *sessions.Session) {
	if err := cs.Save(r, w); err != nil {
		h.server.logger.Error("Failed to save session cookie", "error", err)
	}
}
