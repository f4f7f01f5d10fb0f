package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"csvchat/internal/dataset"
	"csvchat/internal/history"
	"csvchat/internal/observability"
	"csvchat/internal/pipeline"
	"csvchat/internal/session"
	"csvchat/internal/store"
)

// APIHandler handles JSON API requests
type APIHandler struct {
	server *Server
}

// DatasetInfo describes the uploaded dataset.
type DatasetInfo struct {
	Name    string       `json:"name"`
	Table   string       `json:"table"`
	Rows    int          `json:"rows"`
	Columns []ColumnInfo `json:"columns"`
	Schema  string       `json:"schema"`
}

// ColumnInfo is a column name and its inferred type.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SessionInfo is the JSON view of a chat session.
type SessionInfo struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	HasAPIKey bool         `json:"has_api_key"`
	Dataset   *DatasetInfo `json:"dataset,omitempty"`
	History   int          `json:"history"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query  string `json:"query"`
	APIKey string `json:"api_key,omitempty"`
}

func newDatasetInfo(d *dataset.Dataset) *DatasetInfo {
	if d == nil {
		return nil
	}
	columns := make([]ColumnInfo, len(d.Columns))
	for i, c := range d.Columns {
		columns[i] = ColumnInfo{Name: c.Name, Type: c.TypeName()}
	}
	return &DatasetInfo{
		Name:    d.Name,
		Table:   store.TableName,
		Rows:    d.RowCount(),
		Columns: columns,
		Schema:  dataset.Summarize(d),
	}
}

func newSessionInfo(sess *session.Session) SessionInfo {
	return SessionInfo{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		HasAPIKey: sess.APIKey() != "",
		Dataset:   newDatasetInfo(sess.Dataset()),
		History:   sess.History().Len(),
	}
}

// session resolves the request's session, writing a 404 when the
// X-Session-ID header names an unknown session.
func (h *APIHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.server.apiSession(w, r)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{
				"error": "Session not found",
			})
			return nil, false
		}
		h.server.logger.Error("Session lookup failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
		return nil, false
	}
	return sess, true
}

// GetSession returns the current session, creating one if needed.
func (h *APIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newSessionInfo(sess))
}

// DeleteSession discards the session named by the X-Session-ID header.
func (h *APIHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "X-Session-ID header is required",
		})
		return
	}
	if err := h.server.sessions.Delete(id); err != nil {
		respondJSON(w, http.StatusNotFound, map[string]string{
			"error": "Session not found",
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload loads a CSV into the session.
func (h *APIHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	d, err := h.server.uploadFromRequest(w, r, sess)
	observability.ObserveUpload(err == nil)
	if err != nil {
		h.server.logger.Warn("CSV upload failed", "session", sess.ID, "error", err)
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Failed to load CSV: " + err.Error(),
		})
		return
	}
	h.server.logger.Info("CSV uploaded", "session", sess.ID, "file", d.Name, "rows", d.RowCount())
	respondJSON(w, http.StatusOK, newSessionInfo(sess))
}

// Query runs one natural-language request through the pipeline.
func (h *APIHandler) Query(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid JSON body",
		})
		return
	}
	if req.APIKey != "" {
		sess.SetAPIKey(req.APIKey)
	}

	reply, err := h.server.pipeline.Submit(r.Context(), sess, req.Query)
	if err != nil {
		h.server.logger.Error("Submit failed", "session", sess.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
		return
	}
	respondJSON(w, replyStatus(reply.Status), reply)
}

// replyStatus maps a submission outcome to an HTTP status code.
func replyStatus(s pipeline.Status) int {
	switch s {
	case pipeline.StatusNoDataset:
		return http.StatusBadRequest
	case pipeline.StatusNoAPIKey:
		return http.StatusUnauthorized
	case pipeline.StatusGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

// History returns the session transcript in order.
func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	entries := sess.History().Entries()
	if entries == nil {
		entries = []history.Entry{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// Schema returns the schema description sent to the generator.
func (h *APIHandler) Schema(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	info := newDatasetInfo(sess.Dataset())
	if info == nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": pipeline.NoticeNoDataset,
		})
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// respondJSON is a helper function to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		if logger != nil {
			logger.Error("JSON encoding error", "error", err)
		}
	}
}
