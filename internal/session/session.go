// Package session holds per-user chat state: the uploaded dataset, its
// store, the transcript and the pending-request marker.
package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"csvchat/internal/dataset"
	"csvchat/internal/history"
	"csvchat/internal/store"
)

// Opener creates an empty store for a new upload.
type Opener func() (store.Store, error)

// Options configure new sessions.
type Options struct {
	Opener      Opener
	Renamer     dataset.Renamer
	PreviewSkip int
}

// Session is one user's chat. Submissions are serialized with Lock/Unlock;
// the accessors are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	submit sync.Mutex

	mu      sync.RWMutex
	opts    Options
	data    *dataset.Dataset
	store   store.Store
	apiKey  string
	pending string
	history history.History
	closed  bool
}

// New returns an empty session.
func New(id string, opts Options) *Session {
	if opts.Opener == nil {
		opts.Opener = func() (store.Store, error) { return store.Open(store.EngineDuckDB) }
	}
	return &Session{ID: id, CreatedAt: time.Now(), opts: opts}
}

// Lock serializes submissions for this session.
func (s *Session) Lock() { s.submit.Lock() }

// Unlock releases Lock.
func (s *Session) Unlock() { s.submit.Unlock() }

// Upload parses a CSV stream, renames its columns and replaces the session's
// dataset and store. On error the previous dataset and store stay in place.
// The swap waits for an in-flight submission to finish.
func (s *Session) Upload(ctx context.Context, name string, r io.Reader) (*dataset.Dataset, error) {
	d, err := dataset.LoadCSV(name, r)
	if err != nil {
		return nil, err
	}
	if err := s.opts.Renamer.Apply(d); err != nil {
		return nil, err
	}

	st, err := s.opts.Opener()
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := st.Load(ctx, d); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	s.submit.Lock()
	defer s.submit.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = st.Close()
		return nil, fmt.Errorf("session %s is closed", s.ID)
	}
	old := s.store
	s.data = d
	s.store = st
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return d, nil
}

// Dataset returns the current dataset, or nil before the first upload.
func (s *Session) Dataset() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Store returns the current store, or nil before the first upload.
func (s *Session) Store() store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// SetAPIKey stores the key used for this session's generation calls.
func (s *Session) SetAPIKey(key string) {
	s.mu.Lock()
	s.apiKey = key
	s.mu.Unlock()
}

// APIKey returns the session's key.
func (s *Session) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey
}

// Pending returns the most recently submitted request text. It starts empty.
func (s *Session) Pending() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// SetPending replaces the pending-request marker and returns the old value.
func (s *Session) SetPending(request string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.pending
	s.pending = request
	return prev
}

// History returns the session transcript.
func (s *Session) History() *history.History {
	return &s.history
}

// Preview returns the dataset without its first PreviewSkip rows.
func (s *Session) Preview() *dataset.Dataset {
	d := s.Dataset()
	if d == nil {
		return nil
	}
	return d.Slice(s.opts.PreviewSkip, 0)
}

// Filter returns the preview rows where column equals value. It never
// touches the store.
func (s *Session) Filter(column, value string) (*dataset.Dataset, error) {
	p := s.Preview()
	if p == nil {
		return nil, fmt.Errorf("no dataset uploaded")
	}
	if column == "" {
		return p, nil
	}
	return p.Filter(column, value)
}

// Close releases the store. Later uploads fail.
func (s *Session) Close() error {
	s.mu.Lock()
	st := s.store
	s.store = nil
	s.closed = true
	s.mu.Unlock()
	if st != nil {
		return st.Close()
	}
	return nil
}
