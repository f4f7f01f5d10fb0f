package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Manager keeps live sessions and expires them after an idle TTL.
type Manager struct {
	cache  *cache.Cache
	ttl    time.Duration
	opts   Options
	logger *slog.Logger

	// OnClose is called after a session is evicted or deleted.
	OnClose func(id string)
}

// NewManager creates a manager. A ttl <= 0 keeps sessions until deleted.
func NewManager(ttl time.Duration, opts Options, logger *slog.Logger) *Manager {
	expiration := ttl
	cleanup := ttl / 2
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}
	if cleanup > 0 && cleanup < time.Second {
		cleanup = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cache:  cache.New(expiration, cleanup),
		ttl:    expiration,
		opts:   opts,
		logger: logger,
	}
	m.cache.OnEvicted(func(id string, v interface{}) {
		sess, ok := v.(*Session)
		if !ok {
			return
		}
		if err := sess.Close(); err != nil {
			m.logger.Warn("failed to close session store", "session", id, "error", err)
		}
		m.logger.Info("session closed", "session", id)
		if m.OnClose != nil {
			m.OnClose(id)
		}
	})
	return m
}

// Create starts a new session with a random id.
func (m *Manager) Create() *Session {
	sess := New(uuid.NewString(), m.opts)
	m.cache.SetDefault(sess.ID, sess)
	m.logger.Info("session created", "session", sess.ID)
	return sess
}

// Get returns a live session and refreshes its TTL.
func (m *Manager) Get(id string) (*Session, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	sess := v.(*Session)
	m.cache.SetDefault(id, sess)
	return sess, nil
}

// GetOrCreate returns the session for id, or a fresh one if it is unknown.
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if sess, err := m.Get(id); err == nil {
			return sess, false
		}
	}
	return m.Create(), true
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	if _, ok := m.cache.Get(id); !ok {
		return ErrNotFound
	}
	m.cache.Delete(id)
	return nil
}

// TTL returns the idle expiry, or cache.NoExpiration.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Count returns the number of live sessions, expired ones included until
// the next cleanup.
func (m *Manager) Count() int {
	return m.cache.ItemCount()
}

// Flush closes every session.
func (m *Manager) Flush() {
	for id := range m.cache.Items() {
		m.cache.Delete(id)
	}
}
