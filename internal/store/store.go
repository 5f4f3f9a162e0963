// Package store provides storage backends for InterviewPipe sessions and
// interview results.
//
// Three backends share one interface: an in-memory store for tests and
// ephemeral deployments, an SQLite store for single-node installs, and a
// PostgreSQL store for shared deployments.
package store

import (
	"sort"
	"sync"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

// Store is the persistence interface the engine and API depend on.
// Sessions are stored as whole documents: the engine mutates an
// in-process session and saves it after each turn.
type Store interface {
	// SaveSession inserts or replaces the session document.
	SaveSession(s *models.Session) error
	// GetSession loads a session by ID. Returns models.ErrSessionNotFound
	// when no session with that ID exists.
	GetSession(id string) (*models.Session, error)
	// ListSessions returns all sessions ordered by creation time.
	ListSessions() ([]*models.Session, error)
	// DeleteSession removes a session document.
	DeleteSession(id string) error
	// SaveResult persists the final interview result for a session.
	SaveResult(r models.InterviewResult) error
	// GetResult loads the interview result for a session. Returns
	// models.ErrResultNotFound when the session has not concluded.
	GetResult(sessionID string) (*models.InterviewResult, error)
	// Close releases backend resources.
	Close() error
}

// Opts holds configuration applied via functional options.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithDSN sets the backend connection string: a file path for SQLite, a
// connection URL for PostgreSQL.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore keeps sessions and results in process memory. Safe for
// concurrent use; contents are lost on restart.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	results  map[string]models.InterviewResult
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*models.Session),
		results:  make(map[string]models.InterviewResult),
	}
}

// SaveSession stores a deep copy so later engine mutations do not leak
// into the stored document.
func (s *InMemoryStore) SaveSession(sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Snapshot()
	return nil
}

// GetSession returns a deep copy of the stored session.
func (s *InMemoryStore) GetSession(id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return sess.Snapshot(), nil
}

// ListSessions returns copies of all sessions ordered by creation time.
func (s *InMemoryStore) ListSessions() ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteSession removes the session and any stored result.
func (s *InMemoryStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return models.ErrSessionNotFound
	}
	delete(s.sessions, id)
	delete(s.results, id)
	return nil
}

// SaveResult stores the final interview result.
func (s *InMemoryStore) SaveResult(r models.InterviewResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.SessionID] = r
	return nil
}

// GetResult returns the stored result for the session.
func (s *InMemoryStore) GetResult(sessionID string) (*models.InterviewResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[sessionID]
	if !ok {
		return nil, models.ErrResultNotFound
	}
	return &r, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
