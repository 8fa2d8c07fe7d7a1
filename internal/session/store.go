// Package session holds the conversation identity of a single page view.
package session

import (
	"sync"

	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/logging"
)

// Persister is the save/restore hook for sessions. Keys are page ids.
type Persister interface {
	SaveSession(key string, s domain.Session) error
	LoadSession(key string) (domain.Session, bool, error)
	DeleteSession(key string) error
}

// Store owns the Session of one page view.
type Store struct {
	key       string
	persister Persister
	log       *logging.Logger

	mu   sync.RWMutex
	sess domain.Session
}

// Option configures a Store.
type Option func(*Store)

// WithPersister enables saving and restoring the session under the store key.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

// NewStore creates an empty session store for the given page key.
func NewStore(key string, log *logging.Logger, opts ...Option) *Store {
	s := &Store{
		key: key,
		log: log.Sub("session").With("page", key),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the page key the store was created for.
func (s *Store) Key() string { return s.key }

// Restore loads a previously saved session. It reports whether one was found.
func (s *Store) Restore() (bool, error) {
	if s.persister == nil {
		return false, nil
	}
	saved, ok, err := s.persister.LoadSession(s.key)
	if err != nil || !ok {
		return false, err
	}

	s.mu.Lock()
	s.sess = saved.Clone()
	s.mu.Unlock()

	s.log.Debug().Str("sessionId", saved.SessionID).Msg("session restored")
	return true, nil
}

// Get returns a copy of the current session.
func (s *Store) Get() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Clone()
}

// Update merges a partial session. Identifiers that are already set are never
// cleared by an empty value; metadata keys are merged.
func (s *Store) Update(u domain.SessionUpdate) domain.Session {
	s.mu.Lock()
	changed := false
	if u.SessionID != nil && *u.SessionID != "" && *u.SessionID != s.sess.SessionID {
		s.sess.SessionID = *u.SessionID
		changed = true
	}
	if u.ThreadID != nil && *u.ThreadID != "" && *u.ThreadID != s.sess.ThreadID {
		s.sess.ThreadID = *u.ThreadID
		changed = true
	}
	if len(u.Metadata) > 0 {
		if s.sess.Metadata == nil {
			s.sess.Metadata = make(map[string]any, len(u.Metadata))
		}
		for k, v := range u.Metadata {
			s.sess.Metadata[k] = v
		}
		changed = true
	}
	snapshot := s.sess.Clone()
	s.mu.Unlock()

	if changed {
		s.save(snapshot)
	}
	return snapshot
}

// Reset forgets the session, as after clearing the chat history.
func (s *Store) Reset() {
	s.mu.Lock()
	s.sess = domain.Session{}
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.DeleteSession(s.key); err != nil {
			s.log.Warn().Err(err).Msg("failed to delete saved session")
		}
	}
}

func (s *Store) save(snapshot domain.Session) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveSession(s.key, snapshot); err != nil {
		s.log.Warn().Err(err).Msg("failed to save session")
	}
}
