// Package store holds the authoritative in-memory record for every live
// session. The store is instance-scoped: components receive an injected
// *Store so tests can run isolated instances.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lunavoice/luna/pkg/core"
	"github.com/lunavoice/luna/pkg/core/types"
)

// Store is a concurrency-safe map of live sessions.
//
// Each session carries two locks. turnMu is the per-session exclusivity
// token: a pipeline run holds it for its whole duration (including
// collaborator I/O) so two turns for the same session can never interleave.
// dataMu guards the Session value itself and is only held for the instant of
// a read or mutation, so Get never blocks behind an in-flight pipeline.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	turnMu sync.Mutex
	dataMu sync.RWMutex
	sess   *types.Session
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Create registers a new active session and returns a snapshot of it.
func (s *Store) Create(settings types.SessionSettings) *types.Session {
	now := time.Now().UTC()
	sess := &types.Session{
		ID:           uuid.NewString(),
		Settings:     settings,
		State:        types.StateActive,
		Turns:        []types.Turn{},
		CreatedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.entries[sess.ID] = &entry{sess: sess}
	s.mu.Unlock()

	return sess.Clone()
}

func (s *Store) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Get returns a snapshot of the session. It never blocks behind a pipeline
// run holding the session's exclusivity token.
func (s *Store) Get(id string) (*types.Session, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, core.NewSessionNotFoundError(id)
	}
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.sess.Clone(), nil
}

// Mutate applies fn to the session under the per-session data lock and
// returns a snapshot of the result. If fn returns an error the session is
// left as fn left it; fn must not make partial changes before failing.
func (s *Store) Mutate(id string, fn func(*types.Session) error) (*types.Session, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, core.NewSessionNotFoundError(id)
	}
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	if err := fn(e.sess); err != nil {
		return nil, err
	}
	return e.sess.Clone(), nil
}

// Delete removes the session. It reports whether a session was removed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

// Acquire takes the session's exclusivity token, blocking until any
// in-flight pipeline run for the same session finishes. The returned release
// function must be called exactly once. Acquire fails with SessionNotFound
// if the session was deleted while waiting.
func (s *Store) Acquire(id string) (release func(), err error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, core.NewSessionNotFoundError(id)
	}
	e.turnMu.Lock()

	// The session may have been purged between lookup and lock.
	if _, still := s.lookup(id); !still {
		e.turnMu.Unlock()
		return nil, core.NewSessionNotFoundError(id)
	}
	return e.turnMu.Unlock, nil
}

// TryAcquire takes the exclusivity token only if it is free. A held token
// means a pipeline run is in flight, i.e. the session is live.
func (s *Store) TryAcquire(id string) (release func(), ok bool) {
	e, found := s.lookup(id)
	if !found {
		return nil, false
	}
	if !e.turnMu.TryLock() {
		return nil, false
	}
	if _, still := s.lookup(id); !still {
		e.turnMu.Unlock()
		return nil, false
	}
	return e.turnMu.Unlock, true
}

// IdleOlderThan returns a point-in-time snapshot of the ids of sessions
// whose last activity is strictly before cutoff, regardless of state.
func (s *Store) IdleOlderThan(cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, e := range s.entries {
		e.dataMu.RLock()
		idle := e.sess.LastActivity.Before(cutoff)
		e.dataMu.RUnlock()
		if idle {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
