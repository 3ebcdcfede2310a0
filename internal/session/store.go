// Package session keeps per-chat conversational state in memory.
package session

import (
	"sync"
	"time"

	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/navigation"
)

// Key identifies a conversation: one user in one chat.
type Key struct {
	ChatID int64
	UserID int64
}

// Session is the state of one conversation. Fields may only be touched
// between Acquire and its release.
type Session struct {
	Key     Key
	History navigation.History
	Flow    flow.State

	mu sync.Mutex

	// guarded by Store.mu
	lastSeen time.Time
	holders  int
}

// Begin replaces any active flow with st.
func (s *Session) Begin(st flow.State) {
	s.Flow = st
}

// End discards the active flow and any input it gathered.
func (s *Session) End() {
	s.Flow = nil
}

// Store maps session keys to sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[Key]*Session
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[Key]*Session),
		now:      time.Now,
	}
}

// Acquire returns the session for key, creating it if needed, and locks it
// so events of one conversation are handled one at a time. The returned
// function releases the lock.
func (s *Store) Acquire(key Key) (*Session, func()) {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = &Session{Key: key}
		s.sessions[key] = sess
	}
	sess.lastSeen = s.now()
	sess.holders++
	s.mu.Unlock()

	sess.mu.Lock()
	return sess, func() {
		sess.mu.Unlock()
		s.mu.Lock()
		sess.holders--
		sess.lastSeen = s.now()
		s.mu.Unlock()
	}
}

// Sweep forgets sessions idle for longer than maxIdle and returns how many
// were dropped. Sessions held or waited for are never dropped.
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for key, sess := range s.sessions {
		if sess.holders == 0 && sess.lastSeen.Before(cutoff) {
			delete(s.sessions, key)
			dropped++
		}
	}
	return dropped
}

// Len is the number of known sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
