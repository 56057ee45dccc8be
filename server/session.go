package server

import (
	"errors"
	"log"
	"slices"
	"sync"
	"time"

	"kuanb/indoor-router/indoor"
	"kuanb/indoor-router/matching"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// ErrSessionNotFound is returned for unknown or closed session ids
var ErrSessionNotFound = errors.New("session not found")

// Session is one online HMM matcher fed point by point
type Session struct {
	ID      uuid.UUID
	Created time.Time

	mu      sync.Mutex
	matcher *matching.HMMMatcher
	updated time.Time
}

// SessionState is a snapshot of a session
type SessionState struct {
	Results []indoor.CellIndex
	History []indoor.CellIndex
	Decoded []indoor.CellIndex
	Updated time.Time
}

// Push matches the points in order and returns their cells
func (s *Session) Push(points []orb.Point) []indoor.CellIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]indoor.CellIndex, len(points))
	for i, p := range points {
		out[i] = s.matcher.Next(p)
	}
	s.updated = time.Now()
	return out
}

// State returns the matched results and the Viterbi path over the history
func (s *Session) State() (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SessionState{
		Results: slices.Clone(s.matcher.Results()),
		History: slices.Clone(s.matcher.History()),
		Updated: s.updated,
	}
	if len(st.History) > 0 {
		decoded, err := s.matcher.Decode()
		if err != nil {
			return st, err
		}
		st.Decoded = decoded
	}
	return st, nil
}

// matcherFactory builds HMM matchers over matrices computed on first use
// and shared by every matcher of the server
type matcherFactory struct {
	building *indoor.Building
	opts     matching.Options

	once sync.Once
	pre  *matching.Precomputed
	err  error
}

func (f *matcherFactory) NewMatcher() (*matching.HMMMatcher, error) {
	f.once.Do(func() {
		start := time.Now()
		f.pre, f.err = matching.NewPrecomputed(f.building, f.opts)
		if f.err == nil {
			log.Printf("[server] matcher matrices for %d cells ready in %v", f.building.Len(), time.Since(start))
		}
	})
	if f.err != nil {
		return nil, f.err
	}
	return f.pre.NewMatcher(), nil
}

// SessionStore keeps the open sessions of a building
type SessionStore struct {
	matchers *matcherFactory

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionStore creates an empty store whose sessions match against b
func NewSessionStore(b *indoor.Building, opts matching.Options) *SessionStore {
	return newSessionStore(&matcherFactory{building: b, opts: opts})
}

func newSessionStore(f *matcherFactory) *SessionStore {
	return &SessionStore{
		matchers: f,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create opens a session with a fresh matcher
func (st *SessionStore) Create() (*Session, error) {
	m, err := st.matchers.NewMatcher()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s := &Session{
		ID:      uuid.New(),
		Created: now,
		matcher: m,
		updated: now,
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s, nil
}

// Get returns the session with the given id
func (st *SessionStore) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete closes a session
func (st *SessionStore) Delete(id uuid.UUID) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

// Expire closes sessions not updated since before cutoff and returns how many
func (st *SessionStore) Expire(cutoff time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	var n int
	for id, s := range st.sessions {
		s.mu.Lock()
		stale := s.updated.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of open sessions
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
