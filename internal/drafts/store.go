package drafts

import (
	"sync"
	"time"
)

// DefaultTTL is the draft retention window when none is configured.
const DefaultTTL = 30 * time.Minute

// Store holds draft sessions between the propose and apply phases.
type Store interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
	Close()
}

type storeEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore is an in-memory session store with TTL eviction. Expired
// sessions are dropped lazily on access and swept periodically by a
// background janitor.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]storeEntry
	done     chan struct{}
	closed   sync.Once
}

// NewMemoryStore creates a store that evicts sessions ttl after their
// last Put. Close must be called to stop the janitor.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := newMemoryStore(ttl, time.Now)
	go s.sweepRoutine(sweepInterval(ttl))
	return s
}

// newMemoryStore builds a store without starting the janitor. Tests
// use it with a fake clock and call sweep directly.
func newMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		now:      now,
		sessions: make(map[string]storeEntry),
		done:     make(chan struct{}),
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

// Put stores a session, resetting its expiry.
func (s *MemoryStore) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = storeEntry{
		session:   session,
		expiresAt: s.now().Add(s.ttl),
	}
}

// Get returns a live session. Expired sessions are evicted and
// reported as absent.
func (s *MemoryStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.sessions, id)
		return nil, false
	}
	return entry.session, true
}

// Delete removes a session.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() {
	s.closed.Do(func() { close(s.done) })
}

// sweepRoutine periodically removes expired sessions.
func (s *MemoryStore) sweepRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

// sweep removes every expired session.
func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, id)
		}
	}
}
