package drafts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is an adjustable time source for store tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(ttl time.Duration) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return newMemoryStore(ttl, clock.Now), clock
}

func TestStorePutGet(t *testing.T) {
	store, _ := newTestStore(30 * time.Minute)

	session := &Session{ID: "abc"}
	store.Put(session)

	got, ok := store.Get("abc")
	require.True(t, ok)
	assert.Same(t, session, got)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestStoreExpiryOnAccess(t *testing.T) {
	store, clock := newTestStore(30 * time.Minute)
	store.Put(&Session{ID: "abc"})

	clock.Advance(29 * time.Minute)
	_, ok := store.Get("abc")
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = store.Get("abc")
	assert.False(t, ok, "expired session should be evicted on access")
	assert.Equal(t, 0, store.Len())
}

func TestStorePutRefreshesExpiry(t *testing.T) {
	store, clock := newTestStore(30 * time.Minute)
	session := &Session{ID: "abc"}
	store.Put(session)

	clock.Advance(20 * time.Minute)
	store.Put(session)
	clock.Advance(20 * time.Minute)

	_, ok := store.Get("abc")
	assert.True(t, ok, "Put should reset the TTL window")
}

func TestStoreSweep(t *testing.T) {
	store, clock := newTestStore(10 * time.Minute)
	store.Put(&Session{ID: "old"})
	clock.Advance(11 * time.Minute)
	store.Put(&Session{ID: "fresh"})

	store.sweep()

	assert.Equal(t, 1, store.Len())
	_, ok := store.Get("fresh")
	assert.True(t, ok)
}

func TestStoreDelete(t *testing.T) {
	store, _ := newTestStore(10 * time.Minute)
	store.Put(&Session{ID: "abc"})
	store.Delete("abc")
	_, ok := store.Get("abc")
	assert.False(t, ok)
}

func TestStoreCloseIdempotent(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	store.Close()
	store.Close()
}
