package session

import (
	"sync"
	"time"
)

// Registry keeps the live session handles for the process. Handles are never
// persisted; a handle that goes untouched for the idle TTL is evicted, and the
// visitor starts a fresh session. The transcript rows outlive the handle.
type Registry struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	sess     *Session
	lastSeen time.Time
}

// NewRegistry returns an empty registry evicting handles idle longer than ttl.
// A non-positive ttl disables eviction.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		ttl:     ttl,
		entries: make(map[string]*registryEntry),
	}
}

// Add stores a handle under its session id and sweeps expired entries.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.sweepLocked(now)
	r.entries[s.ID] = &registryEntry{sess: s, lastSeen: now}
}

// Get looks up a live handle, refreshing its idle clock on a hit. An expired
// handle is treated as a miss and removed.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}

	now := time.Now()
	if r.expired(entry, now) {
		delete(r.entries, id)
		return nil, false
	}

	entry.lastSeen = now
	return entry.sess, true
}

func (r *Registry) sweepLocked(now time.Time) {
	for id, entry := range r.entries {
		if r.expired(entry, now) {
			delete(r.entries, id)
		}
	}
}

func (r *Registry) expired(entry *registryEntry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(entry.lastSeen) > r.ttl
}
