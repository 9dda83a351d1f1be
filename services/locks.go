package services

import (
	"sync"
	"time"
)

type lockEntry struct {
	mu       sync.Mutex
	lastSeen time.Time
}

// keyedMutex serializes work per cart key so that concurrent mutations for
// the same cart cannot interleave between the version check and the write.
// Entries for idle carts are dropped periodically to keep the map bounded.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
	ttl   time.Duration
}

func newKeyedMutex(ttl time.Duration) *keyedMutex {
	km := &keyedMutex{
		locks: make(map[string]*lockEntry),
		ttl:   ttl,
	}

	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for range ticker.C {
			km.mu.Lock()
			now := time.Now()
			for key, e := range km.locks {
				if now.Sub(e.lastSeen) > km.ttl && e.mu.TryLock() {
					e.mu.Unlock()
					delete(km.locks, key)
				}
			}
			km.mu.Unlock()
		}
	}()

	return km
}

// Lock acquires the mutex for key and returns its unlock function.
func (km *keyedMutex) Lock(key string) func() {
	km.mu.Lock()
	e, ok := km.locks[key]
	if !ok {
		e = &lockEntry{}
		km.locks[key] = e
	}
	e.lastSeen = time.Now()
	km.mu.Unlock()

	e.mu.Lock()
	return e.mu.Unlock
}
