package session

import "sync"

// keyedMutex hands out one mutex per session id so appends for the same
// session serialize while distinct sessions proceed fully in parallel.
// Entries are retained for the life of the store; the population is bounded
// by the session count and reclaimed wholesale when the store is dropped.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
