// Package syncx provides small concurrency helpers shared by the agent
// components.
package syncx

import "sync"

// KeyMutex serializes operations per string key. It backs the per-URL merge
// discipline of the visit aggregator and the per-item queue discipline of
// the sync engine: two goroutines holding different keys proceed in
// parallel, two holding the same key take turns.
//
// Mutexes are created on first use and kept for the lifetime of the
// KeyMutex; the key space here (canonical URLs seen this session) is small
// enough that no eviction is needed.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyMutex returns an empty KeyMutex.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it if needed.
func (k *KeyMutex) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
}

// Unlock releases the mutex for key. Unlocking a key that was never locked
// panics, same as sync.Mutex.
func (k *KeyMutex) Unlock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	k.mu.Unlock()

	if !ok {
		panic("syncx: unlock of unknown key " + key)
	}
	m.Unlock()
}
