// Package keylock provides mutual exclusion scoped to a string key.
package keylock

import "sync"

// KeyedMutex serializes work per key. Operations on different keys never
// contend. Mutexes are created on first use and kept for the life of the
// process; the key space (instrument symbols) is small and bounded.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns the function releasing it.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
