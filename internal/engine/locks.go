package engine

import "sync"

// keyedMutex hands out one RWMutex per key, created on first use.
type keyedMutex struct {
	mu    sync.RWMutex
	locks map[string]*sync.RWMutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.RWMutex)}
}

func (k *keyedMutex) get(key string) *sync.RWMutex {
	k.mu.RLock()
	m, ok := k.locks[key]
	k.mu.RUnlock()
	if ok {
		return m
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	// Double-check after acquiring write lock.
	if m, ok := k.locks[key]; ok {
		return m
	}
	m = &sync.RWMutex{}
	k.locks[key] = m
	return m
}

// Lock locks key exclusively and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	m := k.get(key)
	m.Lock()
	return m.Unlock
}

// RLock locks key for shared use and returns its unlock func.
func (k *keyedMutex) RLock(key string) func() {
	m := k.get(key)
	m.RLock()
	return m.RUnlock
}
