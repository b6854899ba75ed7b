package session

import "sync"

// keyLock serializes operations per user. Every lifecycle operation is a
// read-modify-write cycle against the store; without per-key serialization,
// two concurrent requests for the same user could interleave and lose an
// accumulated-pause update. Mutex entries are retained for the process
// lifetime; the keyspace is bounded by the active user population.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLock) acquire(key string) func() {
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
