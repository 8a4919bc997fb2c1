// Package sessionlock provides per-key mutual exclusion so turns for the
// same session run strictly in arrival order while distinct sessions stay
// independent.
package sessionlock

import "sync"

type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *Locker {
	return &Locker{
		locks: make(map[string]*entry),
	}
}

// Lock acquires the mutex for key, blocking while another holder has it.
func (l *Locker) Lock(key string) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key and drops the entry once nobody waits
// on it, so idle sessions do not accumulate.
func (l *Locker) Unlock(key string) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if ok {
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
	}
	l.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}
