package lifecycle

import "sync"

// Locks serializes workflows per store; different stores never wait on each other.
type Locks struct {
	mu    sync.Mutex
	locks map[uint64]*storeLock
}

type storeLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[uint64]*storeLock)}
}

// Lock blocks until the store is free and returns the unlock func.
func (l *Locks) Lock(storeID uint64) func() {
	l.mu.Lock()
	lock, ok := l.locks[storeID]
	if !ok {
		lock = &storeLock{}
		l.locks[storeID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, storeID)
		}
		l.mu.Unlock()
	}
}

func (l *Locks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
