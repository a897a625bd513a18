package service

import (
	"sync"

	"github.com/Harshitk-cp/mastery/internal/domain"
)

// TrackLocker serialises read-modify-write cycles on the same track while
// leaving different tracks free to proceed in parallel.
type TrackLocker struct {
	mu    sync.Mutex
	locks map[domain.TrackKey]*trackLock
}

type trackLock struct {
	mu   sync.Mutex
	refs int
}

func NewTrackLocker() *TrackLocker {
	return &TrackLocker{locks: make(map[domain.TrackKey]*trackLock)}
}

// Lock blocks until key is held and returns the matching unlock function.
func (l *TrackLocker) Lock(key domain.TrackKey) func() {
	l.mu.Lock()
	tl, ok := l.locks[key]
	if !ok {
		tl = &trackLock{}
		l.locks[key] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()
	return func() {
		tl.mu.Unlock()

		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of keys currently held or waited on.
func (l *TrackLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
