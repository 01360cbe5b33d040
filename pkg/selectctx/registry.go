package selectctx

import "sync"

// subscriber is one registered notification callback.
type subscriber[T any] struct {
	id uint64
	fn func(Notification[T])
}

// subscriberList is a cell's listener registry. Insertion order is
// irrelevant; it is mutated only by subscribe/unsubscribe and read through
// membership snapshots so no lock is held during notification.
type subscriberList[T any] struct {
	mu   sync.RWMutex
	subs []subscriber[T]
}

// add registers a callback and returns its registration ID.
func (l *subscriberList[T]) add(fn func(Notification[T])) uint64 {
	id := nextID()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, subscriber[T]{id: id, fn: fn})
	return id
}

// remove unregisters a callback. Removal is idempotent.
func (l *subscriberList[T]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, s := range l.subs {
		if s.id == id {
			// Swap with last element; order doesn't matter.
			l.subs[i] = l.subs[len(l.subs)-1]
			l.subs = l.subs[:len(l.subs)-1]
			return
		}
	}
}

// snapshot copies the current membership. Listeners added during an
// in-progress broadcast are not part of that broadcast.
func (l *subscriberList[T]) snapshot() []subscriber[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	subs := make([]subscriber[T], len(l.subs))
	copy(subs, l.subs)
	return subs
}

// size returns the current membership count.
func (l *subscriberList[T]) size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs)
}
