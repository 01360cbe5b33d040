package selectctx

import "sync"

// Subscription is the per-consumer state machine that decides, on every
// notification, whether its consumer must reconcile and re-render or may
// bail out. One Subscription exists per UseSelector hook per mounted
// consumer; it holds no state across mount cycles.
//
// The committed state is mutated only on the render channel. Notifications
// run the reducer purely to decide scheduling, so a discarded render leaves
// no externally visible trace.
type Subscription[T, S any] struct {
	id       uint64
	cell     *Cell[T]
	listener Listener

	mu       sync.Mutex
	selector func(T) S
	state    *subState[T, S]
	version  Version // cell version incorporated by the last render read
	unsub    func()
}

func newSubscription[T, S any](cell *Cell[T], listener Listener, selector func(T) S) *Subscription[T, S] {
	return &Subscription[T, S]{
		id:       nextID(),
		cell:     cell,
		listener: listener,
		selector: selector,
		version:  VersionInitial,
	}
}

// RenderRead applies the selector to the cell's current value synchronously
// during render and returns the current selection. A selector panic here
// propagates: at render time the consumer supplied the selector for the
// value it is rendering, so a panic is a caller bug.
func (s *Subscription[T, S]) RenderRead() S {
	value, version := s.cell.Snapshot()

	s.mu.Lock()
	selector := s.selector
	s.mu.Unlock()

	selected := selector(value)

	s.mu.Lock()
	defer s.mu.Unlock()

	next, action := reduce(s.state, subEvent[T, S]{
		kind:         eventRender,
		version:      version,
		localVersion: s.version,
		value:        value,
		selected:     selected,
		selectorOK:   true,
	})
	s.state = next
	s.version = version

	if action == actionAdopt {
		s.cell.observer().ConsumerRendered(s.cell)
	}
	return next.selected
}

// Notify is the cell-side notification callback. It evaluates the
// transition and, unless the reducer bails out, marks the consumer dirty.
func (s *Subscription[T, S]) Notify(n Notification[T]) {
	ev := subEvent[T, S]{
		kind:     eventNotify,
		version:  n.Version,
		hasValue: n.HasValue,
	}

	s.mu.Lock()
	ev.localVersion = s.version
	selector := s.selector
	state := s.state
	s.mu.Unlock()

	if n.HasValue && n.Version > ev.localVersion {
		ev.value = n.Value
	} else {
		// Stale or version-only notification: reconcile against the cell's
		// current value instead.
		ev.value, _ = s.cell.Snapshot()
	}
	ev.selected, ev.selectorOK = safeSelect(s.cell, selector, ev.value, n.Version)

	_, action := reduce(state, ev)
	if action == actionBail {
		return
	}
	s.listener.MarkDirty()
}

// ShouldRender reports whether a scheduled pass must re-invoke the
// consumer's render function. It is the render-time half of the bail-out
// check: a forced phase-1 wakeup whose value settles unchanged costs no
// render.
func (s *Subscription[T, S]) ShouldRender() bool {
	value, version := s.cell.Snapshot()

	s.mu.Lock()
	selector := s.selector
	state := s.state
	s.mu.Unlock()

	selected, ok := safeSelect(s.cell, selector, value, version)
	if !ok {
		return true
	}
	if state != nil && (identical(state.value, value) || identical(state.selected, selected)) {
		s.cell.observer().ConsumerBailedOut(s.cell)
		return false
	}
	return true
}

// setSelector swaps in the selector closure supplied by the current render.
func (s *Subscription[T, S]) setSelector(selector func(T) S) {
	s.mu.Lock()
	s.selector = selector
	s.mu.Unlock()
}

// attach registers the notification callback. Called from a post-commit
// effect so the initial read and the attachment cannot race against an
// update that started mid-render.
func (s *Subscription[T, S]) attach() {
	if s.unsub != nil {
		return
	}
	s.unsub = s.cell.Subscribe(s.Notify)
}

// detach removes the notification callback; safe to call repeatedly.
func (s *Subscription[T, S]) detach() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

// safeSelect applies the selector, converting a panic (typically a stale
// closure applied to a newly committed value) into "selection unknown".
// The recovery is silent toward the consumer; the observer hook records it.
func safeSelect[T, S any](cell *Cell[T], selector func(T) S, value T, version Version) (selected S, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			cell.observer().SelectorRecovered(cell, version)
		}
	}()
	selected = selector(value)
	ok = true
	return
}
