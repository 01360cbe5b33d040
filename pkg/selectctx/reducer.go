package selectctx

// The consumer-side bail-out logic is a pure state machine with two input
// channels: render-time reads and async notifications. Subscription
// normalizes both into a subEvent (resolving cell reads and running the
// selector up front) so reduce itself stays pure and testable without a
// rendering engine.

// subState is the value/selection pair a consumer last committed to its own
// render. It is private to the consumer and recomputed only by the reducer,
// never by the producer. State identity matters: a forced transition
// produces a reference-distinct subState with unchanged contents.
type subState[T, S any] struct {
	value    T
	selected S
}

type eventKind uint8

const (
	// eventRender is a fresh synchronous read during the consumer's render.
	eventRender eventKind = iota + 1

	// eventNotify is an async notification from the cell's broadcaster.
	eventNotify
)

// subEvent is one normalized input to the state machine.
type subEvent[T, S any] struct {
	kind eventKind

	// version is the cell version at read time (render) or the
	// notification's version (notify).
	version Version

	// localVersion is the version the subscription last incorporated
	// through a render-time read.
	localVersion Version

	// hasValue marks a phase-2 notification carrying a committed value.
	hasValue bool

	// value and selected are the candidate pair. selected is valid only
	// when selectorOK is true; a false selectorOK means the selector
	// panicked against value (stale closure) and the selection is unknown.
	value      T
	selected   S
	selectorOK bool
}

// subAction is the scheduling consequence of a transition.
type subAction uint8

const (
	// actionBail keeps the previous state; no re-render is needed.
	actionBail subAction = iota

	// actionAdopt adopts the candidate value/selection pair.
	actionAdopt

	// actionForce keeps the current contents but produces a
	// reference-distinct state, forcing a re-render so the consumer can
	// find out whether a real change is coming.
	actionForce
)

// reduce is the transition function. Equality throughout is reference
// identity only.
func reduce[T, S any](prev *subState[T, S], ev subEvent[T, S]) (*subState[T, S], subAction) {
	switch ev.kind {
	case eventRender:
		if bailsOut(prev, ev) {
			return prev, actionBail
		}
		return &subState[T, S]{value: ev.value, selected: ev.selected}, actionAdopt

	case eventNotify:
		if ev.version <= ev.localVersion {
			// Not newer information than what render already incorporated;
			// the candidate here is the cell's current value.
			if bailsOut(prev, ev) {
				return prev, actionBail
			}
			return &subState[T, S]{value: ev.value, selected: ev.selected}, actionAdopt
		}

		if ev.hasValue {
			if !ev.selectorOK {
				// Stale selector: selection unknown, re-render to find out.
				return forced(prev, ev), actionForce
			}
			if bailsOut(prev, ev) {
				return prev, actionBail
			}
			return &subState[T, S]{value: ev.value, selected: ev.selected}, actionAdopt
		}

		// Phase 1: a change is in flight. The consumer cannot yet know
		// whether a real change follows, so schedule unconditionally.
		return forced(prev, ev), actionForce
	}

	return prev, actionBail
}

// bailsOut reports whether the candidate pair is reference-identical to the
// previous state in either component.
func bailsOut[T, S any](prev *subState[T, S], ev subEvent[T, S]) bool {
	if prev == nil || !ev.selectorOK {
		return false
	}
	return identical(prev.value, ev.value) || identical(prev.selected, ev.selected)
}

// forced builds a reference-distinct state. It carries the previous
// contents when available, otherwise the candidate read taken at
// notification time.
func forced[T, S any](prev *subState[T, S], ev subEvent[T, S]) *subState[T, S] {
	if prev != nil {
		return &subState[T, S]{value: prev.value, selected: prev.selected}
	}
	return &subState[T, S]{value: ev.value, selected: ev.selected}
}
