package selectctx

// Listener is anything that can be scheduled for a re-render when a cell it
// observes changes. Components implement it; tests substitute recorders.
type Listener interface {
	// MarkDirty notifies the listener that it must reconcile against the
	// cell on the next rendering pass.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication when a pass coalesces wakeups.
	ID() uint64
}

// Cleanup is a function registered to release a resource when a scope is
// disposed. It runs on every exit path, including component removal.
type Cleanup func()
