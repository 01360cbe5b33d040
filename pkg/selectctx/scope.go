package selectctx

import (
	"sync"
	"sync/atomic"
)

// Scope is a component-sized ownership boundary. A scope owns context
// values, hook slots, post-commit effects, and cleanups; disposing it
// disposes its children and releases everything it owns. Scopes form a
// hierarchy mirroring the component tree, which is how provider values
// reach descendants.
type Scope struct {
	id uint64

	// parent is the parent scope, nil for a root.
	parent *Scope

	children   []*Scope
	childrenMu sync.Mutex

	// cleanups run in reverse order on Dispose. Subscription detachment
	// lives here, which guarantees listener release on every unmount path.
	cleanups   []func()
	cleanupsMu sync.Mutex

	// afterCommit holds deferred effects to run once the current render
	// pass has committed. Listener attachment lives here.
	afterCommit   []func()
	afterCommitMu sync.Mutex

	// values stores provider payloads for this scope.
	values   map[any]any
	valuesMu sync.RWMutex

	// slots give hooks stable identity across renders.
	slots   []any
	slotIdx int

	disposed atomic.Bool
}

// NewScope creates a scope with the given parent. Pass nil for a root
// scope.
func NewScope(parent *Scope) *Scope {
	s := &Scope{
		id:     nextID(),
		parent: parent,
	}
	if parent != nil {
		parent.addChild(s)
	}
	return s
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent scope, or nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsDisposed reports whether this scope has been disposed.
func (s *Scope) IsDisposed() bool {
	return s.disposed.Load()
}

func (s *Scope) addChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	s.children = append(s.children, child)
}

func (s *Scope) removeChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// SetValue stores a context payload on this scope.
func (s *Scope) SetValue(key, value any) {
	s.valuesMu.Lock()
	defer s.valuesMu.Unlock()

	if s.values == nil {
		s.values = make(map[any]any)
	}
	s.values[key] = value
}

// GetValue retrieves a context payload from this scope or the nearest
// ancestor that carries it.
func (s *Scope) GetValue(key any) any {
	s.valuesMu.RLock()
	if s.values != nil {
		if v, ok := s.values[key]; ok {
			s.valuesMu.RUnlock()
			return v
		}
	}
	s.valuesMu.RUnlock()

	if s.parent != nil {
		return s.parent.GetValue(key)
	}
	return nil
}

// OnCleanup registers a function to run when this scope is disposed.
// If the scope is already disposed the cleanup runs immediately.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed.Load() {
		fn()
		return
	}

	s.cleanupsMu.Lock()
	defer s.cleanupsMu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// AfterCommit defers fn until the current rendering pass has committed.
// Registry mutation happens only here, so a render the host discards
// before commit leaves no externally visible change.
func (s *Scope) AfterCommit(fn func()) {
	if s.disposed.Load() {
		return
	}

	s.afterCommitMu.Lock()
	defer s.afterCommitMu.Unlock()
	s.afterCommit = append(s.afterCommit, fn)
}

// RunAfterCommit drains and runs the deferred post-commit effects.
func (s *Scope) RunAfterCommit() {
	if s.disposed.Load() {
		return
	}

	s.afterCommitMu.Lock()
	effects := s.afterCommit
	s.afterCommit = nil
	s.afterCommitMu.Unlock()

	for _, fn := range effects {
		fn()
	}
}

// StartRender resets the hook slot cursor at the beginning of a render.
func (s *Scope) StartRender() {
	s.slotIdx = 0
}

// UseSlot returns the stored value for the current hook slot, or nil on
// the first render. Callers that get nil create their hook state and store
// it with SetSlot, giving hooks stable identity across renders.
func (s *Scope) UseSlot() any {
	idx := s.slotIdx
	s.slotIdx++

	if idx < len(s.slots) {
		return s.slots[idx]
	}
	return nil
}

// SetSlot stores a value in the current hook slot. Must follow a UseSlot
// that returned nil.
func (s *Scope) SetSlot(value any) {
	s.slots = append(s.slots, value)
}

// Dispose disposes this scope, its children (in reverse creation order),
// and runs cleanups in reverse order. After disposal the scope cannot be
// used.
func (s *Scope) Dispose() {
	if s.disposed.Swap(true) {
		return
	}

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.childrenMu.Lock()
	children := make([]*Scope, len(s.children))
	copy(children, s.children)
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	s.cleanupsMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	s.afterCommitMu.Lock()
	s.afterCommit = nil
	s.afterCommitMu.Unlock()
}
