package selectctx

import "sync"

// Loop is the reference cooperative host: a single-threaded render
// scheduler that supplies the capabilities the cell protocol consumes.
// Batches coalesce dirty consumers into one pass; each pass interleaves
// urgent render work with normal-priority tasks (the phase-2 commits), so
// interactive renders never wait behind commits. The tests and the bench
// tool drive the protocol through a Loop; production renderers implement
// Scheduler themselves.
type Loop struct {
	root *Scope

	mu       sync.Mutex
	depth    int // nested Batch calls
	normal   []func()
	dirty    []*Component
	flushing bool
}

// NewLoop creates an empty loop with a fresh root scope.
func NewLoop() *Loop {
	return &Loop{root: NewScope(nil)}
}

// Root returns the loop's root scope, under which components mount.
func (l *Loop) Root() *Scope {
	return l.root
}

// Batch implements Scheduler. Re-renders triggered inside fn land in one
// pass when the outermost batch ends.
func (l *Loop) Batch(fn func()) {
	l.mu.Lock()
	l.depth++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.depth--
		done := l.depth == 0
		l.mu.Unlock()
		if done {
			l.Flush()
		}
	}()

	fn()
}

// ScheduleNormal implements Scheduler. The task runs after the urgent
// render work of the pass it lands in.
func (l *Loop) ScheduleNormal(fn func()) {
	l.mu.Lock()
	l.normal = append(l.normal, fn)
	busy := l.depth > 0 || l.flushing
	l.mu.Unlock()

	if !busy {
		l.Flush()
	}
}

// schedule queues a component for the next pass.
func (l *Loop) schedule(c *Component) {
	l.mu.Lock()
	if !c.dirty && !c.disposed {
		c.dirty = true
		l.dirty = append(l.dirty, c)
	}
	busy := l.depth > 0 || l.flushing
	l.mu.Unlock()

	if !busy {
		l.Flush()
	}
}

// Flush runs passes until no dirty consumers and no normal-priority tasks
// remain. Urgent render work always drains before the next normal task.
// Reentrant calls return immediately.
//
// A schedule arriving from another goroutine while the flushing flag is
// still set gets queued rather than flushed, even when the passes have
// already seen empty queues. After dropping the flag Flush therefore
// re-checks the queues and starts over if anything slipped in.
func (l *Loop) Flush() {
	for {
		l.mu.Lock()
		if l.flushing || l.depth > 0 {
			l.mu.Unlock()
			return
		}
		l.flushing = true
		l.mu.Unlock()

		l.flushPasses()

		l.mu.Lock()
		again := len(l.dirty) > 0 || len(l.normal) > 0
		l.mu.Unlock()
		if !again {
			return
		}
	}
}

// flushPasses drains dirty consumers and normal tasks, clearing the
// flushing flag on exit (including a panic unwinding out of a render).
func (l *Loop) flushPasses() {
	defer func() {
		l.mu.Lock()
		l.flushing = false
		l.mu.Unlock()
	}()

	for {
		comps := l.takeDirty()
		if len(comps) > 0 {
			for _, c := range comps {
				c.renderPass()
			}
			continue
		}

		task := l.takeNormal()
		if task == nil {
			return
		}
		task()
	}
}

func (l *Loop) takeDirty() []*Component {
	l.mu.Lock()
	defer l.mu.Unlock()

	comps := l.dirty
	l.dirty = nil
	for _, c := range comps {
		c.dirty = false
	}
	return comps
}

func (l *Loop) takeNormal() func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.normal) == 0 {
		return nil
	}
	task := l.normal[0]
	l.normal = l.normal[1:]
	return task
}

// Mount creates a component under the current scope (or the loop root),
// runs its first render, and then runs its post-commit effects so listener
// attachment follows the first committed render.
func (l *Loop) Mount(name string, render func()) *Component {
	parent := CurrentScope()
	if parent == nil {
		parent = l.root
	}

	c := &Component{
		id:     nextID(),
		name:   name,
		loop:   l,
		render: render,
		scope:  NewScope(parent),
	}
	c.renderNow()
	return c
}

// Dispose unmounts everything mounted under the loop's root scope.
func (l *Loop) Dispose() {
	l.root.Dispose()
}
