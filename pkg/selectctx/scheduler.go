package selectctx

import "sync"

// Scheduler is the set of host capabilities the update protocol consumes.
// A host renderer injects its own implementation; Loop provides a reference
// cooperative host, and the zero-configuration default executes
// synchronously with batch coalescing.
type Scheduler interface {
	// Batch executes fn such that all re-renders it triggers are coalesced
	// into a single rendering pass rather than one pass per change.
	// Batches may nest; work is released when the outermost batch ends.
	Batch(fn func())

	// ScheduleNormal runs fn at normal (non-urgent) priority, after the
	// urgent work of the current batch, so interactive work is not starved.
	// Outside a batch it may run fn immediately.
	ScheduleNormal(fn func())
}

// immediateScheduler is the default Scheduler: synchronous execution with
// nestable batches. Normal-priority tasks queued inside a batch drain when
// the outermost batch completes.
type immediateScheduler struct {
	mu     sync.Mutex
	depth  int
	normal []func()
}

func newImmediateScheduler() *immediateScheduler {
	return &immediateScheduler{}
}

func (s *immediateScheduler) Batch(fn func()) {
	s.mu.Lock()
	s.depth++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.depth--
		done := s.depth == 0
		s.mu.Unlock()
		if done {
			s.drain()
		}
	}()

	fn()
}

func (s *immediateScheduler) ScheduleNormal(fn func()) {
	s.mu.Lock()
	inBatch := s.depth > 0
	if inBatch {
		s.normal = append(s.normal, fn)
	}
	s.mu.Unlock()

	if !inBatch {
		fn()
	}
}

// drain runs queued normal-priority tasks, including tasks those tasks
// queue in turn.
func (s *immediateScheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.normal) == 0 || s.depth > 0 {
			s.mu.Unlock()
			return
		}
		task := s.normal[0]
		s.normal = s.normal[1:]
		s.mu.Unlock()

		task()
	}
}
