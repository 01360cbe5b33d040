package seltest

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vango-dev/selectctx/pkg/selectctx"
)

// Event kinds recorded by RecordingObserver.
const (
	EventUpdate    = "update"
	EventBroadcast = "broadcast"
	EventCommit    = "commit"
	EventRecovered = "recovered"
	EventRendered  = "rendered"
	EventBailout   = "bailout"
)

// Event is one recorded protocol event.
type Event struct {
	Kind      string
	Cell      string
	Phase     selectctx.Phase
	Version   selectctx.Version
	Listeners int
}

// RecordingObserver implements selectctx.Observer and records every
// protocol event in order. Safe for concurrent use.
type RecordingObserver struct {
	mu     sync.Mutex
	events []Event
}

// NewRecordingObserver returns an empty observer ready to attach with
// selectctx.WithObserver.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (r *RecordingObserver) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *RecordingObserver) UpdateStarted(c selectctx.CellInfo, v selectctx.Version) {
	r.record(Event{Kind: EventUpdate, Cell: c.Name(), Version: v})
}

func (r *RecordingObserver) PhaseBroadcast(c selectctx.CellInfo, p selectctx.Phase, v selectctx.Version, n int) {
	r.record(Event{Kind: EventBroadcast, Cell: c.Name(), Phase: p, Version: v, Listeners: n})
}

func (r *RecordingObserver) ValueCommitted(c selectctx.CellInfo, v selectctx.Version) {
	r.record(Event{Kind: EventCommit, Cell: c.Name(), Version: v})
}

func (r *RecordingObserver) SelectorRecovered(c selectctx.CellInfo, v selectctx.Version) {
	r.record(Event{Kind: EventRecovered, Cell: c.Name(), Version: v})
}

func (r *RecordingObserver) ConsumerRendered(c selectctx.CellInfo) {
	r.record(Event{Kind: EventRendered, Cell: c.Name()})
}

func (r *RecordingObserver) ConsumerBailedOut(c selectctx.CellInfo) {
	r.record(Event{Kind: EventBailout, Cell: c.Name()})
}

// Events returns a copy of everything recorded so far, in order.
func (r *RecordingObserver) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of the given kind were recorded.
func (r *RecordingObserver) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Reset discards everything recorded so far.
func (r *RecordingObserver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var listenerIDs atomic.Uint64

// CountingListener implements selectctx.Listener and counts MarkDirty
// calls. Use it to drive a Subscription or Cell without mounting a
// component.
type CountingListener struct {
	id    uint64
	dirty atomic.Int64
}

// NewCountingListener returns a listener with a fresh identity.
func NewCountingListener() *CountingListener {
	return &CountingListener{id: listenerIDs.Add(1)}
}

// MarkDirty implements selectctx.Listener.
func (l *CountingListener) MarkDirty() {
	l.dirty.Add(1)
}

// ID implements selectctx.Listener.
func (l *CountingListener) ID() uint64 {
	return l.id
}

// DirtyCount returns the number of wakeups so far.
func (l *CountingListener) DirtyCount() int64 {
	return l.dirty.Load()
}

// ExpectRenders asserts a component's total render count.
//
// Example:
//
//	seltest.ExpectRenders(t, badge, 2)
func ExpectRenders(t *testing.T, c *selectctx.Component, want int64) {
	t.Helper()
	if got := c.Renders(); got != want {
		t.Errorf("component %s rendered %d times, want %d", c.Name(), got, want)
	}
}

// ExpectVersion asserts a cell's current version.
//
// Example:
//
//	seltest.ExpectVersion(t, h.Ctx.Cell(), 1)
func ExpectVersion(t *testing.T, c selectctx.CellInfo, want selectctx.Version) {
	t.Helper()
	if got := c.Version(); got != want {
		t.Errorf("cell %s at version %d, want %d", c.Name(), got, want)
	}
}
