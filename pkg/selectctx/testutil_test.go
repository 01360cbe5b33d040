package selectctx

import (
	"sync"
	"sync/atomic"
)

// testListener implements Listener and counts wakeups.
type testListener struct {
	id    uint64
	dirty atomic.Int64
}

func newTestListener() *testListener {
	return &testListener{id: nextID()}
}

func (l *testListener) MarkDirty() {
	l.dirty.Add(1)
}

func (l *testListener) ID() uint64 {
	return l.id
}

func (l *testListener) getDirtyCount() int64 {
	return l.dirty.Load()
}

// recordingObserver records protocol events in order.
type recordingObserver struct {
	mu     sync.Mutex
	events []observedEvent
}

type observedEvent struct {
	kind      string
	cell      string
	phase     Phase
	version   Version
	listeners int
}

func (r *recordingObserver) record(ev observedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingObserver) UpdateStarted(c CellInfo, v Version) {
	r.record(observedEvent{kind: "update", cell: c.Name(), version: v})
}

func (r *recordingObserver) PhaseBroadcast(c CellInfo, p Phase, v Version, n int) {
	r.record(observedEvent{kind: "broadcast", cell: c.Name(), phase: p, version: v, listeners: n})
}

func (r *recordingObserver) ValueCommitted(c CellInfo, v Version) {
	r.record(observedEvent{kind: "commit", cell: c.Name(), version: v})
}

func (r *recordingObserver) SelectorRecovered(c CellInfo, v Version) {
	r.record(observedEvent{kind: "recovered", cell: c.Name(), version: v})
}

func (r *recordingObserver) ConsumerRendered(c CellInfo) {
	r.record(observedEvent{kind: "rendered", cell: c.Name()})
}

func (r *recordingObserver) ConsumerBailedOut(c CellInfo) {
	r.record(observedEvent{kind: "bailout", cell: c.Name()})
}

func (r *recordingObserver) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.kind
	}
	return out
}

func (r *recordingObserver) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, ev := range r.events {
		if ev.kind == kind {
			n++
		}
	}
	return n
}

func (r *recordingObserver) broadcasts() []observedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []observedEvent
	for _, ev := range r.events {
		if ev.kind == "broadcast" {
			out = append(out, ev)
		}
	}
	return out
}
