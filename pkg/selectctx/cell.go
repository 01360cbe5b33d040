package selectctx

import (
	"fmt"
	"sync"
)

// Cell holds one shared value and its version counter; it is the single
// source of truth for one context instance. The value is mutated only by
// the two-phase update protocol:
//
//  1. Update bumps the version and broadcasts a version-only notification
//     to every current subscriber, before the new value is visible anywhere.
//  2. The thunk stages the next value (via Set).
//  3. The commit step, scheduled at normal priority, bumps the version
//     again, adopts the staged value, and broadcasts value and version
//     together.
//
// Two reads of (value, version) without an intervening update are always
// mutually consistent.
type Cell[T any] struct {
	id   uint64
	name string

	mu       sync.RWMutex
	value    T
	version  Version
	staged   *T  // next value, set by an update thunk, adopted at commit
	staging  int // update thunks currently executing

	subs  subscriberList[T]
	sched Scheduler
	obs   Observer
}

// CellOption configures a Cell (and the Context that wraps one).
type CellOption func(*cellConfig)

type cellConfig struct {
	name  string
	sched Scheduler
	obs   Observer
}

// WithName sets the cell's name, used in metrics labels and devtools
// listings.
func WithName(name string) CellOption {
	return func(c *cellConfig) {
		c.name = name
	}
}

// WithScheduler injects the host scheduling capabilities. Defaults to a
// synchronous scheduler with batch coalescing.
func WithScheduler(s Scheduler) CellOption {
	return func(c *cellConfig) {
		c.sched = s
	}
}

// WithObserver attaches a protocol observer. Use MultiObserver to attach
// several.
func WithObserver(o Observer) CellOption {
	return func(c *cellConfig) {
		c.obs = o
	}
}

// NewCell creates a cell holding initial, at the sentinel version, with an
// empty subscriber set.
func NewCell[T any](initial T, opts ...CellOption) *Cell[T] {
	cfg := cellConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Cell[T]{
		id:      nextID(),
		name:    cfg.name,
		value:   initial,
		version: VersionInitial,
		sched:   cfg.sched,
		obs:     cfg.obs,
	}
	if c.sched == nil {
		c.sched = newImmediateScheduler()
	}
	if c.obs == nil {
		c.obs = NopObserver{}
	}
	if c.name == "" {
		c.name = fmt.Sprintf("cell-%d", c.id)
	}
	return c
}

// Name implements CellInfo.
func (c *Cell[T]) Name() string {
	return c.name
}

// Version implements CellInfo.
func (c *Cell[T]) Version() Version {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Subscribers implements CellInfo.
func (c *Cell[T]) Subscribers() int {
	return c.subs.size()
}

// Snapshot returns the committed value and its version as a mutually
// consistent pair.
func (c *Cell[T]) Snapshot() (T, Version) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.version
}

// Peek returns the committed value without the version.
func (c *Cell[T]) Peek() T {
	v, _ := c.Snapshot()
	return v
}

// Subscribe registers a notification callback and returns its unsubscribe
// function. Unsubscribing twice is harmless. Listeners added during a
// broadcast do not receive that broadcast.
func (c *Cell[T]) Subscribe(fn func(Notification[T])) func() {
	id := c.subs.add(fn)
	return func() {
		c.subs.remove(id)
	}
}

// Update is the sole producer-facing entry point for mutation. It executes
// the two-phase protocol inside one scheduling batch so all resulting
// re-renders land in a single pass. The thunk is responsible for staging
// the new logical value with Set; the commit step runs once per update
// regardless, so the version always advances by exactly 2.
//
// Multiple updates may start before earlier commits run; every phase of
// every update still bumps the version monotonically.
func (c *Cell[T]) Update(thunk func()) {
	c.sched.Batch(func() {
		c.mu.Lock()
		c.version++
		v := c.version
		c.mu.Unlock()

		c.obs.UpdateStarted(c, v)
		c.broadcast(Notification[T]{Version: v})

		if thunk != nil {
			c.mu.Lock()
			c.staging++
			c.mu.Unlock()

			thunk()

			c.mu.Lock()
			c.staging--
			c.mu.Unlock()
		}

		c.sched.ScheduleNormal(c.commit)
	})
}

// Set stages the next value. Inside an update thunk the value becomes
// visible to subscribers only at the phase-2 commit. Outside a thunk, Set
// is shorthand for Update(func() { cell.Set(v) }), even while earlier
// commits are still pending: every top-level Set runs its own two-phase
// update and bumps the version twice.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	if c.staging > 0 {
		c.staged = &v
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.Update(func() { c.Set(v) })
}

// commit is an update's phase-2 step: adopt the staged value, bump the
// version, and broadcast both together. It runs at normal priority so it
// never starves urgent interactive work.
func (c *Cell[T]) commit() {
	c.mu.Lock()
	c.version++
	if c.staged != nil {
		c.value = *c.staged
		c.staged = nil
	}
	v := c.version
	value := c.value
	c.mu.Unlock()

	c.obs.ValueCommitted(c, v)
	c.broadcast(Notification[T]{Version: v, Value: value, HasValue: true})
}

// broadcast delivers a notification to a snapshot of the current
// membership.
func (c *Cell[T]) broadcast(n Notification[T]) {
	subs := c.subs.snapshot()
	c.obs.PhaseBroadcast(c, n.Phase(), n.Version, len(subs))
	for _, s := range subs {
		s.fn(n)
	}
}

// observer exposes the cell's observer to subscriptions.
func (c *Cell[T]) observer() Observer {
	return c.obs
}
