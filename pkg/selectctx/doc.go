// Package selectctx provides selective subscription to a shared value held
// outside a component tree, for incremental and interruptible renderers.
//
// Instead of re-rendering every consumer whenever the shared value changes,
// each consumer registers a pure projection (a selector) and re-renders only
// when its projected slice actually changes. The package guarantees that no
// two consumers ever observe two different logical versions of the shared
// value within one rendering pass (no tearing), without any global lock.
//
// # Core Types
//
// Cell[T] holds the current value and a strictly increasing version counter:
//
//	cell := NewCell(AppState{})
//	cell.Update(func() { cell.Set(next) }) // two-phase broadcast
//	value, version := cell.Snapshot()
//
// Context[T] wraps a Cell with a handle for consumer hooks:
//
//	ctx := CreateContext(AppState{})
//	count := UseSelector(ctx, func(s AppState) int { return s.Count })
//	update := UseUpdate(ctx)
//
// # The Two-Phase Protocol
//
// Every update bumps the version twice. The first bump broadcasts a
// version-only notification before the new value is visible anywhere, so
// every subscriber learns "a newer version exists" and can never render an
// old selection while assuming it is current. The second bump, scheduled at
// normal priority, commits the value and broadcasts it together with its
// version. Collapsing the two phases into one reintroduces the tearing
// hazard whenever the host renderer can interrupt or interleave renders.
//
// # Equality Discipline
//
// Bail-out decisions use reference identity only, never deep comparison.
// Selectors are contractually required to return referentially stable
// results for unchanged logical state.
//
// # Hosts
//
// The scheduling capabilities the protocol needs (batched updates,
// normal-priority tasks, post-commit effects) are injected through the
// Scheduler interface. Loop is the reference cooperative host used by the
// tests and the bench tool; production renderers supply their own.
package selectctx
