package selectctx

import "testing"

func TestSubscriptionForcedReconciliationOnPhaseOne(t *testing.T) {
	cell := NewCell(intp(1))
	l := newTestListener()
	sub := newSubscription(cell, l, func(v *int) int { return *v })

	sub.RenderRead()
	sub.attach()

	// A no-op update still pre-announces a new version; the consumer must
	// be scheduled even though the value never changes.
	cell.Update(func() {})

	if l.getDirtyCount() == 0 {
		t.Error("phase-1 notification must schedule a re-render unconditionally")
	}
	if sub.ShouldRender() {
		t.Error("after the value settled unchanged, the render must bail out")
	}
}

func TestSubscriptionBailsOutOnStableSelection(t *testing.T) {
	type state struct {
		Count int
		Label *string
	}
	lbl := "x"
	cell := NewCell(state{Count: 0, Label: &lbl})
	l := newTestListener()
	sub := newSubscription(cell, l, func(s state) *string { return s.Label })

	sub.RenderRead()
	sub.attach()

	// The projection is untouched by this update.
	cell.Update(func() { cell.Set(state{Count: 1, Label: &lbl}) })

	if sub.ShouldRender() {
		t.Error("stable selection must not require a render")
	}
}

func TestSubscriptionAdoptsNewSelection(t *testing.T) {
	cell := NewCell(intp(1))
	l := newTestListener()
	sub := newSubscription(cell, l, func(v *int) int { return *v })

	if got := sub.RenderRead(); got != 1 {
		t.Fatalf("expected initial selection 1, got %d", got)
	}
	sub.attach()

	cell.Update(func() { cell.Set(intp(2)) })

	if l.getDirtyCount() == 0 {
		t.Fatal("expected the consumer to be scheduled")
	}
	if !sub.ShouldRender() {
		t.Fatal("changed selection must require a render")
	}
	if got := sub.RenderRead(); got != 2 {
		t.Errorf("expected selection 2 after render, got %d", got)
	}
	if sub.ShouldRender() {
		t.Error("freshly rendered subscription must be settled")
	}
}

func TestSubscriptionStaleSelectorRecovered(t *testing.T) {
	obs := &recordingObserver{}
	cell := NewCell(map[string]int{"a": 1}, WithObserver(obs))
	l := newTestListener()

	sub := newSubscription(cell, l, func(m map[string]int) int {
		if m == nil {
			panic("stale closure applied to a reshaped value")
		}
		return m["a"]
	})
	sub.RenderRead()
	sub.attach()

	// The new value breaks the captured selector. The panic must be
	// swallowed and converted into a forced update, never propagated and
	// never a dropped update.
	cell.Update(func() { cell.Set(nil) })

	if l.getDirtyCount() == 0 {
		t.Error("recovered selector panic must still schedule a re-render")
	}
	if obs.count("recovered") == 0 {
		t.Error("expected the recovery to be observable")
	}
	if !sub.ShouldRender() {
		t.Error("unknown selection must demand a render to resolve itself")
	}

	// The next render supplies a selector that understands the new shape.
	sub.setSelector(func(m map[string]int) int {
		if m == nil {
			return -1
		}
		return m["a"]
	})
	if got := sub.RenderRead(); got != -1 {
		t.Errorf("expected resolved selection -1, got %d", got)
	}
}

func TestSubscriptionDetachStopsNotifications(t *testing.T) {
	cell := NewCell(intp(1))
	l := newTestListener()
	sub := newSubscription(cell, l, func(v *int) int { return *v })

	sub.RenderRead()
	sub.attach()
	sub.detach()
	sub.detach() // repeated detach is harmless

	cell.Update(func() { cell.Set(intp(2)) })

	if l.getDirtyCount() != 0 {
		t.Errorf("detached subscription must not be scheduled, got %d wakeups", l.getDirtyCount())
	}
}

func TestSubscriptionNotifyConsistentPairs(t *testing.T) {
	// The reducer only ever adopts value/selected pairs together: after a
	// settled update, the committed state must be derived from the final
	// version, never a mix.
	type state struct{ A, B *int }
	a1, b1 := intp(1), intp(10)
	a2, b2 := intp(2), intp(20)

	cell := NewCell(state{A: a1, B: b1})
	l := newTestListener()
	sub := newSubscription(cell, l, func(s state) *int { return s.A })

	sub.RenderRead()
	sub.attach()

	cell.Update(func() { cell.Set(state{A: a2, B: b2}) })
	sub.RenderRead()

	sub.mu.Lock()
	st := sub.state
	sub.mu.Unlock()

	if st.value.A != a2 || st.value.B != b2 {
		t.Error("committed value must be the final version's value")
	}
	if st.selected != a2 {
		t.Error("committed selection must be derived from the committed value")
	}
}
