package selectctx

// BridgeSnapshot is a read-only copy of a cell's committed state plus the
// cell by reference, captured during one render pass for re-exposure into
// a disjoint component tree (for example one driven by a different loop).
// The snapshot does not own the cell.
type BridgeSnapshot[T any] struct {
	Value   T
	Version Version

	cell *Cell[T]
}

// UseBridgeValue captures a bridge snapshot and subscribes the rendering
// component as a raw force-update listener: any version bump re-renders
// the bridge provider so it re-derives a fresh snapshot. The raw listener
// bypasses the selector-reducer protocol; consumers mounted under the
// Bridge use ordinary selector subscriptions against the same cell, so
// version monotonicity and phase ordering are preserved — there is only
// one cell.
func UseBridgeValue[T any](c *Context[T]) BridgeSnapshot[T] {
	cell := c.resolve("UseBridgeValue")
	value, version := cell.Snapshot()
	snap := BridgeSnapshot[T]{Value: value, Version: version, cell: cell}

	comp := currentComponent()
	if comp == nil {
		return snap
	}

	slot := comp.scope.UseSlot()
	if slot == nil {
		raw := &rawSubscription{}
		comp.scope.SetSlot(raw)
		comp.markRaw()
		comp.scope.AfterCommit(func() {
			raw.unsub = cell.Subscribe(func(Notification[T]) {
				comp.MarkDirty()
			})
			comp.scope.OnCleanup(raw.detach)
		})
	}
	return snap
}

// Bridge re-exposes a snapshot's cell inside the current (foreign) scope
// chain and runs fn with that scope current. Components mounted inside fn
// resolve the context to the original cell identity.
func Bridge[T any](c *Context[T], snap BridgeSnapshot[T], fn func()) {
	if c == nil {
		missingCellPanic("Bridge")
	}
	if snap.cell == nil {
		usagePanic("E002", "Bridge called with an empty snapshot (not produced by UseBridgeValue)")
	}

	sc := NewScope(CurrentScope())
	sc.SetValue(c.key, snap.cell)
	WithScope(sc, fn)
}

// rawSubscription is the hook state of a bridge provider: a bare
// unsubscribe handle with no reducer.
type rawSubscription struct {
	unsub func()
}

func (r *rawSubscription) detach() {
	if r.unsub != nil {
		r.unsub()
		r.unsub = nil
	}
}
