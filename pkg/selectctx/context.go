package selectctx

// Context is a consumer-facing handle for one shared value cell. Create
// one with CreateContext; the zero value carries no cell and every hook
// rejects it with a usage error.
//
// Example:
//
//	var App = selectctx.CreateContext(AppState{})
//
//	func Counter() {
//	    count := selectctx.UseSelector(App, func(s AppState) int { return s.Count })
//	    ...
//	}
type Context[T any] struct {
	// key uniquely identifies this context in scope value maps.
	key any

	// cell is the single source of truth for this context instance,
	// created with the handle and alive for its lifetime.
	cell *Cell[T]
}

// contextKey wraps Context to create a unique key type.
type contextKey[T any] struct {
	ctx *Context[T]
}

// CreateContext creates a context handle with its cell holding initial at
// the sentinel version.
func CreateContext[T any](initial T, opts ...CellOption) *Context[T] {
	ctx := &Context[T]{cell: NewCell(initial, opts...)}
	ctx.key = contextKey[T]{ctx: ctx}
	return ctx
}

// Cell returns the context's cell for host integration and inspection.
func (c *Context[T]) Cell() *Cell[T] {
	return c.cell
}

// Provide installs the cell payload on a child of the current scope and
// runs fn with that scope current, so components mounted inside fn (and
// only those) resolve this context through the scope chain.
func (c *Context[T]) Provide(fn func()) {
	cell := c.resolve("Provide")
	sc := NewScope(CurrentScope())
	sc.SetValue(c.key, cell)
	WithScope(sc, fn)
}

// resolve returns the cell for this handle: a scope-installed payload when
// a Provider or Bridge is in effect, otherwise the handle's own cell.
// Raises a usage error when the handle carries no cell.
func (c *Context[T]) resolve(op string) *Cell[T] {
	if c == nil {
		missingCellPanic(op)
	}
	if sc := CurrentScope(); sc != nil && c.key != nil {
		if v := sc.GetValue(c.key); v != nil {
			if cell, ok := v.(*Cell[T]); ok {
				return cell
			}
		}
	}
	if c.cell == nil {
		missingCellPanic(op)
	}
	return c.cell
}

// UseSelector returns selector applied to the context's current value and
// subscribes the rendering component to changes of that projection. The
// component re-renders only when the selected slice changes by reference
// identity; the selector must therefore return referentially stable
// results for unchanged logical state.
//
// Outside a component render it degrades to a plain snapshot projection
// with no subscription.
func UseSelector[T, S any](c *Context[T], selector func(T) S) S {
	cell := c.resolve("UseSelector")

	comp := currentComponent()
	if comp == nil {
		v, _ := cell.Snapshot()
		return selector(v)
	}

	slot := comp.scope.UseSlot()
	if slot == nil {
		sub := newSubscription(cell, comp, selector)
		comp.scope.SetSlot(sub)
		comp.addGate(sub)
		comp.scope.AfterCommit(func() {
			sub.attach()
			comp.scope.OnCleanup(sub.detach)
		})
		return sub.RenderRead()
	}

	sub := slot.(*Subscription[T, S])
	sub.setSelector(selector)
	return sub.RenderRead()
}

// UseValue is UseSelector with the identity selector: the component
// re-renders whenever the whole value changes.
func UseValue[T any](c *Context[T]) T {
	return UseSelector(c, func(v T) T { return v })
}

// UseUpdate exposes the cell's update entry point to producers. The
// returned function runs the two-phase protocol for each call.
func UseUpdate[T any](c *Context[T]) func(thunk func()) {
	cell := c.resolve("UseUpdate")
	return cell.Update
}
