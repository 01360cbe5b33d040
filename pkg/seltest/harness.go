package seltest

import "github.com/vango-dev/selectctx/pkg/selectctx"

// Harness bundles a loop host with one context handle so a test can
// mount consumers and drive updates in a couple of lines.
//
// Example:
//
//	h := seltest.NewHarness(AppState{})
//	comp := h.Mount("sidebar", func() {
//	    items = selectctx.UseSelector(h.Ctx, selectItems)
//	})
//	h.Set(AppState{Items: next})
type Harness[T any] struct {
	Loop *selectctx.Loop
	Ctx  *selectctx.Context[T]
}

// NewHarness creates a fresh loop and a context wired to it. Extra cell
// options (names, observers) are applied after the scheduler.
func NewHarness[T any](initial T, opts ...selectctx.CellOption) *Harness[T] {
	loop := selectctx.NewLoop()
	all := append([]selectctx.CellOption{selectctx.WithScheduler(loop)}, opts...)
	return &Harness[T]{
		Loop: loop,
		Ctx:  selectctx.CreateContext(initial, all...),
	}
}

// Mount mounts a consumer under the harness loop.
func (h *Harness[T]) Mount(name string, render func()) *selectctx.Component {
	return h.Loop.Mount(name, render)
}

// Set runs one full update that stages v.
func (h *Harness[T]) Set(v T) {
	h.Ctx.Cell().Set(v)
}

// Update runs one full update with the given thunk.
func (h *Harness[T]) Update(thunk func()) {
	h.Ctx.Cell().Update(thunk)
}

// Batch coalesces the updates issued inside fn into one rendering pass.
func (h *Harness[T]) Batch(fn func()) {
	h.Loop.Batch(fn)
}

// Value returns the committed value.
func (h *Harness[T]) Value() T {
	return h.Ctx.Cell().Peek()
}

// Version returns the committed version.
func (h *Harness[T]) Version() selectctx.Version {
	return h.Ctx.Cell().Version()
}

// Dispose unmounts everything mounted under the harness loop.
func (h *Harness[T]) Dispose() {
	h.Loop.Dispose()
}
