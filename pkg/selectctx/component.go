package selectctx

import "sync/atomic"

// renderGate is the render-time half of a consumer's bail-out machinery.
// Selector subscriptions implement it; a component re-renders only when at
// least one of its gates demands it.
type renderGate interface {
	ShouldRender() bool
}

// Component is one mounted consumer in the reference host: a render
// function plus the scope that owns its hooks. It implements Listener so
// subscriptions can wake it.
type Component struct {
	id     uint64
	name   string
	loop   *Loop
	scope  *Scope
	render func()

	// gates are the selector subscriptions mounted by this component's
	// hooks, populated during the first render.
	gates []renderGate

	// raw marks a bridge provider: it reacts to any version bump and
	// skips the bail-out gate entirely.
	raw bool

	renders atomic.Int64

	// dirty and disposed are guarded by loop.mu.
	dirty    bool
	disposed bool
}

// MarkDirty implements Listener: schedule this component for the next
// rendering pass.
func (c *Component) MarkDirty() {
	c.loop.schedule(c)
}

// ID implements Listener.
func (c *Component) ID() uint64 {
	return c.id
}

// Name returns the component's mount name.
func (c *Component) Name() string {
	return c.name
}

// Scope returns the scope owning this component's hooks.
func (c *Component) Scope() *Scope {
	return c.scope
}

// Renders returns the number of times the render function has run,
// including the mount render.
func (c *Component) Renders() int64 {
	return c.renders.Load()
}

// Unmount disposes the component's scope, detaching its subscriptions.
func (c *Component) Unmount() {
	c.loop.mu.Lock()
	c.disposed = true
	c.loop.mu.Unlock()
	c.scope.Dispose()
}

func (c *Component) addGate(g renderGate) {
	c.gates = append(c.gates, g)
}

func (c *Component) markRaw() {
	c.raw = true
}

// renderPass runs one scheduled reconciliation: consult the gates, and
// either bail out (render count unchanged) or re-invoke the render
// function followed by its post-commit effects.
func (c *Component) renderPass() {
	c.loop.mu.Lock()
	disposed := c.disposed
	c.loop.mu.Unlock()
	if disposed {
		return
	}

	if !c.raw && len(c.gates) > 0 {
		need := false
		for _, g := range c.gates {
			if g.ShouldRender() {
				need = true
				break
			}
		}
		if !need {
			return
		}
	}

	c.renderNow()
}

func (c *Component) renderNow() {
	c.renders.Add(1)
	c.scope.StartRender()
	WithScope(c.scope, func() {
		withComponent(c, c.render)
	})
	c.scope.RunAfterCommit()
}
