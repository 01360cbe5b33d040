package selectctx

import (
	"runtime"
	"sync"
)

// trackingContext holds the ambient render state for a goroutine: which
// scope owns newly created hooks and which component is currently
// rendering. Each goroutine has its own, so hosts may render concurrently.
type trackingContext struct {
	scope     *Scope
	component *Component
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getGoroutineID returns a unique identifier for the current goroutine,
// parsed from the runtime stack header. Implementation detail; not exposed.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The stack starts with "goroutine <id> ".
	var id uint64
	for i := 10; i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

func getTrackingContext() *trackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// CurrentScope returns the scope hooks created on this goroutine would
// belong to, or nil outside any scope.
func CurrentScope() *Scope {
	return getTrackingContext().scope
}

// WithScope runs fn with the given scope current, restoring the previous
// one afterwards. Hosts use it to establish ownership around renders and
// mounts; goroutines spawned from a render must re-establish it.
func WithScope(s *Scope, fn func()) {
	ctx := getTrackingContext()
	old := ctx.scope
	ctx.scope = s
	defer func() { ctx.scope = old }()
	fn()
}

func currentComponent() *Component {
	return getTrackingContext().component
}

func withComponent(c *Component, fn func()) {
	ctx := getTrackingContext()
	old := ctx.component
	ctx.component = c
	defer func() { ctx.component = old }()
	fn()
}
