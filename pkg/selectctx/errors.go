package selectctx

import "fmt"

// Usage errors are loud and immediate: they indicate a programming mistake
// at the call site, not a runtime condition, so they panic with a coded
// message rather than returning an error.

// usagePanic raises a coded usage error.
func usagePanic(code, format string, args ...any) {
	panic(fmt.Sprintf("[SELECTCTX %s] %s", code, fmt.Sprintf(format, args...)))
}

// missingCellPanic is raised when a hook is invoked against a context handle
// that lacks the internal cell payload, e.g. a zero-value Context or a
// handle not produced by CreateContext.
func missingCellPanic(op string) {
	usagePanic("E001", "%s called with a context handle that was not created by CreateContext (missing cell payload)", op)
}
