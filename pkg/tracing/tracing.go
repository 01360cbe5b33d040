// Package tracing exposes the selectctx update protocol as OpenTelemetry
// spans. Each update becomes one span covering the whole two-phase
// lifetime, from the version pre-announcement to the phase-2 broadcast;
// the broadcasts and consumer decisions inside that window become span
// events.
//
//	tr := tracing.NewTracer(tracing.WithTracerName("my-app"))
//	ctx := selectctx.CreateContext(initial,
//	    selectctx.WithName("cart"),
//	    selectctx.WithObserver(tr),
//	)
//
// The tracer uses the global OpenTelemetry tracer provider unless one is
// injected with WithTracerProvider. Configure it in your main() before
// creating cells:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
package tracing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/selectctx/pkg/selectctx"
)

// Default tracer name for selectctx instrumentation.
const defaultTracerName = "selectctx"

// Config configures a Tracer.
type Config struct {
	// TracerName is the name of the tracer (default: "selectctx").
	TracerName string

	// Attributes are added to every span.
	Attributes []attribute.KeyValue

	// Filter determines which cells to trace by name.
	// Return true to trace the cell's updates, false to skip.
	// If nil, all cells are traced.
	Filter func(cell string) bool

	// TracerProvider is the provider to resolve the tracer from.
	// Default: the global provider.
	TracerProvider trace.TracerProvider

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// Option configures a Tracer.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithAttributes adds constant attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(c *Config) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// WithCellFilter sets a filter function over cell names.
func WithCellFilter(filter func(cell string) bool) Option {
	return func(c *Config) {
		c.Filter = filter
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

func defaultTracingConfig() Config {
	return Config{
		TracerName: defaultTracerName,
	}
}

// Tracer implements selectctx.Observer on top of OpenTelemetry.
//
// Span layout per update:
//   - span "selectctx.update <cell>" from UpdateStarted to the phase-2
//     broadcast, so both broadcasts land inside the span
//   - event "broadcast" for each phase, with phase, version, and listener
//     count attributes
//   - event "selector.recovered" when a selector panic is swallowed
//   - events "consumer.rendered" / "consumer.bailout" for consumer
//     decisions landing inside the update window
type Tracer struct {
	config Config

	// open queues in-flight update spans per cell. Commits run in update
	// order, so FIFO pairing closes the right span even when updates
	// overlap.
	mu   sync.Mutex
	open map[string][]trace.Span
}

// NewTracer creates a Tracer observer.
func NewTracer(opts ...Option) *Tracer {
	config := defaultTracingConfig()
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	config.tracer = tp.Tracer(config.TracerName)

	return &Tracer{
		config: config,
		open:   make(map[string][]trace.Span),
	}
}

func (t *Tracer) skip(cell string) bool {
	return t.config.Filter != nil && !t.config.Filter(cell)
}

// UpdateStarted implements selectctx.Observer: open the update span.
func (t *Tracer) UpdateStarted(c selectctx.CellInfo, v selectctx.Version) {
	name := c.Name()
	if t.skip(name) {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("selectctx.cell", name),
		attribute.Int64("selectctx.version.announced", int64(v)),
	}
	attrs = append(attrs, t.config.Attributes...)

	_, span := t.config.tracer.Start(
		context.Background(),
		fmt.Sprintf("selectctx.update %s", name),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	t.mu.Lock()
	t.open[name] = append(t.open[name], span)
	t.mu.Unlock()
}

// PhaseBroadcast implements selectctx.Observer: record the broadcast as a
// span event. Phase 1 belongs to the newest open span, phase 2 to the
// oldest (the one committing). The phase-2 broadcast is the last protocol
// step of an update, so it also closes that span.
func (t *Tracer) PhaseBroadcast(c selectctx.CellInfo, p selectctx.Phase, v selectctx.Version, n int) {
	name := c.Name()
	if t.skip(name) {
		return
	}

	t.mu.Lock()
	q := t.open[name]
	var span trace.Span
	if len(q) > 0 {
		if p == selectctx.PhaseVersionOnly {
			span = q[len(q)-1]
		} else {
			span = q[0]
			t.open[name] = q[1:]
		}
	}
	t.mu.Unlock()

	if span == nil {
		return
	}
	span.AddEvent("broadcast", trace.WithAttributes(
		attribute.String("selectctx.phase", p.String()),
		attribute.Int64("selectctx.version", int64(v)),
		attribute.Int("selectctx.listeners", n),
	))
	if p == selectctx.PhaseVersionAndValue {
		span.SetStatus(codes.Ok, "")
		span.End()
	}
}

// ValueCommitted implements selectctx.Observer: stamp the committed
// version on the oldest open span. The span stays open until the phase-2
// broadcast that follows the commit, so that broadcast's event still
// attaches to it.
func (t *Tracer) ValueCommitted(c selectctx.CellInfo, v selectctx.Version) {
	name := c.Name()
	if t.skip(name) {
		return
	}

	t.mu.Lock()
	q := t.open[name]
	var span trace.Span
	if len(q) > 0 {
		span = q[0]
	}
	t.mu.Unlock()

	if span == nil {
		return
	}
	span.SetAttributes(attribute.Int64("selectctx.version.committed", int64(v)))
}

// SelectorRecovered implements selectctx.Observer.
func (t *Tracer) SelectorRecovered(c selectctx.CellInfo, v selectctx.Version) {
	t.addEvent(c.Name(), "selector.recovered", attribute.Int64("selectctx.version", int64(v)))
}

// ConsumerRendered implements selectctx.Observer.
func (t *Tracer) ConsumerRendered(c selectctx.CellInfo) {
	t.addEvent(c.Name(), "consumer.rendered")
}

// ConsumerBailedOut implements selectctx.Observer.
func (t *Tracer) ConsumerBailedOut(c selectctx.CellInfo) {
	t.addEvent(c.Name(), "consumer.bailout")
}

// addEvent attaches an event to the oldest open update span for the cell.
// Consumer decisions outside any update window (for example the mount
// render) have no span to land on and are dropped.
func (t *Tracer) addEvent(cell, name string, attrs ...attribute.KeyValue) {
	if t.skip(cell) {
		return
	}

	t.mu.Lock()
	q := t.open[cell]
	var span trace.Span
	if len(q) > 0 {
		span = q[0]
	}
	t.mu.Unlock()

	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
