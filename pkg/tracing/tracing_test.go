package tracing

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"

	"github.com/vango-dev/selectctx/pkg/selectctx"
)

// recordingProvider is a minimal tracer provider capturing spans for
// assertions without pulling in the SDK.
type recordingProvider struct {
	embedded.TracerProvider

	mu    sync.Mutex
	spans []*recordingSpan
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return &recordingTracer{provider: p}
}

func (p *recordingProvider) all() []*recordingSpan {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*recordingSpan, len(p.spans))
	copy(out, p.spans)
	return out
}

type recordingTracer struct {
	embedded.Tracer

	provider *recordingProvider
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	span := &recordingSpan{name: name, attrs: cfg.Attributes()}

	t.provider.mu.Lock()
	t.provider.spans = append(t.provider.spans, span)
	t.provider.mu.Unlock()

	return ctx, span
}

type recordingSpan struct {
	embedded.Span

	mu          sync.Mutex
	name        string
	attrs       []attribute.KeyValue
	events      []string
	status      codes.Code
	ended       bool
	eventsAtEnd int
}

func (s *recordingSpan) End(...trace.SpanEndOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
	s.eventsAtEnd = len(s.events)
}

func (s *recordingSpan) AddEvent(name string, _ ...trace.EventOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
}

func (s *recordingSpan) IsRecording() bool { return true }

func (s *recordingSpan) RecordError(error, ...trace.EventOption) {}

func (s *recordingSpan) SpanContext() trace.SpanContext { return trace.SpanContext{} }

func (s *recordingSpan) SetStatus(code codes.Code, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *recordingSpan) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *recordingSpan) SetAttributes(attrs ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *recordingSpan) TracerProvider() trace.TracerProvider { return nil }

func (s *recordingSpan) eventCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev == name {
			n++
		}
	}
	return n
}

func (s *recordingSpan) hasAttr(key attribute.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

func TestTracer_SpansUpdateLifetime(t *testing.T) {
	provider := &recordingProvider{}
	tr := NewTracer(
		WithTracerProvider(provider),
		WithTracerName("test"),
		WithAttributes(attribute.String("env", "test")),
	)

	cell := selectctx.NewCell(0,
		selectctx.WithName("counter"),
		selectctx.WithObserver(tr),
	)
	unsub := cell.Subscribe(func(selectctx.Notification[int]) {})
	defer unsub()

	cell.Set(1)

	spans := provider.all()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span per update, got %d", len(spans))
	}
	span := spans[0]

	if !strings.Contains(span.name, "counter") {
		t.Errorf("span name %q should carry the cell name", span.name)
	}
	if !span.ended {
		t.Error("span must end after the phase-2 broadcast")
	}
	if span.status != codes.Ok {
		t.Errorf("expected Ok status, got %v", span.status)
	}
	if got := span.eventCount("broadcast"); got != 2 {
		t.Errorf("expected 2 broadcast events (one per phase), got %d", got)
	}
	if span.eventsAtEnd != 2 {
		t.Errorf("expected both broadcast events attached before End, got %d", span.eventsAtEnd)
	}
	if !span.hasAttr("selectctx.version.committed") {
		t.Error("expected committed version attribute on the closed span")
	}
	if !span.hasAttr("env") {
		t.Error("expected constant attributes on the span")
	}
}

func TestTracer_OverlappingUpdatesCloseInOrder(t *testing.T) {
	provider := &recordingProvider{}
	tr := NewTracer(WithTracerProvider(provider))

	cell := selectctx.NewCell(0,
		selectctx.WithName("nested"),
		selectctx.WithObserver(tr),
	)

	cell.Update(func() {
		cell.Update(func() { cell.Set(1) })
	})

	spans := provider.all()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	for i, span := range spans {
		if !span.ended {
			t.Errorf("span %d must be closed once both updates settled", i)
		}
	}
}

func TestTracer_CellFilterSkipsCells(t *testing.T) {
	provider := &recordingProvider{}
	tr := NewTracer(
		WithTracerProvider(provider),
		WithCellFilter(func(cell string) bool { return cell != "noisy" }),
	)

	cell := selectctx.NewCell(0,
		selectctx.WithName("noisy"),
		selectctx.WithObserver(tr),
	)
	cell.Set(1)

	if got := len(provider.all()); got != 0 {
		t.Errorf("filtered cell must produce no spans, got %d", got)
	}
}

func TestTracer_ConsumerDecisionsLandInWindow(t *testing.T) {
	provider := &recordingProvider{}
	tr := NewTracer(WithTracerProvider(provider))

	loop := selectctx.NewLoop()
	ctx := selectctx.CreateContext(0,
		selectctx.WithName("gauge"),
		selectctx.WithScheduler(loop),
		selectctx.WithObserver(tr),
	)
	loop.Mount("reader", func() {
		selectctx.UseSelector(ctx, func(v int) int { return v })
	})

	ctx.Cell().Update(func() {})

	spans := provider.all()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := spans[0].eventCount("consumer.bailout"); got == 0 {
		t.Error("expected a bail-out event inside the update window")
	}
}
