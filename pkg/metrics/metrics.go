// Package metrics exposes the selectctx update protocol as Prometheus
// metrics. Attach a Recorder to a cell with selectctx.WithObserver:
//
//	rec := metrics.NewRecorder(metrics.WithNamespace("myapp"))
//	ctx := selectctx.CreateContext(initial,
//	    selectctx.WithName("cart"),
//	    selectctx.WithObserver(rec),
//	)
//
//	http.Handle("/metrics", promhttp.Handler())
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/selectctx/pkg/selectctx"
)

// Config configures a Recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "selectctx").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for update settle duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the settle-duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "selectctx",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Recorder implements selectctx.Observer on top of Prometheus.
//
// Metrics collected:
//   - selectctx_updates_total: Counter of updates started, by cell
//   - selectctx_broadcasts_total: Counter of notifications, by cell and phase
//   - selectctx_commits_total: Counter of committed updates, by cell
//   - selectctx_renders_total: Counter of consumer renders, by cell
//   - selectctx_bailouts_total: Counter of consumer bail-outs, by cell
//   - selectctx_selector_recoveries_total: Counter of recovered selector
//     panics, by cell
//   - selectctx_subscribers: Gauge of current subscribers, by cell
//   - selectctx_update_settle_seconds: Histogram of time from update start
//     to commit, by cell
type Recorder struct {
	updates    *prometheus.CounterVec
	broadcasts *prometheus.CounterVec
	commits    *prometheus.CounterVec
	renders    *prometheus.CounterVec
	bailouts   *prometheus.CounterVec
	recoveries *prometheus.CounterVec
	subs       *prometheus.GaugeVec
	settle     *prometheus.HistogramVec

	// started queues update start times per cell. Commits run in update
	// order, so FIFO pairing gives the settle duration even when updates
	// overlap.
	mu      sync.Mutex
	started map[string][]time.Time
}

// NewRecorder creates a Recorder and registers its metrics.
func NewRecorder(opts ...Option) *Recorder {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Recorder{
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updates_total",
			Help:        "Total number of updates started",
			ConstLabels: config.ConstLabels,
		}, []string{"cell"}),

		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "broadcasts_total",
			Help:        "Total number of notifications broadcast, by phase",
			ConstLabels: config.ConstLabels,
		}, []string{"cell", "phase"}),

		commits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commits_total",
			Help:        "Total number of committed updates",
			ConstLabels: config.ConstLabels,
		}, []string{"cell"}),

		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Total number of consumer renders that adopted a new selection",
			ConstLabels: config.ConstLabels,
		}, []string{"cell"}),

		bailouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bailouts_total",
			Help:        "Total number of consumer bail-outs",
			ConstLabels: config.ConstLabels,
		}, []string{"cell"}),

		recoveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "selector_recoveries_total",
			Help:        "Total number of recovered selector panics",
			ConstLabels: config.ConstLabels,
		}, []string{"cell"}),

		subs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribers",
			Help:        "Current number of subscribers",
			ConstLabels: config.ConstLabels,
		}, []string{"cell"}),

		settle: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_settle_seconds",
			Help:        "Time from update start to value commit in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"cell"}),

		started: make(map[string][]time.Time),
	}
}

// UpdateStarted implements selectctx.Observer.
func (r *Recorder) UpdateStarted(c selectctx.CellInfo, _ selectctx.Version) {
	name := c.Name()
	r.updates.WithLabelValues(name).Inc()

	r.mu.Lock()
	r.started[name] = append(r.started[name], time.Now())
	r.mu.Unlock()
}

// PhaseBroadcast implements selectctx.Observer.
func (r *Recorder) PhaseBroadcast(c selectctx.CellInfo, p selectctx.Phase, _ selectctx.Version, n int) {
	name := c.Name()
	r.broadcasts.WithLabelValues(name, p.String()).Inc()
	r.subs.WithLabelValues(name).Set(float64(n))
}

// ValueCommitted implements selectctx.Observer.
func (r *Recorder) ValueCommitted(c selectctx.CellInfo, _ selectctx.Version) {
	name := c.Name()
	r.commits.WithLabelValues(name).Inc()

	r.mu.Lock()
	q := r.started[name]
	var start time.Time
	if len(q) > 0 {
		start = q[0]
		r.started[name] = q[1:]
	}
	r.mu.Unlock()

	if !start.IsZero() {
		r.settle.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// SelectorRecovered implements selectctx.Observer.
func (r *Recorder) SelectorRecovered(c selectctx.CellInfo, _ selectctx.Version) {
	r.recoveries.WithLabelValues(c.Name()).Inc()
}

// ConsumerRendered implements selectctx.Observer.
func (r *Recorder) ConsumerRendered(c selectctx.CellInfo) {
	r.renders.WithLabelValues(c.Name()).Inc()
}

// ConsumerBailedOut implements selectctx.Observer.
func (r *Recorder) ConsumerBailedOut(c selectctx.CellInfo) {
	r.bailouts.WithLabelValues(c.Name()).Inc()
}
