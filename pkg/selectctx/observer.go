package selectctx

// CellInfo is the type-erased view of a cell exposed to observers and
// inspection tooling.
type CellInfo interface {
	// Name returns the cell's configured name, or a generated one.
	Name() string

	// Version returns the cell's current version counter.
	Version() Version

	// Subscribers returns the current number of subscribed listeners.
	Subscribers() int
}

// Observer receives protocol events from a cell. Implementations must not
// call back into the cell's update path. The core never blocks on an
// observer; metrics, tracing, and devtools are built on this hook.
type Observer interface {
	// UpdateStarted fires when an update's phase-1 version bump is taken,
	// before any notification is delivered.
	UpdateStarted(cell CellInfo, version Version)

	// PhaseBroadcast fires for each broadcast, with the membership size at
	// broadcast time.
	PhaseBroadcast(cell CellInfo, phase Phase, version Version, listeners int)

	// ValueCommitted fires when the phase-2 commit step has adopted the
	// value, before the phase-2 broadcast.
	ValueCommitted(cell CellInfo, version Version)

	// SelectorRecovered fires when a selector panicked during phase-2
	// reconciliation and was converted into a forced update. The recovery
	// is silent toward consumers; this hook exists for diagnosability.
	SelectorRecovered(cell CellInfo, version Version)

	// ConsumerRendered fires when a subscription adopts a new
	// value/selection pair during a render.
	ConsumerRendered(cell CellInfo)

	// ConsumerBailedOut fires when a scheduled consumer skips its render
	// because its selection is reference-identical.
	ConsumerBailedOut(cell CellInfo)
}

// NopObserver is an Observer that ignores every event. Embed it to
// implement only the events you care about.
type NopObserver struct{}

func (NopObserver) UpdateStarted(CellInfo, Version)               {}
func (NopObserver) PhaseBroadcast(CellInfo, Phase, Version, int)  {}
func (NopObserver) ValueCommitted(CellInfo, Version)              {}
func (NopObserver) SelectorRecovered(CellInfo, Version)           {}
func (NopObserver) ConsumerRendered(CellInfo)                     {}
func (NopObserver) ConsumerBailedOut(CellInfo)                    {}

// MultiObserver fans events out to several observers in order.
func MultiObserver(obs ...Observer) Observer {
	return multiObserver(obs)
}

type multiObserver []Observer

func (m multiObserver) UpdateStarted(c CellInfo, v Version) {
	for _, o := range m {
		o.UpdateStarted(c, v)
	}
}

func (m multiObserver) PhaseBroadcast(c CellInfo, p Phase, v Version, n int) {
	for _, o := range m {
		o.PhaseBroadcast(c, p, v, n)
	}
}

func (m multiObserver) ValueCommitted(c CellInfo, v Version) {
	for _, o := range m {
		o.ValueCommitted(c, v)
	}
}

func (m multiObserver) SelectorRecovered(c CellInfo, v Version) {
	for _, o := range m {
		o.SelectorRecovered(c, v)
	}
}

func (m multiObserver) ConsumerRendered(c CellInfo) {
	for _, o := range m {
		o.ConsumerRendered(c)
	}
}

func (m multiObserver) ConsumerBailedOut(c CellInfo) {
	for _, o := range m {
		o.ConsumerBailedOut(c)
	}
}
