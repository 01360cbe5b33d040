package selectctx

// Version is a cell's logical version counter. It starts at VersionInitial,
// strictly increases by 1 on every phase of every update, and never wraps.
type Version int64

// VersionInitial is the sentinel version of a cell that has never been
// updated.
const VersionInitial Version = -1

// Phase identifies which half of the two-phase broadcast a notification
// belongs to.
type Phase uint8

const (
	// PhaseVersionOnly announces that a change is in flight: the version has
	// advanced but the value is not yet committed anywhere.
	PhaseVersionOnly Phase = iota + 1

	// PhaseVersionAndValue delivers the committed value together with its
	// matching version.
	PhaseVersionAndValue
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseVersionOnly:
		return "version-only"
	case PhaseVersionAndValue:
		return "version-and-value"
	default:
		return "unknown"
	}
}

// Notification is the tagged value delivered to a cell's subscribers.
// HasValue distinguishes the two phases: false for the phase-1 pre-announce,
// true for the phase-2 commit. For a single update, the phase-1 notification
// is always delivered to every subscriber strictly before phase 2.
type Notification[T any] struct {
	Version  Version
	Value    T
	HasValue bool
}

// Phase returns which broadcast phase this notification carries.
func (n Notification[T]) Phase() Phase {
	if n.HasValue {
		return PhaseVersionAndValue
	}
	return PhaseVersionOnly
}
