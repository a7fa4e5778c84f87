package commit

// State is the routing state.
type State uint8

const (
	// StateClean means the controller holds the table for the current inputs.
	StateClean State = iota

	// StateDirty means an input changed since the last successful commit.
	StateDirty

	// StateCommitting means a commit is pushing the table.
	StateCommitting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClean:
		return "CLEAN"
	case StateDirty:
		return "DIRTY"
	case StateCommitting:
		return "COMMITTING"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the result of Commit.
type Outcome uint8

const (
	// OutcomeUnchanged means nothing had to be pushed.
	OutcomeUnchanged Outcome = iota

	// OutcomeCommitted means the table was pushed and activated.
	OutcomeCommitted

	// OutcomeDiscoveryStopped means discovery is disabled; the caller must
	// stop RF discovery instead of expecting a routing table.
	OutcomeDiscoveryStopped

	// OutcomeFailed means a command failed; the state is Dirty.
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeCommitted:
		return "committed"
	case OutcomeDiscoveryStopped:
		return "discovery_stopped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OK reports whether the commit left the controller consistent with the
// current inputs, or discovery must stop.
func (o Outcome) OK() bool {
	return o != OutcomeFailed
}
