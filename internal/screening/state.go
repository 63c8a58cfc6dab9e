package screening

// State is the global loop state.
type State int

const (
	Initializing State = iota
	Iterating

	// Converged: recall target or iteration limit reached.
	Converged

	// Exhausted: nothing left to propose.
	Exhausted

	// Interrupted: cancelled between iterations or stopped by a judge error.
	Interrupted
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the loop has stopped.
func (s State) Terminal() bool {
	return s >= Converged
}
