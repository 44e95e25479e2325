package runner

// State is a step in a session's lifecycle.
type State int

const (
	StateCreated State = iota
	StateShuffled
	StateRotated
	StateRunning
	StateAggregated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateShuffled:
		return "shuffled"
	case StateRotated:
		return "rotated"
	case StateRunning:
		return "running"
	case StateAggregated:
		return "aggregated"
	default:
		return "unknown"
	}
}
