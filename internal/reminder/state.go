package reminder

// State is the position of one task in its reminder lifecycle. Cancelled is
// terminal and reachable from every other state.
type State int

const (
	StateScheduled State = iota + 1
	StateFiredInitial
	StateEscalating
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateFiredInitial:
		return "fired_initial"
	case StateEscalating:
		return "escalating"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
