package schedule

// State is the engine lifecycle. Stopped is terminal.
type State int

const (
	Created State = iota
	Started
	Suspended
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Started:
		return "started"
	case Suspended:
		return "suspended"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
