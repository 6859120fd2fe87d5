package connection

// State is the lifecycle state of a Manager.
type State int

const (
	// StateIdle means no session exists and no retry is pending.
	StateIdle State = iota

	// StateConnecting means a dial is in progress.
	StateConnecting

	// StateOpen means the session is established and frames are dispatched.
	StateOpen

	// StateClosed means the session ended and a retry is pending.
	StateClosed

	// StateStopped means Stop was called. Terminal.
	StateStopped
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
