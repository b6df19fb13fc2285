package capture

// State is the progress of one capture request.
type State int

const (
	StateIdle State = iota
	StateRequested
	StateBufferOffered
	StateCopying
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequested:
		return "requested"
	case StateBufferOffered:
		return "buffer-offered"
	case StateCopying:
		return "copying"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	StateIdle:          {StateRequested},
	StateRequested:     {StateBufferOffered, StateFailed},
	StateBufferOffered: {StateCopying, StateFailed},
	StateCopying:       {StateReady, StateFailed},
	StateReady:         {StateIdle},
	StateFailed:        {StateIdle},
}

// CanTransition reports whether a capture may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
