package snapshot

import (
	"fmt"
)

type State int32

const (
	StateIdle = State(iota)
	StateArmed
	StateCapturing
	StateCompleting
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateCapturing:
		return "capturing"
	case StateCompleting:
		return "completing"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown_state_%d", int32(s))
	}
}
