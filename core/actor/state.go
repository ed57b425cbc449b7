package actor

// State is the lifecycle state of an actor.
type State int32

const (
	// StateStarting is the state until the handler has been initialised.
	StateStarting State = iota
	// StateReady accepts and processes messages.
	StateReady
	// StateDraining refuses new messages but processes the ones already queued.
	StateDraining
	// StateStopped is terminal.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
