package app

import (
	"sync/atomic"
	"time"

	"github.com/codewandler/bookstock/core/actor"
)

type State int32

const (
	StateCreated State = iota
	StateRunning
	StateTerminating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// System is the handle to a running actor system. It is created by
// App.Start and passed explicitly to whoever needs the manager.
type System struct {
	name      string
	createdAt time.Time
	state     atomic.Int32
	manager   actor.Actor
}

func (s *System) Name() string         { return s.name }
func (s *System) State() State         { return State(s.state.Load()) }
func (s *System) CreatedAt() time.Time { return s.createdAt }

// Manager returns the address of the manager actor. It is the same value for
// the lifetime of the system.
func (s *System) Manager() actor.Actor { return s.manager }
