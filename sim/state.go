package sim

import "sync/atomic"

// MachineState is the lifecycle state of a machine.
type MachineState int32

// The lifecycle of a machine. A machine is created in StateInit, establishes
// its peer links in StateConnecting, ticks in StateRunning, drains its final
// tick in StateStopping, and terminates in StateStopped.
const (
	StateInit MachineState = iota
	StateConnecting
	StateRunning
	StateStopping
	StateStopped
)

// String returns the name of the state.
func (s MachineState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateConnecting:
		return "CONNECTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// stateVar holds a machine state that is written by the owning machine and
// read by links and the monitor.
type stateVar struct {
	v atomic.Int32
}

func (s *stateVar) get() MachineState {
	return MachineState(s.v.Load())
}

func (s *stateVar) set(state MachineState) {
	s.v.Store(int32(state))
}

// accepting tells if a machine in this state takes message deliveries.
func (s MachineState) accepting() bool {
	switch s {
	case StateConnecting, StateRunning, StateStopping:
		return true
	default:
		return false
	}
}
