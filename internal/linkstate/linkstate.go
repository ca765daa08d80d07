// Package linkstate implements the link's four-state machine: the
// coarse-grained handshake/idle/in-flight/fault lifecycle that gates
// which frames the rest of the link is allowed to send or accept.
package linkstate

import "fmt"

// State is one of the link's four states.
type State int

const (
	// Unsynchronized is the initial state: the handshake has not
	// completed, and new critical sends are rejected.
	Unsynchronized State = iota
	// Idle is synchronized and ready to accept a new critical command.
	Idle
	// AwaitingAck has a critical command in flight and is waiting for
	// its acknowledgment or a retry timeout.
	AwaitingAck
	// Fault is a terminal safety state entered only on a cryptographic
	// self-test failure. It is left only by an explicit Reset.
	Fault
)

func (s State) String() string {
	switch s {
	case Unsynchronized:
		return "unsynchronized"
	case Idle:
		return "idle"
	case AwaitingAck:
		return "awaiting_ack"
	case Fault:
		return "fault"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is one of the transitions the machine understands.
type Event int

const (
	// EvHandshakeComplete fires when the HMAC handshake succeeds.
	EvHandshakeComplete Event = iota
	// EvSendCritical fires when a critical command is handed to the
	// transmit queue.
	EvSendCritical
	// EvAckReceived fires when the peer acknowledges the in-flight
	// critical command.
	EvAckReceived
	// EvTimeout fires when the in-flight command's retry budget is
	// exhausted without an ACK.
	EvTimeout
	// EvReset fires on an explicit link reset (local or peer-requested).
	EvReset
	// EvCryptoFault fires when the power-on self-test fails.
	EvCryptoFault
)

func (e Event) String() string {
	switch e {
	case EvHandshakeComplete:
		return "handshake_complete"
	case EvSendCritical:
		return "send_critical"
	case EvAckReceived:
		return "ack_received"
	case EvTimeout:
		return "timeout"
	case EvReset:
		return "reset"
	case EvCryptoFault:
		return "crypto_fault"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// ErrRejected is returned by Machine.Fire when event has no transition
// defined from the current state.
type ErrRejected struct {
	State State
	Event Event
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("linkstate: event %s rejected in state %s", e.Event, e.State)
}

// Machine is the link state machine. The zero value starts in
// Unsynchronized, matching the endpoint's power-on state.
type Machine struct {
	state State
}

// State returns the machine's current state.
func (m *Machine) State() State {
	return m.state
}

// transitions is the explicit, closed transition table: every legal
// (fromState, event) pair maps to its destination state. Any pair absent
// from this table is rejected by Fire. EvCryptoFault and EvReset are
// handled outside the table since they apply uniformly across states
// (crypto fault always wins; reset always returns to Unsynchronized,
// from Fault as well, and is the only event that leaves Fault).
var transitions = map[State]map[Event]State{
	Unsynchronized: {
		EvHandshakeComplete: Idle,
	},
	Idle: {
		EvSendCritical: AwaitingAck,
	},
	AwaitingAck: {
		EvAckReceived: Idle,
		EvTimeout:     Unsynchronized,
	},
}

// Fire applies event to the machine. It returns *ErrRejected, leaving the
// state unchanged, if event has no transition from the current state.
func (m *Machine) Fire(event Event) error {
	if event == EvCryptoFault {
		m.state = Fault
		return nil
	}
	if event == EvReset {
		m.state = Unsynchronized
		return nil
	}
	next, ok := transitions[m.state][event]
	if !ok {
		return &ErrRejected{State: m.state, Event: event}
	}
	m.state = next
	return nil
}

// CanSendCritical reports whether the machine is in a state that permits
// handing a new critical command to the transmit queue.
func (m *Machine) CanSendCritical() bool {
	return m.state == Idle
}

// Synchronized reports whether the link has completed its handshake and
// is not in Fault — i.e. whether non-handshake traffic is permitted.
func (m *Machine) Synchronized() bool {
	return m.state == Idle || m.state == AwaitingAck
}
