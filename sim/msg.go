package sim

import "github.com/rs/xid"

// MachineID is the unique ordinal of a machine among its peers.
type MachineID int

// A ClockMsg is the only wire message of the simulation. The payload is a
// single logical clock value; sender and receiver identities ride along as
// transport-level metadata.
type ClockMsg struct {
	ID          string
	Src, Dst    MachineID
	SenderClock LogicalTime
}

// ClockMsgBuilder builds clock messages.
type ClockMsgBuilder struct {
	src, dst    MachineID
	senderClock LogicalTime
}

// WithSrc sets the sending machine.
func (b ClockMsgBuilder) WithSrc(src MachineID) ClockMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination machine.
func (b ClockMsgBuilder) WithDst(dst MachineID) ClockMsgBuilder {
	b.dst = dst
	return b
}

// WithSenderClock attaches the sender's post-update clock value.
func (b ClockMsgBuilder) WithSenderClock(t LogicalTime) ClockMsgBuilder {
	b.senderClock = t
	return b
}

// Build creates the message.
func (b ClockMsgBuilder) Build() ClockMsg {
	if b.src == b.dst {
		panic("sending back to src")
	}

	return ClockMsg{
		ID:          xid.New().String(),
		Src:         b.src,
		Dst:         b.dst,
		SenderClock: b.senderClock,
	}
}
