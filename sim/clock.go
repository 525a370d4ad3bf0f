package sim

import "sync/atomic"

// LogicalTime is a value of a Lamport logical clock.
type LogicalTime int64

// A Clock is a Lamport logical clock. It is advanced only by the owning
// machine's tick loop, but may be read concurrently (e.g. by the monitor),
// so the value is stored atomically.
type Clock struct {
	value atomic.Int64
}

// Time returns the current clock value.
func (c *Clock) Time() LogicalTime {
	return LogicalTime(c.value.Load())
}

// Increment advances the clock by exactly 1, as for a local event, and
// returns the new value.
func (c *Clock) Increment() LogicalTime {
	return LogicalTime(c.value.Add(1))
}

// Witness applies the Lamport receive rule: the clock jumps to
// max(local, remote) + 1. It returns the new value.
func (c *Clock) Witness(remote LogicalTime) LogicalTime {
	local := LogicalTime(c.value.Load())
	next := local + 1
	if remote >= local {
		next = remote + 1
	}

	c.value.Store(int64(next))

	return next
}
