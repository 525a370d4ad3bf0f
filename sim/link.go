package sim

import (
	"context"
	"time"
)

// An endpoint is the receiving side of a link: a machine seen from the
// network. Links only ever interact with a peer through this surface.
type endpoint interface {
	ID() MachineID
	State() MachineState
	deliver(msg ClockMsg)
}

// RetryConfig bounds the link-establishment handshake.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig is the handshake budget used unless overridden.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    8,
		InitialBackoff: 20 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// A Link is a directed communication channel from one machine to another.
// Delivery order equals send order: the sending tick loop is the only caller
// of Deliver, and the target queue preserves arrival order.
type Link struct {
	src    MachineID
	target endpoint
}

// NewLink creates a link from src to the target endpoint.
func NewLink(src MachineID, target endpoint) *Link {
	if target.ID() == src {
		panic("link target must not be the source machine")
	}

	return &Link{src: src, target: target}
}

// Dst returns the id of the receiving machine.
func (l *Link) Dst() MachineID {
	return l.target.ID()
}

// Establish waits for the peer to accept deliveries, retrying with
// exponential backoff within the configured budget. Exhausting the budget
// yields a *LinkError naming the peer.
func (l *Link) Establish(ctx context.Context, cfg RetryConfig) error {
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if l.target.State().accepting() {
			return nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}

		backoff *= 2
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return &LinkError{Src: l.src, Peer: l.target.ID(), Attempts: cfg.MaxAttempts}
}

// Deliver hands the message to the target machine, or reports a
// *DeliveryError if the target is not live. It never blocks.
func (l *Link) Deliver(msg ClockMsg) *DeliveryError {
	if !l.target.State().accepting() {
		return &DeliveryError{Src: l.src, Dst: l.target.ID(), At: time.Now()}
	}

	l.target.deliver(msg)

	return nil
}
