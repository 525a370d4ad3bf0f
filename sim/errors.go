package sim

import (
	"fmt"
	"time"
)

// A ConfigError reports an invalid topology configuration. It is fatal and
// raised before any machine starts.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// NewConfigError creates a ConfigError.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// A LinkError reports that a peer did not become reachable within the retry
// budget during the connect phase. It is fatal to the whole run.
type LinkError struct {
	Src, Peer MachineID
	Attempts  int
}

func (e *LinkError) Error() string {
	return fmt.Sprintf(
		"machine %d could not reach peer %d after %d attempts",
		e.Src, e.Peer, e.Attempts)
}

// A DeliveryError reports that a message could not reach its destination
// during steady state. The sending machine recovers locally; the failure is
// only recorded in the aggregate status.
type DeliveryError struct {
	Src, Dst MachineID
	At       time.Time
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf(
		"machine %d failed to deliver to machine %d", e.Src, e.Dst)
}

// A FailureReporter receives steady-state delivery failures. Implementations
// must be safe for concurrent use by multiple machines.
type FailureReporter interface {
	ReportDeliveryFailure(src, dst MachineID, err error)
}

// NullReporter drops all failure reports.
type NullReporter struct{}

// ReportDeliveryFailure drops the report.
func (NullReporter) ReportDeliveryFailure(_, _ MachineID, _ error) {}
