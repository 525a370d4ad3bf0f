package sim

import "time"

// EventKind classifies what a machine did in one tick.
type EventKind int

// The closed set of per-tick event kinds.
const (
	EventInternal EventKind = iota
	EventSend
	EventRecv
	EventBroadcast
)

// String returns the name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventInternal:
		return "INTERNAL"
	case EventSend:
		return "SEND"
	case EventRecv:
		return "RECV"
	case EventBroadcast:
		return "BROADCAST"
	default:
		return "UNKNOWN"
	}
}

// An EventRecord describes one tick of one machine. Exactly one record is
// emitted per tick, synchronously, so that no record is lost if the process
// stops right after the tick.
type EventRecord struct {
	Timestamp     time.Time
	MachineID     MachineID
	Kind          EventKind
	ClockAfter    LogicalTime
	QueueLenAfter int
}

// An EventSink consumes event records. Ownership of a record transfers to the
// sink on Record. Sinks shared by multiple machines must be safe for
// concurrent use.
type EventSink interface {
	Record(rec EventRecord)
}

// NullSink discards all records.
type NullSink struct{}

// Record drops the record.
func (NullSink) Record(_ EventRecord) {}
