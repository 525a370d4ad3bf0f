package recording

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/MKJM2/cs2620-logical-clocks/sim"
)

// A TraceReader reads event records back from a trace database.
type TraceReader struct {
	db *sql.DB
}

// OpenTrace opens an existing trace database.
func OpenTrace(filename string) (*TraceReader, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	return &TraceReader{db: db}, nil
}

// NewTraceReaderWithDB wraps an already-open database.
func NewTraceReaderWithDB(db *sql.DB) *TraceReader {
	return &TraceReader{db: db}
}

// Events returns all records in insertion order.
func (r *TraceReader) Events(ctx context.Context) ([]sim.EventRecord, error) {
	return r.query(ctx,
		"SELECT TimestampNs, MachineID, Kind, ClockAfter, QueueLenAfter "+
			"FROM "+eventTable+" ORDER BY rowid")
}

// EventsForMachine returns one machine's records in insertion order.
func (r *TraceReader) EventsForMachine(
	ctx context.Context,
	id sim.MachineID,
) ([]sim.EventRecord, error) {
	return r.query(ctx,
		"SELECT TimestampNs, MachineID, Kind, ClockAfter, QueueLenAfter "+
			"FROM "+eventTable+" WHERE MachineID = ? ORDER BY rowid",
		int(id))
}

// MachineIDs returns the distinct machine ids present in the trace.
func (r *TraceReader) MachineIDs(ctx context.Context) ([]sim.MachineID, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT MachineID FROM "+eventTable+" ORDER BY MachineID")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []sim.MachineID
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, sim.MachineID(id))
	}

	return ids, rows.Err()
}

// Close closes the database.
func (r *TraceReader) Close() error {
	return r.db.Close()
}

func (r *TraceReader) query(
	ctx context.Context,
	q string,
	args ...any,
) ([]sim.EventRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []sim.EventRecord
	for rows.Next() {
		var (
			ns    int64
			id    int
			kind  string
			clock int64
			qLen  int
		)
		if err := rows.Scan(&ns, &id, &kind, &clock, &qLen); err != nil {
			return nil, err
		}

		k, err := parseKind(kind)
		if err != nil {
			return nil, err
		}

		records = append(records, sim.EventRecord{
			Timestamp:     time.Unix(0, ns),
			MachineID:     sim.MachineID(id),
			Kind:          k,
			ClockAfter:    sim.LogicalTime(clock),
			QueueLenAfter: qLen,
		})
	}

	return records, rows.Err()
}

func parseKind(s string) (sim.EventKind, error) {
	switch s {
	case "INTERNAL":
		return sim.EventInternal, nil
	case "SEND":
		return sim.EventSend, nil
	case "RECV":
		return sim.EventRecv, nil
	case "BROADCAST":
		return sim.EventBroadcast, nil
	default:
		return 0, fmt.Errorf("unknown event kind in trace: %q", s)
	}
}
