// Package recording persists event traces to SQLite so that runs can be
// analyzed after the fact.
package recording

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/MKJM2/cs2620-logical-clocks/sim"
)

// eventTable is the single table of a trace database.
const eventTable = "event_trace"

const createTableSQL = `CREATE TABLE ` + eventTable + ` (
	TimestampNs INTEGER,
	MachineID INTEGER,
	Kind TEXT,
	ClockAfter INTEGER,
	QueueLenAfter INTEGER
);`

// A Recorder writes event records to a SQLite trace file. It implements
// sim.EventSink and is safe for concurrent use by all machines of a run.
// Records are buffered and flushed in batches; a flush is also registered
// at process exit.
type Recorder struct {
	db       *sql.DB
	filename string

	lock      sync.Mutex
	batch     []sim.EventRecord
	batchSize int
}

// NewRecorder creates a trace database at the given path. An empty path
// picks a fresh generated name.
func NewRecorder(path string) *Recorder {
	if path == "" {
		path = "lclock_trace_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	r := &Recorder{
		db:        db,
		filename:  filename,
		batchSize: 4096,
	}
	r.mustExecute(createTableSQL)

	fmt.Fprintf(os.Stderr, "Recording event trace to %s\n", filename)

	atexit.Register(func() { r.Flush() })

	return r
}

// Filename returns the path of the trace database.
func (r *Recorder) Filename() string {
	return r.filename
}

// Record buffers one event record.
func (r *Recorder) Record(rec sim.EventRecord) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.batch = append(r.batch, rec)
	if len(r.batch) >= r.batchSize {
		r.flushLocked()
	}
}

// Flush writes all buffered records into the database.
func (r *Recorder) Flush() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.flushLocked()
}

func (r *Recorder) flushLocked() {
	if len(r.batch) == 0 {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	stmt, err := r.db.Prepare(
		"INSERT INTO " + eventTable + " VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	for _, rec := range r.batch {
		_, err := stmt.Exec(
			rec.Timestamp.UnixNano(),
			int(rec.MachineID),
			rec.Kind.String(),
			int64(rec.ClockAfter),
			rec.QueueLenAfter,
		)
		if err != nil {
			panic(err)
		}
	}

	r.batch = nil
}

// Close flushes and closes the database.
func (r *Recorder) Close() error {
	r.Flush()
	return r.db.Close()
}

func (r *Recorder) mustExecute(query string) sql.Result {
	res, err := r.db.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}
