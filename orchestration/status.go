package orchestration

import (
	"sync"
	"time"

	"github.com/MKJM2/cs2620-logical-clocks/sim"
)

// A DeliveryFailure is one steady-state send that could not reach its
// destination, recorded against the sending machine.
type DeliveryFailure struct {
	Src, Dst sim.MachineID
	At       time.Time
}

// Result is the aggregate exit status of a run.
type Result struct {
	// Stopped lists machines that stopped cleanly.
	Stopped []sim.MachineID

	// Failed lists machines that failed to connect or crashed.
	Failed []sim.MachineID

	// DeliveryFailures lists every send that could not be delivered during
	// the run. Delivery failures do not make a machine Failed.
	DeliveryFailures []DeliveryFailure
}

// failureLog collects delivery failures from all machines. It implements
// sim.FailureReporter. Machines only append; the supervising goroutine reads
// the snapshot once the run is over.
type failureLog struct {
	lock     sync.Mutex
	failures []DeliveryFailure
}

func (l *failureLog) ReportDeliveryFailure(src, dst sim.MachineID, _ error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.failures = append(l.failures, DeliveryFailure{
		Src: src,
		Dst: dst,
		At:  time.Now(),
	})
}

func (l *failureLog) snapshot() []DeliveryFailure {
	l.lock.Lock()
	defer l.lock.Unlock()

	out := make([]DeliveryFailure, len(l.failures))
	copy(out, l.failures)

	return out
}
