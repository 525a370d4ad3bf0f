// Package orchestration builds logical-clock topologies and supervises their
// lifecycle: connect all machines, run for a fixed duration, stop them in a
// coordinated way, and report the aggregate exit status.
package orchestration

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/MKJM2/cs2620-logical-clocks/sim"
)

// An Orchestrator is the single authority for the simulation lifecycle. No
// machine outlives its supervision.
type Orchestrator struct {
	topology *sim.Topology
	failures *failureLog
	logger   *log.Logger
}

// Topology returns the supervised topology.
func (o *Orchestrator) Topology() *sim.Topology {
	return o.topology
}

// Machines returns the supervised machines in id order.
func (o *Orchestrator) Machines() []*sim.Machine {
	return o.topology.Machines()
}

// Run drives the whole lifecycle: it transitions all machines
// CONNECTING→RUNNING, blocks for the given duration (or until ctx is
// cancelled), stops every machine, and returns the aggregate status.
//
// The connect phase is all-or-nothing: if any machine cannot establish a
// link within its retry budget, the run is aborted before steady state and
// the first *sim.LinkError is returned.
func (o *Orchestrator) Run(
	ctx context.Context,
	duration time.Duration,
) (Result, error) {
	if err := o.connectAll(ctx); err != nil {
		result := Result{}
		for _, m := range o.Machines() {
			result.Failed = append(result.Failed, m.ID())
		}

		return result, err
	}

	o.logf("all %d machines connected, running for %v",
		o.topology.Count(), duration)

	return o.runAll(ctx, duration), nil
}

// connectAll establishes all peer links concurrently. A partially connected
// topology is not a valid run, so the first failure cancels the whole phase.
func (o *Orchestrator) connectAll(ctx context.Context) error {
	connectCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	machines := o.Machines()
	errs := make([]error, len(machines))

	var wg sync.WaitGroup
	for i, m := range machines {
		wg.Add(1)
		go func(i int, m *sim.Machine) {
			defer wg.Done()

			errs[i] = m.Connect(connectCtx)
			if errs[i] != nil {
				cancel()
			}
		}(i, m)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			o.logf("connect phase failed: %v", err)
			return err
		}
	}

	return nil
}

// runAll ticks every machine until the duration elapses or the outer context
// is cancelled, then waits for each machine to drain its final tick and
// report STOPPED.
func (o *Orchestrator) runAll(
	ctx context.Context,
	duration time.Duration,
) Result {
	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	machines := o.Machines()
	errs := make([]error, len(machines))

	var wg sync.WaitGroup
	for i, m := range machines {
		wg.Add(1)
		go func(i int, m *sim.Machine) {
			defer wg.Done()

			errs[i] = m.Run(runCtx)
		}(i, m)
	}
	wg.Wait()

	result := Result{DeliveryFailures: o.failures.snapshot()}
	for i, m := range machines {
		if errs[i] == nil && m.State() == sim.StateStopped {
			result.Stopped = append(result.Stopped, m.ID())
		} else {
			result.Failed = append(result.Failed, m.ID())
		}
	}

	o.logf("run complete: %d stopped cleanly, %d failed, %d delivery failures",
		len(result.Stopped), len(result.Failed), len(result.DeliveryFailures))

	return result
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.logger == nil {
		return
	}

	o.logger.Printf("orchestrator: "+format, args...)
}
