// Package analysis aggregates recorded event traces into the metrics the
// simulation is designed to study: clock drift between machines, clock
// jumps, and inbound queue buildup.
package analysis

import (
	"fmt"
	"io"
	"sort"

	"github.com/MKJM2/cs2620-logical-clocks/sim"
)

// EventMix counts the event kinds a machine produced.
type EventMix struct {
	Internal  int
	Send      int
	Recv      int
	Broadcast int
}

// Total returns the number of counted events.
func (m EventMix) Total() int {
	return m.Internal + m.Send + m.Recv + m.Broadcast
}

// A MachineSummary aggregates one machine's trace.
type MachineSummary struct {
	MachineID sim.MachineID
	Ticks     int

	FinalClock sim.LogicalTime

	// MaxJump is the largest single-tick clock increase. Anything above 1
	// is a RECV that witnessed a higher remote clock.
	MaxJump sim.LogicalTime

	// LogicalRate is logical clock units per wall-clock second.
	LogicalRate float64

	MeanQueueLen float64
	MaxQueueLen  int

	Mix EventMix
}

// A Summary aggregates a whole run.
type Summary struct {
	Machines []MachineSummary

	// MaxDrift is the spread between the largest and smallest final clock
	// values across machines.
	MaxDrift sim.LogicalTime
}

// Summarize computes per-machine and cross-machine statistics from a trace.
// Records may be interleaved across machines but must be in per-machine
// emission order, which is how both the recorder and the reader keep them.
func Summarize(records []sim.EventRecord) Summary {
	perMachine := make(map[sim.MachineID][]sim.EventRecord)
	for _, rec := range records {
		perMachine[rec.MachineID] = append(perMachine[rec.MachineID], rec)
	}

	ids := make([]sim.MachineID, 0, len(perMachine))
	for id := range perMachine {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	summary := Summary{}
	for _, id := range ids {
		summary.Machines = append(summary.Machines,
			summarizeMachine(id, perMachine[id]))
	}

	if len(summary.Machines) > 0 {
		minClock := summary.Machines[0].FinalClock
		maxClock := summary.Machines[0].FinalClock
		for _, m := range summary.Machines[1:] {
			if m.FinalClock < minClock {
				minClock = m.FinalClock
			}
			if m.FinalClock > maxClock {
				maxClock = m.FinalClock
			}
		}

		summary.MaxDrift = maxClock - minClock
	}

	return summary
}

func summarizeMachine(
	id sim.MachineID,
	recs []sim.EventRecord,
) MachineSummary {
	s := MachineSummary{MachineID: id, Ticks: len(recs)}

	queueTotal := 0
	prevClock := sim.LogicalTime(0)

	for i, rec := range recs {
		switch rec.Kind {
		case sim.EventInternal:
			s.Mix.Internal++
		case sim.EventSend:
			s.Mix.Send++
		case sim.EventRecv:
			s.Mix.Recv++
		case sim.EventBroadcast:
			s.Mix.Broadcast++
		}

		jump := rec.ClockAfter - prevClock
		if i == 0 {
			jump = rec.ClockAfter
		}
		if jump > s.MaxJump {
			s.MaxJump = jump
		}
		prevClock = rec.ClockAfter

		queueTotal += rec.QueueLenAfter
		if rec.QueueLenAfter > s.MaxQueueLen {
			s.MaxQueueLen = rec.QueueLenAfter
		}
	}

	if len(recs) > 0 {
		s.FinalClock = recs[len(recs)-1].ClockAfter
		s.MeanQueueLen = float64(queueTotal) / float64(len(recs))

		elapsed := recs[len(recs)-1].Timestamp.
			Sub(recs[0].Timestamp).Seconds()
		if elapsed > 0 {
			clockChange := recs[len(recs)-1].ClockAfter - recs[0].ClockAfter
			s.LogicalRate = float64(clockChange) / elapsed
		}
	}

	return s
}

// Write prints the summary as a table.
func (s Summary) Write(w io.Writer) {
	fmt.Fprintf(w,
		"machine  ticks  clock  rate     jump  mean-q  max-q  i/s/r/b\n")

	for _, m := range s.Machines {
		mixStr := "-"
		if total := m.Mix.Total(); total > 0 {
			mixStr = fmt.Sprintf("%d/%d/%d/%d",
				m.Mix.Internal*100/total,
				m.Mix.Send*100/total,
				m.Mix.Recv*100/total,
				m.Mix.Broadcast*100/total)
		}

		fmt.Fprintf(w, "%-8d %-6d %-6d %-8.1f %-5d %-7.1f %-6d %s\n",
			m.MachineID, m.Ticks, m.FinalClock, m.LogicalRate,
			m.MaxJump, m.MeanQueueLen, m.MaxQueueLen, mixStr)
	}

	fmt.Fprintf(w, "max drift between machines: %d\n", s.MaxDrift)
}
