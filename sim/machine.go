package sim

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// dice draws the per-tick event policy value in [1, 10].
type dice interface {
	Roll() int
}

type uniformDice struct {
	rng *rand.Rand
}

func (d uniformDice) Roll() int {
	return d.rng.Intn(10) + 1
}

// action is the closed set of things a machine can do on a tick whose queue
// is empty.
type action int

const (
	actInternal action = iota
	actSendNext
	actSendAfterNext
	actBroadcast
)

// actionForDraw maps a draw in [1, 10] to an action: 1 sends to the next
// peer, 2 to the peer after next, 3 broadcasts, and 4..10 are internal.
func actionForDraw(n int) action {
	if n < 1 || n > 10 {
		log.Panicf("draw out of range: %d", n)
	}

	switch n {
	case 1:
		return actSendNext
	case 2:
		return actSendAfterNext
	case 3:
		return actBroadcast
	default:
		return actInternal
	}
}

// A Machine is one independently-clocked node of the simulation. It owns a
// Lamport clock and an inbound queue, ticks at a fixed wall-clock rate, and
// exchanges clock messages with its peers over directed links.
//
// A machine shares no mutable state with other machines. All cross-machine
// interaction goes through links carrying immutable ClockMsg values.
type Machine struct {
	id    MachineID
	rate  TickRate
	clock Clock
	queue *InboundQueue
	state stateVar

	// order is the fixed global id ordering of all machines, self included.
	// position is the index of this machine in order.
	order    []MachineID
	position int
	links    map[MachineID]*Link

	dice     dice
	sink     EventSink
	reporter FailureReporter
	retry    RetryConfig
	logger   *log.Logger
}

// MachineBuilder builds machines.
type MachineBuilder struct {
	id       MachineID
	rate     TickRate
	sink     EventSink
	reporter FailureReporter
	retry    RetryConfig
	seed     int64
	seedSet  bool
	logger   *log.Logger
}

// MakeMachineBuilder creates a builder with default settings.
func MakeMachineBuilder() MachineBuilder {
	return MachineBuilder{
		rate:     1,
		sink:     NullSink{},
		reporter: NullReporter{},
		retry:    DefaultRetryConfig(),
	}
}

// WithID sets the machine id.
func (b MachineBuilder) WithID(id MachineID) MachineBuilder {
	b.id = id
	return b
}

// WithTickRate sets the ticks per wall-clock second.
func (b MachineBuilder) WithTickRate(rate TickRate) MachineBuilder {
	b.rate = rate
	return b
}

// WithEventSink sets where per-tick event records go.
func (b MachineBuilder) WithEventSink(sink EventSink) MachineBuilder {
	b.sink = sink
	return b
}

// WithFailureReporter sets where delivery failures are reported.
func (b MachineBuilder) WithFailureReporter(r FailureReporter) MachineBuilder {
	b.reporter = r
	return b
}

// WithRetryConfig sets the link-establishment budget.
func (b MachineBuilder) WithRetryConfig(cfg RetryConfig) MachineBuilder {
	b.retry = cfg
	return b
}

// WithSeed fixes the random source of the event policy, making the draw
// sequence reproducible.
func (b MachineBuilder) WithSeed(seed int64) MachineBuilder {
	b.seed = seed
	b.seedSet = true
	return b
}

// WithLogger sets an optional lifecycle logger.
func (b MachineBuilder) WithLogger(l *log.Logger) MachineBuilder {
	b.logger = l
	return b
}

// Build creates the machine in the INIT state.
func (b MachineBuilder) Build() *Machine {
	if b.rate <= 0 {
		panic("tick rate must be positive")
	}

	seed := b.seed
	if !b.seedSet {
		seed = time.Now().UnixNano()
	}

	m := &Machine{
		id:       b.id,
		rate:     b.rate,
		queue:    NewInboundQueue(),
		links:    make(map[MachineID]*Link),
		dice:     uniformDice{rng: rand.New(rand.NewSource(seed))},
		sink:     b.sink,
		reporter: b.reporter,
		retry:    b.retry,
		logger:   b.logger,
	}
	m.state.set(StateInit)

	return m
}

// ID returns the machine's ordinal.
func (m *Machine) ID() MachineID {
	return m.id
}

// Rate returns the configured tick rate.
func (m *Machine) Rate() TickRate {
	return m.rate
}

// State returns the current lifecycle state.
func (m *Machine) State() MachineState {
	return m.state.get()
}

// ClockTime returns the current logical clock value.
func (m *Machine) ClockTime() LogicalTime {
	return m.clock.Time()
}

// QueueLen returns the current inbound queue length.
func (m *Machine) QueueLen() int {
	return m.queue.Size()
}

// deliver implements the receiving side of a link.
func (m *Machine) deliver(msg ClockMsg) {
	m.queue.Push(msg)
}

// setTopology wires the machine into the global id order with one outbound
// link per peer. Called once by the topology builder while the machine is
// still in INIT.
func (m *Machine) setTopology(order []MachineID, links []*Link) {
	if m.state.get() != StateInit {
		panic("topology can only be set before the machine starts")
	}

	m.order = order
	m.position = -1

	for i, id := range order {
		if id == m.id {
			m.position = i
		}
	}

	if m.position < 0 {
		panic("machine is not part of the given order")
	}

	for _, l := range links {
		m.links[l.Dst()] = l
	}
}

// peerAt resolves the global ordering at the given offset from this machine.
// In a two-machine mesh the after-next slot wraps back to self; that slot
// falls back to the next peer so that every send has a real target.
func (m *Machine) peerAt(offset int) MachineID {
	target := m.order[(m.position+offset)%len(m.order)]
	if target == m.id {
		return m.order[(m.position+1)%len(m.order)]
	}

	return target
}

// NextPeer is the send target for a draw of 1.
func (m *Machine) NextPeer() MachineID {
	return m.peerAt(1)
}

// AfterNextPeer is the send target for a draw of 2.
func (m *Machine) AfterNextPeer() MachineID {
	return m.peerAt(2)
}

// Connect transitions the machine to CONNECTING and establishes every
// outbound peer link. Any peer that stays unreachable within the retry
// budget fails the whole connect phase.
func (m *Machine) Connect(ctx context.Context) error {
	m.state.set(StateConnecting)
	m.logf("connecting to %d peers", len(m.order)-1)

	for _, id := range m.order {
		if id == m.id {
			continue
		}

		if err := m.links[id].Establish(ctx, m.retry); err != nil {
			return err
		}
	}

	return nil
}

// Run transitions the machine to RUNNING and ticks at 1/rate seconds until
// the context is cancelled. The in-flight tick always completes; no new tick
// begins after cancellation is observed. Run returns once the machine has
// reached STOPPED.
func (m *Machine) Run(ctx context.Context) error {
	m.state.set(StateRunning)
	m.logf("running at %v ticks/sec", m.rate)

	period := m.rate.Period()
	next := time.Now()
	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return m.stop()
		default:
		}

		m.Step(time.Now())

		// Schedule against the ideal deadline, not the finish time of the
		// tick, so a slow tick does not skew the rate permanently.
		next = next.Add(period)
		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}

		timer.Reset(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			return m.stop()
		}
	}
}

func (m *Machine) stop() error {
	m.state.set(StateStopping)
	m.state.set(StateStopped)
	m.logf("stopped at clock %d", m.clock.Time())

	return nil
}

// Step performs exactly one tick. A non-empty queue always takes priority:
// the oldest message is drained and the Lamport receive rule applied before
// any new local work is generated.
func (m *Machine) Step(now time.Time) {
	if msg, ok := m.queue.Pop(); ok {
		after := m.clock.Witness(msg.SenderClock)
		m.emit(now, EventRecv, after)

		return
	}

	after := m.clock.Increment()

	switch actionForDraw(m.dice.Roll()) {
	case actSendNext:
		m.send(m.NextPeer(), after)
		m.emit(now, EventSend, after)
	case actSendAfterNext:
		m.send(m.AfterNextPeer(), after)
		m.emit(now, EventSend, after)
	case actBroadcast:
		for _, id := range m.order {
			if id != m.id {
				m.send(id, after)
			}
		}
		m.emit(now, EventBroadcast, after)
	case actInternal:
		m.emit(now, EventInternal, after)
	}
}

// send builds and delivers one message. A delivery failure is reported and
// otherwise ignored: the local clock has already advanced and the local
// event is observed regardless of the delivery outcome.
func (m *Machine) send(dst MachineID, t LogicalTime) {
	msg := ClockMsgBuilder{}.
		WithSrc(m.id).
		WithDst(dst).
		WithSenderClock(t).
		Build()

	if err := m.links[dst].Deliver(msg); err != nil {
		m.reporter.ReportDeliveryFailure(m.id, dst, err)
		m.logf("delivery to %d failed", dst)
	}
}

func (m *Machine) emit(now time.Time, kind EventKind, after LogicalTime) {
	m.sink.Record(EventRecord{
		Timestamp:     now,
		MachineID:     m.id,
		Kind:          kind,
		ClockAfter:    after,
		QueueLenAfter: m.queue.Size(),
	})
}

func (m *Machine) logf(format string, args ...any) {
	if m.logger == nil {
		return
	}

	m.logger.Printf("machine %d: "+format, append([]any{m.id}, args...)...)
}
