package sim

import (
	"log"
	"math/rand"
	"time"
)

// A Topology is the static full mesh of machines and links, built once
// before a run. Next/after-next addressing is computed from the fixed global
// id ordering, not from link existence.
type Topology struct {
	machines []*Machine
}

// Machines returns the machines in id order.
func (t *Topology) Machines() []*Machine {
	return t.machines
}

// Machine returns the machine with the given id.
func (t *Topology) Machine(id MachineID) *Machine {
	return t.machines[id]
}

// Count returns the number of machines.
func (t *Topology) Count() int {
	return len(t.machines)
}

// TopologyBuilder builds full-mesh topologies.
type TopologyBuilder struct {
	count    int
	rates    RateSpec
	sink     EventSink
	reporter FailureReporter
	retry    RetryConfig
	seed     int64
	seedSet  bool
	logger   *log.Logger
}

// MakeTopologyBuilder creates a builder with default settings: rates drawn
// uniformly from [1, 6] ticks per second, events discarded.
func MakeTopologyBuilder() TopologyBuilder {
	return TopologyBuilder{
		rates:    UniformRate{Min: 1, Max: 6},
		sink:     NullSink{},
		reporter: NullReporter{},
		retry:    DefaultRetryConfig(),
	}
}

// WithMachineCount sets the number of machines.
func (b TopologyBuilder) WithMachineCount(count int) TopologyBuilder {
	b.count = count
	return b
}

// WithRateSpec sets how per-machine tick rates are drawn.
func (b TopologyBuilder) WithRateSpec(spec RateSpec) TopologyBuilder {
	b.rates = spec
	return b
}

// WithEventSink sets the sink shared by all machines.
func (b TopologyBuilder) WithEventSink(sink EventSink) TopologyBuilder {
	b.sink = sink
	return b
}

// WithFailureReporter sets the delivery-failure reporter shared by all
// machines.
func (b TopologyBuilder) WithFailureReporter(r FailureReporter) TopologyBuilder {
	b.reporter = r
	return b
}

// WithRetryConfig sets the link-establishment budget for all machines.
func (b TopologyBuilder) WithRetryConfig(cfg RetryConfig) TopologyBuilder {
	b.retry = cfg
	return b
}

// WithSeed fixes the random source for rate draws and machine event
// policies, making the whole topology reproducible.
func (b TopologyBuilder) WithSeed(seed int64) TopologyBuilder {
	b.seed = seed
	b.seedSet = true
	return b
}

// WithLogger sets an optional lifecycle logger shared by all machines.
func (b TopologyBuilder) WithLogger(l *log.Logger) TopologyBuilder {
	b.logger = l
	return b
}

// Build constructs the machines, draws their rates, and wires the full
// mesh. It returns a *ConfigError if the machine count or rate spec is
// invalid.
func (b TopologyBuilder) Build() (*Topology, error) {
	if b.count < 2 {
		return nil, NewConfigError(
			"a topology needs at least 2 machines, got %d", b.count)
	}

	if b.rates == nil {
		return nil, NewConfigError("no rate specification given")
	}

	if err := b.rates.Validate(b.count); err != nil {
		return nil, NewConfigError("%v", err)
	}

	seed := b.seed
	if !b.seedSet {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	order := make([]MachineID, b.count)
	machines := make([]*Machine, b.count)

	for i := 0; i < b.count; i++ {
		order[i] = MachineID(i)
		machines[i] = MakeMachineBuilder().
			WithID(MachineID(i)).
			WithTickRate(b.rates.Draw(i, rng)).
			WithEventSink(b.sink).
			WithFailureReporter(b.reporter).
			WithRetryConfig(b.retry).
			WithSeed(rng.Int63()).
			WithLogger(b.logger).
			Build()
	}

	for _, src := range machines {
		links := make([]*Link, 0, b.count-1)
		for _, dst := range machines {
			if dst.ID() != src.ID() {
				links = append(links, NewLink(src.ID(), dst))
			}
		}

		src.setTopology(order, links)
	}

	return &Topology{machines: machines}, nil
}
