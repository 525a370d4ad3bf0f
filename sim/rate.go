package sim

import (
	"fmt"
	"math/rand"
	"time"
)

// TickRate defines how many ticks a machine performs per wall-clock second.
type TickRate float64

// Period returns the wall-clock time between two consecutive ticks.
func (r TickRate) Period() time.Duration {
	if r <= 0 {
		panic("tick rate must be positive")
	}

	return time.Duration(float64(time.Second) / float64(r))
}

// A RateSpec draws the tick rate for each machine in a topology.
type RateSpec interface {
	// Validate reports whether the spec can produce positive rates for
	// count machines.
	Validate(count int) error

	// Draw returns the tick rate for the machine with the given ordinal.
	Draw(id int, rng *rand.Rand) TickRate
}

// FixedRate assigns the same tick rate to every machine.
type FixedRate TickRate

// Validate checks that the rate is positive.
func (r FixedRate) Validate(_ int) error {
	if r <= 0 {
		return fmt.Errorf("fixed tick rate must be positive, got %v", TickRate(r))
	}

	return nil
}

// Draw returns the fixed rate.
func (r FixedRate) Draw(_ int, _ *rand.Rand) TickRate {
	return TickRate(r)
}

// UniformRate draws each machine's rate uniformly from [Min, Max] at integer
// granularity, matching the classic 1..6 ticks-per-second assignment setup.
type UniformRate struct {
	Min, Max TickRate
}

// Validate checks the range bounds.
func (r UniformRate) Validate(_ int) error {
	if r.Min <= 0 {
		return fmt.Errorf("minimum tick rate must be positive, got %v", r.Min)
	}

	if r.Max < r.Min {
		return fmt.Errorf("tick rate range inverted: [%v, %v]", r.Min, r.Max)
	}

	return nil
}

// Draw picks an integer rate in [Min, Max].
func (r UniformRate) Draw(_ int, rng *rand.Rand) TickRate {
	span := int(r.Max) - int(r.Min) + 1

	return TickRate(int(r.Min) + rng.Intn(span))
}

// ExplicitRates assigns one listed rate per machine, in id order.
type ExplicitRates []TickRate

// Validate checks that the list covers all machines with positive rates.
func (r ExplicitRates) Validate(count int) error {
	if len(r) != count {
		return fmt.Errorf(
			"expected %d tick rates, got %d", count, len(r))
	}

	for i, rate := range r {
		if rate <= 0 {
			return fmt.Errorf(
				"tick rate for machine %d must be positive, got %v", i, rate)
		}
	}

	return nil
}

// Draw returns the listed rate for the machine.
func (r ExplicitRates) Draw(id int, _ *rand.Rand) TickRate {
	return r[id]
}
