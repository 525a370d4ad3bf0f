package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/MKJM2/cs2620-logical-clocks/analysis"
	"github.com/MKJM2/cs2620-logical-clocks/monitoring"
	"github.com/MKJM2/cs2620-logical-clocks/orchestration"
	"github.com/MKJM2/cs2620-logical-clocks/recording"
	"github.com/MKJM2/cs2620-logical-clocks/sim"
)

var runFlags struct {
	machines    int
	rateMin     int
	rateMax     int
	rates       []float64
	duration    time.Duration
	seed        int64
	trace       string
	monitorOn   bool
	monitorPort int
	openBrowser bool
	verbose     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation and record its event trace",
	RunE:  runSimulation,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.machines, "machines", 3,
		"number of machines in the mesh")
	f.IntVar(&runFlags.rateMin, "rate-min", 1,
		"lower bound of the uniform tick-rate range (ticks/sec)")
	f.IntVar(&runFlags.rateMax, "rate-max", 6,
		"upper bound of the uniform tick-rate range (ticks/sec)")
	f.Float64SliceVar(&runFlags.rates, "rates", nil,
		"explicit per-machine tick rates, overriding the uniform range")
	f.DurationVar(&runFlags.duration, "duration", 60*time.Second,
		"how long the simulation runs")
	f.Int64Var(&runFlags.seed, "seed", 0,
		"random seed (0 uses the current time)")
	f.StringVar(&runFlags.trace, "trace", "",
		"trace file path without extension (empty generates one)")
	f.BoolVar(&runFlags.monitorOn, "monitor", true,
		"serve live status over HTTP")
	f.IntVar(&runFlags.monitorPort, "monitor-port", 0,
		"port for the monitoring server (0 picks a random port)")
	f.BoolVar(&runFlags.openBrowser, "open", false,
		"open the monitoring page in a browser")
	f.BoolVar(&runFlags.verbose, "verbose", false,
		"log machine lifecycle events")

	rootCmd.AddCommand(runCmd)
}

// envOverrides applies LCLOCK_* environment variables (usually from .env)
// to flags the user did not set explicitly.
func envOverrides(cmd *cobra.Command) {
	overrideInt := func(flag, env string, dst *int) {
		if cmd.Flags().Changed(flag) {
			return
		}
		if v, err := strconv.Atoi(os.Getenv(env)); err == nil {
			*dst = v
		}
	}

	overrideInt("machines", "LCLOCK_MACHINES", &runFlags.machines)
	overrideInt("rate-min", "LCLOCK_RATE_MIN", &runFlags.rateMin)
	overrideInt("rate-max", "LCLOCK_RATE_MAX", &runFlags.rateMax)

	if !cmd.Flags().Changed("duration") {
		if v, err := time.ParseDuration(
			os.Getenv("LCLOCK_DURATION")); err == nil {
			runFlags.duration = v
		}
	}
}

func rateSpec() sim.RateSpec {
	if len(runFlags.rates) > 0 {
		rates := make(sim.ExplicitRates, len(runFlags.rates))
		for i, r := range runFlags.rates {
			rates[i] = sim.TickRate(r)
		}

		return rates
	}

	return sim.UniformRate{
		Min: sim.TickRate(runFlags.rateMin),
		Max: sim.TickRate(runFlags.rateMax),
	}
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	envOverrides(cmd)

	recorder := recording.NewRecorder(runFlags.trace)
	defer recorder.Close()

	builder := orchestration.MakeBuilder().
		WithMachineCount(runFlags.machines).
		WithRateSpec(rateSpec()).
		WithEventSink(recorder)

	if runFlags.seed != 0 {
		builder = builder.WithSeed(runFlags.seed)
	}

	if runFlags.verbose {
		builder = builder.WithLogger(
			log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds))
	}

	orch, err := builder.Build()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if runFlags.monitorOn {
		monitor := monitoring.NewMonitor()
		if runFlags.monitorPort > 0 {
			monitor.WithPortNumber(runFlags.monitorPort)
		}
		if runFlags.openBrowser {
			monitor.WithBrowser()
		}
		for _, m := range orch.Machines() {
			monitor.RegisterMachine(m)
		}
		monitor.RegisterStopFunc(cancel)
		monitor.StartServer()
	}

	result, err := orch.Run(ctx, runFlags.duration)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	fmt.Fprintf(os.Stderr,
		"stopped cleanly: %v, failed: %v, delivery failures: %d\n",
		result.Stopped, result.Failed, len(result.DeliveryFailures))

	recorder.Flush()
	summarizeTrace(recorder.Filename())

	return nil
}

func summarizeTrace(filename string) {
	reader, err := recording.OpenTrace(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot reopen trace: %v\n", err)
		atexit.Exit(1)
	}
	defer reader.Close()

	records, err := reader.Events(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read trace: %v\n", err)
		atexit.Exit(1)
	}

	analysis.Summarize(records).Write(os.Stdout)
}
