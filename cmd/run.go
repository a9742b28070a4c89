package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fleetsim/fleetsim/sim"
	"github.com/fleetsim/fleetsim/sim/observe"
	"github.com/fleetsim/fleetsim/sim/scenario"
	"github.com/fleetsim/fleetsim/sim/store"
	"github.com/fleetsim/fleetsim/sim/trace"
)

var (
	// CLI flags for a single run
	scenarioPath string  // Scenario YAML
	seed         int64   // Seed for vehicle placement and order generation
	vehicles     int     // Number of vehicles
	orders       int     // Number of generated orders
	speed        float64 // Steps per second, 0 = as fast as possible
	maxSteps     int     // Step horizon, 0 = unbounded
	historyPath  string  // Where to write the history JSON
	redisURL     string  // Publish progress to Redis
	databaseURL  string  // Persist the history to Postgres
	traceOn      bool    // Record assignment decisions
	logEvery     int     // Log every N steps at debug level
)

// runOptions is everything a run needs besides the scenario itself.
type runOptions struct {
	scenario    string
	override    func(*sim.SimulationParameters)
	historyPath string
	redisURL    string
	databaseURL string
	logEvery    int
}

// runCmd executes one simulation from a scenario file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a fleet simulation from a scenario file",
	Run: func(cmd *cobra.Command, args []string) {
		if scenarioPath == "" {
			logrus.Fatalf("Scenario not provided. Exiting simulation.")
		}
		flags := cmd.Flags()
		opts := runOptions{
			scenario:    scenarioPath,
			historyPath: historyPath,
			redisURL:    getEnvUnlessSet(flags.Changed("redis-url"), "REDIS_URL", redisURL),
			databaseURL: getEnvUnlessSet(flags.Changed("database-url"), "DATABASE_URL", databaseURL),
			logEvery:    logEvery,
			override: func(p *sim.SimulationParameters) {
				if flags.Changed("seed") {
					p.Seed = seed
				}
				if flags.Changed("vehicles") {
					p.NumberOfVehicles = vehicles
				}
				if flags.Changed("orders") {
					p.NumberOfOrders = orders
				}
				if flags.Changed("speed") {
					p.SimulationSpeed = speed
				}
				if flags.Changed("max-steps") {
					p.MaxSteps = maxSteps
				}
				if traceOn {
					p.TraceLevel = trace.TraceLevelDecisions
				}
			},
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		startTime := time.Now()
		h, s, err := runSimulation(ctx, opts)
		if s != nil {
			s.Metrics().Print(os.Stdout)
			if tr := s.Trace(); tr != nil {
				printTraceSummary(os.Stdout, trace.Summarize(tr))
			}
		}
		if err := logOutcome(logrus.StandardLogger(), h, err, time.Since(startTime)); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

// logOutcome logs how the run ended. Cancellation is an outcome, not a
// failure; any other error is returned to the caller.
func logOutcome(log logrus.FieldLogger, h *sim.History, err error, elapsed time.Duration) error {
	elapsed = elapsed.Round(time.Millisecond)
	switch {
	case errors.Is(err, sim.ErrCancelled) && h != nil:
		log.Warnf("Simulation %s in %v after %d steps: %v", h.Outcome, elapsed, h.Len(), err)
		return nil
	case err != nil:
		return err
	}
	log.Infof("Simulation %s in %v after %d steps.", h.Outcome, elapsed, h.Len())
	return nil
}

func getEnvUnlessSet(changed bool, key, value string) string {
	if changed {
		return value
	}
	return getEnv(key, value)
}

// runSimulation loads the scenario, wires the configured sinks and runs to the end.
// The simulator is returned whenever it was built, even if the run failed.
func runSimulation(ctx context.Context, opts runOptions) (*sim.History, *sim.Simulator, error) {
	sc, err := scenario.Load(opts.scenario)
	if err != nil {
		return nil, nil, err
	}
	params, err := sc.Build()
	if err != nil {
		return nil, nil, err
	}
	if opts.override != nil {
		opts.override(&params)
	}
	s, err := sim.NewSimulator(params)
	if err != nil {
		return nil, nil, err
	}

	sinks := sim.MultiSink{observe.NewLogSink(opts.logEvery)}
	if opts.redisURL != "" {
		b, err := observe.NewRedisBrokerFromURL(opts.redisURL)
		if err != nil {
			return nil, s, fmt.Errorf("redis: %w", err)
		}
		defer func() { _ = b.Close() }()
		sinks = append(sinks, observe.BrokerSink{Broker: b, SimulationID: s.ID().String()})
	}
	if opts.databaseURL != "" {
		pg, err := store.NewPostgres(opts.databaseURL)
		if err != nil {
			return nil, s, err
		}
		defer func() { _ = pg.Close() }()
		if err := pg.Migrate(ctx); err != nil {
			return nil, s, err
		}
		sinks = append(sinks, store.Sink{Store: pg, Timeout: 10 * time.Second})
	}

	h, runErr := s.Simulate(ctx, sinks)
	if opts.historyPath != "" && h != nil {
		if err := writeHistory(opts.historyPath, h); err != nil {
			return h, s, err
		}
	}
	return h, s, runErr
}

func writeHistory(path string, h *sim.History) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing history: %w", err)
	}
	return f.Close()
}

func printTraceSummary(w io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Dispatch Trace ===")
	fmt.Fprintf(w, "Assignments          : %d (%d direct)\n", ts.TotalAssignments, ts.DirectDispatches)
	fmt.Fprintf(w, "Orders Assigned      : %d (%d skipped)\n", ts.OrdersAssigned, ts.OrdersSkipped)
	fmt.Fprintf(w, "Batch Size           : %.2f mean, %d max\n", ts.MeanBatchSize, ts.MaxBatchSize)
	fmt.Fprintf(w, "Mean Reposition      : %.2f m\n", ts.MeanReposition)
	fmt.Fprintf(w, "Deliveries           : %d (%d orders)\n", ts.TotalDeliveries, ts.OrdersDelivered)
}

func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for vehicle placement and order generation")
	runCmd.Flags().IntVar(&vehicles, "vehicles", 1, "Number of vehicles (overrides the scenario)")
	runCmd.Flags().IntVar(&orders, "orders", 0, "Number of generated orders (overrides the scenario)")
	runCmd.Flags().Float64Var(&speed, "speed", 0, "Steps per second; 0 runs unpaced")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Stop after this many steps; 0 is unbounded")
	runCmd.Flags().StringVar(&historyPath, "history", "", "Write the step history as JSON to this file")
	runCmd.Flags().StringVar(&redisURL, "redis-url", "", "Publish progress to Redis (default $REDIS_URL)")
	runCmd.Flags().StringVar(&databaseURL, "database-url", "", "Persist the history to Postgres (default $DATABASE_URL)")
	runCmd.Flags().BoolVar(&traceOn, "trace", false, "Record and summarise assignment decisions")
	runCmd.Flags().IntVar(&logEvery, "log-every", 100, "Log progress every N steps at debug level")
}
