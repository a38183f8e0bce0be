// Command traffic-sweep runs a Monte Carlo sweep over vehicle counts and
// distracted-driver percentages, then writes summary/raw CSVs and optional
// charts, plots and a SQLite record of the run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/banshee-data/flow.report/internal/config"
	"github.com/banshee-data/flow.report/internal/results"
	"github.com/banshee-data/flow.report/internal/sweep"
	"github.com/banshee-data/flow.report/internal/traffic"
)

func main() {
	configPath := flag.String("config", "", "Path to a JSON simulation config for the base trial (optional)")
	vehicleCounts := flag.String("vehicle-counts", "0:50:10", "Vehicle counts to sweep: comma-separated values or min:max:step range")
	distractedList := flag.String("distracted", "0:50:25", "Distracted percentages to sweep: comma-separated values or min:max:step range")
	distribution := flag.String("driver-distribution", "", "Archetype weights as aggressive,normal,cautious,polite,submissive (must sum to 1)")
	roadLength := flag.Float64("road-length", 0, "Road length in metres (overrides config)")
	lanes := flag.Int("lanes", 0, "Number of lanes (overrides config)")
	simTime := flag.Float64("sim-time", 0, "Simulated seconds per trial (overrides config)")
	dt := flag.Float64("dt", 0, "Integration timestep in seconds (overrides config)")
	arrivalInterval := flag.Float64("arrival-interval", 0, "Seconds between entry arrivals per lane; negative disables inflow (overrides config)")
	trials := flag.Int("trials", sweep.DefaultTrials, "Number of trials per parameter combination")
	seed := flag.Int64("seed", 1, "Base RNG seed; per-trial seeds derive from it")
	workers := flag.Int("workers", 0, "Concurrent trials per combination (0 = GOMAXPROCS)")
	output := flag.String("output", "", "Summary CSV filename (defaults to traffic-sweep-<timestamp>.csv)")
	rawOutput := flag.String("raw-output", "", "Raw per-trial CSV filename (defaults to <output>-raw.csv)")
	chartFile := flag.String("chart", "", "Write an HTML flow-vs-density chart to this file")
	plotFile := flag.String("plot", "", "Write a PNG mean-speed plot to this file")
	dbPath := flag.String("db", "", "Persist the run to this SQLite database")
	dryRun := flag.Bool("dry-run", false, "Print the parsed sweep request and exit")
	flag.Parse()

	counts, err := sweep.ParseIntParamList(*vehicleCounts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid vehicle-counts: %v\n", err)
		os.Exit(1)
	}
	pcts, err := sweep.ParseParamList(*distractedList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid distracted list: %v\n", err)
		os.Exit(1)
	}

	base, err := buildBaseConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if *roadLength > 0 {
		base.RoadLength = *roadLength
	}
	if *lanes > 0 {
		base.LaneCount = *lanes
	}
	if *simTime > 0 {
		base.SimTime = *simTime
	}
	if *dt > 0 {
		base.Dt = *dt
	}
	if *arrivalInterval != 0 {
		base.ArrivalInterval = *arrivalInterval
	}
	if *distribution != "" {
		dist, err := parseDistribution(*distribution)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid driver-distribution: %v\n", err)
			os.Exit(1)
		}
		base.Distribution = dist
	}

	req := sweep.Request{
		Base:           base,
		VehicleCounts:  counts,
		DistractedPcts: pcts,
		Trials:         *trials,
		Seed:           *seed,
		Workers:        *workers,
	}

	if *dryRun {
		fmt.Fprintf(os.Stderr, "parsed: counts=%v distracted=%v trials=%d seed=%d workers=%d\n",
			counts, pcts, *trials, *seed, *workers)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := sweep.NewRunner()
	if err := runner.Start(ctx, req); err != nil {
		fmt.Fprintf(os.Stderr, "could not start sweep: %v\n", err)
		os.Exit(1)
	}
	state := runner.Wait()

	if state.Status != sweep.StatusComplete {
		fmt.Fprintf(os.Stderr, "sweep did not complete: %s\n", state.Error)
		if len(state.Results) == 0 {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "writing %d completed combinations\n", len(state.Results))
	}
	for _, w := range state.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	filename := *output
	if filename == "" {
		filename = fmt.Sprintf("traffic-sweep-%s.csv", time.Now().Format("20060102-150405"))
	}
	rawFilename := *rawOutput
	if rawFilename == "" {
		rawFilename = filename + "-raw.csv"
	}

	f, err := os.Create(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create output file %s: %v\n", filename, err)
		os.Exit(1)
	}
	defer f.Close()

	fRaw, err := os.Create(rawFilename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create raw output file %s: %v\n", rawFilename, err)
		os.Exit(1)
	}
	defer fRaw.Close()

	w := sweep.NewCSVWriter(f, fRaw)
	w.WriteState(state)
	fmt.Printf("Summary written to %s, raw trials to %s\n", filename, rawFilename)

	if *chartFile != "" {
		cf, err := os.Create(*chartFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create chart file %s: %v\n", *chartFile, err)
			os.Exit(1)
		}
		if err := sweep.RenderFlowDensityChart(state, cf); err != nil {
			cf.Close()
			fmt.Fprintf(os.Stderr, "could not render chart: %v\n", err)
			os.Exit(1)
		}
		cf.Close()
		fmt.Printf("Chart written to %s\n", *chartFile)
	}

	if *plotFile != "" {
		if err := sweep.SaveSpeedPlot(state, *plotFile); err != nil {
			fmt.Fprintf(os.Stderr, "could not save plot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Plot written to %s\n", *plotFile)
	}

	if *dbPath != "" {
		store, err := results.Open(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not open results db: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.SaveRun(state); err != nil {
			fmt.Fprintf(os.Stderr, "could not save run: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Run %s saved to %s\n", state.RunID, *dbPath)
	}
}

func parseDistribution(s string) (traffic.DriverDistribution, error) {
	weights, err := sweep.ParseCSVFloat64s(s)
	if err != nil {
		return traffic.DriverDistribution{}, err
	}
	if len(weights) != 5 {
		return traffic.DriverDistribution{}, fmt.Errorf("expected 5 weights (aggressive,normal,cautious,polite,submissive), got %d", len(weights))
	}
	dist := traffic.DriverDistribution{
		Aggressive: weights[0],
		Normal:     weights[1],
		Cautious:   weights[2],
		Polite:     weights[3],
		Submissive: weights[4],
	}
	if err := dist.Validate(); err != nil {
		return traffic.DriverDistribution{}, err
	}
	return dist, nil
}

func buildBaseConfig(path string) (traffic.TrialConfig, error) {
	if path == "" {
		return (&config.SimConfig{}).TrialConfig()
	}
	cfg, err := config.LoadSimConfig(path)
	if err != nil {
		return traffic.TrialConfig{}, err
	}
	return cfg.TrialConfig()
}
