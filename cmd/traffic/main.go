// Command traffic runs a single highway simulation trial and reports its
// aggregate metrics. Use traffic-sweep for Monte Carlo parameter sweeps.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/banshee-data/flow.report/internal/config"
	"github.com/banshee-data/flow.report/internal/traffic"
	"github.com/banshee-data/flow.report/internal/units"
)

func main() {
	configPath := flag.String("config", "", "Path to a JSON simulation config (optional)")
	roadLength := flag.Float64("road-length", 0, "Road length in metres (overrides config)")
	lanes := flag.Int("lanes", 0, "Number of lanes (overrides config)")
	vehicles := flag.Int("vehicles", -1, "Initial vehicle count (overrides config)")
	simTime := flag.Float64("sim-time", 0, "Simulated duration in seconds (overrides config)")
	dt := flag.Float64("dt", 0, "Integration time step in seconds (overrides config)")
	arrivalInterval := flag.Float64("arrival-interval", 0, "Seconds between arrivals per lane; negative disables inflow (overrides config)")
	distracted := flag.Float64("distracted", -1, "Distracted driver percentage 0-100 (overrides config)")
	seed := flag.Int64("seed", 1, "RNG seed for the trial")
	speedUnits := flag.String("units", units.KMPH, "Units for the printed mean speed: mps, mph, kmph, kph")
	stepsOutput := flag.String("steps-output", "", "Write per-step metrics CSV to this file")
	jsonOutput := flag.Bool("json", false, "Print the trial result as JSON")
	dryRun := flag.Bool("dry-run", false, "Print the assembled trial config and exit")
	flag.Parse()

	if !units.IsValid(*speedUnits) {
		fmt.Fprintf(os.Stderr, "invalid units %q: must be one of %s\n", *speedUnits, units.GetValidUnitsString())
		os.Exit(1)
	}

	cfg, err := buildTrialConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// CLI flags override whatever the config file said.
	if *roadLength > 0 {
		cfg.RoadLength = *roadLength
	}
	if *lanes > 0 {
		cfg.LaneCount = *lanes
	}
	if *vehicles >= 0 {
		cfg.VehicleCount = *vehicles
	}
	if *simTime > 0 {
		cfg.SimTime = *simTime
	}
	if *dt > 0 {
		cfg.Dt = *dt
	}
	if *arrivalInterval != 0 {
		cfg.ArrivalInterval = *arrivalInterval
	}
	if *distracted >= 0 {
		cfg.DistractedPct = *distracted
	}
	if *stepsOutput != "" {
		cfg.RecordSteps = true
	}

	if *dryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "encode error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	sim, err := traffic.NewSimulation(cfg, rand.New(rand.NewSource(*seed)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulation error: %v\n", err)
		os.Exit(1)
	}

	result, err := sim.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "trial failed: %v\n", err)
		os.Exit(1)
	}

	if *stepsOutput != "" {
		if err := writeStepsCSV(*stepsOutput, result.Steps); err != nil {
			fmt.Fprintf(os.Stderr, "could not write steps CSV: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Per-step metrics written to %s\n", *stepsOutput)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "encode error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Trial complete: %.0fs simulated (seed %d)\n", result.Duration, *seed)
	fmt.Printf("  spawned:    %d\n", result.Spawned)
	fmt.Printf("  exits:      %d\n", result.Exits)
	fmt.Printf("  remaining:  %d\n", result.FinalVehicleCount)
	fmt.Printf("  mean speed: %.2f %s\n", units.ConvertSpeed(result.MeanSpeed, *speedUnits), *speedUnits)
	fmt.Printf("  flow:       %.4f veh/s\n", result.Flow)
	fmt.Printf("  density:    %.5f veh/m\n", result.Density)
}

func buildTrialConfig(path string) (traffic.TrialConfig, error) {
	if path == "" {
		return (&config.SimConfig{}).TrialConfig()
	}
	cfg, err := config.LoadSimConfig(path)
	if err != nil {
		return traffic.TrialConfig{}, err
	}
	return cfg.TrialConfig()
}

func writeStepsCSV(path string, steps []traffic.StepMetrics) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"time", "vehicle_count", "mean_speed"})
	for _, s := range steps {
		w.Write([]string{
			fmt.Sprintf("%.1f", s.Time),
			fmt.Sprintf("%d", s.VehicleCount),
			fmt.Sprintf("%.6f", s.MeanSpeed),
		})
	}
	return nil
}
