package sweep

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/flow.report/internal/traffic"
)

// Status represents the current state of a sweep run.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Limits on a single sweep run.
const (
	maxCombos = 1000
	maxTrials = 500

	// DefaultTrials is the Monte Carlo sample count per combination when the
	// request leaves Trials unset.
	DefaultTrials = 10

	// trialSeedStride spaces the seed blocks of adjacent combinations so a
	// trial's seed identifies its (combo, trial) pair uniquely.
	trialSeedStride = 1_000_000
)

// Request defines the parameters for starting a sweep. The two swept
// dimensions are the initial vehicle count and the distracted-driver
// percentage; everything else comes from the base trial config.
type Request struct {
	Base traffic.TrialConfig `json:"base"`

	VehicleCounts  []int     `json:"vehicle_counts"`
	DistractedPcts []float64 `json:"distracted_pcts"`

	Trials int   `json:"trials"`  // samples per combo
	Seed   int64 `json:"seed"`    // base seed; per-trial seeds derive from it
	Workers int  `json:"workers,omitempty"` // concurrent trials per combo; 0 = GOMAXPROCS
}

// TrialSample is one trial's outcome within a combination, tagged with the
// seed that reproduces it.
type TrialSample struct {
	Trial  int                 `json:"trial"`
	Seed   int64               `json:"seed"`
	Result traffic.TrialResult `json:"result"`
}

// ComboResult holds the aggregate result for one parameter combination.
type ComboResult struct {
	VehicleCount  int     `json:"vehicle_count"`
	DistractedPct float64 `json:"distracted_pct"`

	Trials       int `json:"trials"`
	FailedTrials int `json:"failed_trials,omitempty"`

	MeanSpeed MetricSummary `json:"mean_speed"`
	Flow      MetricSummary `json:"flow"`
	Density   MetricSummary `json:"density"`
	Exits     MetricSummary `json:"exits"`

	Raw []TrialSample `json:"raw,omitempty"`
}

// State holds the current state and results of a sweep.
type State struct {
	RunID           string        `json:"run_id,omitempty"`
	Status          Status        `json:"status"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	TotalCombos     int           `json:"total_combos"`
	CompletedCombos int           `json:"completed_combos"`
	Results         []ComboResult `json:"results"`
	Error           string        `json:"error,omitempty"`
	Warnings        []string      `json:"warnings,omitempty"`
	Request         *Request      `json:"request,omitempty"`
}

// Runner orchestrates parameter sweeps. A Runner serialises runs: only one
// sweep may be in flight at a time, and state is always read through a copy.
type Runner struct {
	mu     sync.RWMutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates an idle sweep runner.
func NewRunner() *Runner {
	return &Runner{
		state: State{Status: StatusIdle},
	}
}

// addWarning appends a warning message to the sweep state.
func (r *Runner) addWarning(msg string) {
	r.mu.Lock()
	r.state.Warnings = append(r.state.Warnings, msg)
	r.mu.Unlock()
}

// GetState returns a copy of the current sweep state.
func (r *Runner) GetState() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := r.state
	results := make([]ComboResult, len(r.state.Results))
	copy(results, r.state.Results)
	state.Results = results
	return state
}

// Start begins a new sweep run in the background. It validates the request,
// transitions to StatusRunning, and returns immediately; call Wait for the
// final state.
func (r *Runner) Start(ctx context.Context, req Request) error {
	if req.Trials == 0 {
		req.Trials = DefaultTrials
	}
	if req.Trials < 0 || req.Trials > maxTrials {
		return fmt.Errorf("trials must be in [1,%d], got %d", maxTrials, req.Trials)
	}
	if req.Workers <= 0 {
		req.Workers = runtime.GOMAXPROCS(0)
	}
	if len(req.VehicleCounts) == 0 {
		req.VehicleCounts = []int{0}
	}
	if len(req.DistractedPcts) == 0 {
		req.DistractedPcts = []float64{req.Base.DistractedPct}
	}

	totalCombos := len(req.VehicleCounts) * len(req.DistractedPcts)
	if totalCombos == 0 {
		return fmt.Errorf("no parameter combinations to sweep")
	}
	if totalCombos > maxCombos {
		return fmt.Errorf("parameter range too large: would generate %d combinations (max %d)", totalCombos, maxCombos)
	}

	// Validate the base config up front with the first combination applied,
	// so a broken request fails at Start rather than mid-sweep.
	probe := req.Base
	probe.VehicleCount = req.VehicleCounts[0]
	probe.DistractedPct = req.DistractedPcts[0]
	if _, err := traffic.NewSimulation(probe, rand.New(rand.NewSource(req.Seed))); err != nil {
		return fmt.Errorf("invalid sweep request: %w", err)
	}

	r.mu.Lock()
	if r.state.Status == StatusRunning {
		r.mu.Unlock()
		return fmt.Errorf("sweep already in progress")
	}

	now := time.Now()
	r.state = State{
		RunID:       uuid.New().String(),
		Status:      StatusRunning,
		StartedAt:   &now,
		TotalCombos: totalCombos,
		Results:     make([]ComboResult, 0, totalCombos),
		Request:     &req,
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	go r.run(sweepCtx, req, done)

	return nil
}

// Stop cancels a running sweep.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Wait blocks until the current run finishes and returns the final state.
func (r *Runner) Wait() State {
	r.mu.RLock()
	done := r.done
	r.mu.RUnlock()
	if done != nil {
		<-done
	}
	return r.GetState()
}

// run executes the sweep in a background goroutine.
func (r *Runner) run(ctx context.Context, req Request, done chan struct{}) {
	defer close(done)

	totalCombos := len(req.VehicleCounts) * len(req.DistractedPcts)
	comboNum := 0

	for _, count := range req.VehicleCounts {
		for _, pct := range req.DistractedPcts {
			// A cancelled sweep discards the partial combination; completed
			// combinations already in Results stay valid.
			select {
			case <-ctx.Done():
				r.mu.Lock()
				r.state.Status = StatusError
				r.state.Error = fmt.Sprintf("sweep stopped at combination %d/%d: %v", comboNum, totalCombos, ctx.Err())
				now := time.Now()
				r.state.CompletedAt = &now
				r.mu.Unlock()
				return
			default:
			}

			comboNum++
			log.Printf("[sweep] Combination %d/%d: vehicles=%d, distracted=%.1f%%",
				comboNum, totalCombos, count, pct)

			combo := r.runCombo(req, comboNum-1, count, pct)

			r.mu.Lock()
			r.state.Results = append(r.state.Results, combo)
			r.state.CompletedCombos = comboNum
			r.mu.Unlock()
		}
	}

	r.mu.Lock()
	r.state.Status = StatusComplete
	now := time.Now()
	r.state.CompletedAt = &now
	r.mu.Unlock()
	log.Printf("[sweep] Complete: %d combinations, %d trials each", totalCombos, req.Trials)
}

// runCombo runs all trials of one combination, bounded by req.Workers, and
// aggregates the survivors. Trial seeds derive from the base seed, the combo
// index and the trial index, so any single trial can be replayed in
// isolation.
func (r *Runner) runCombo(req Request, comboIdx, count int, pct float64) ComboResult {
	cfg := req.Base
	cfg.VehicleCount = count
	cfg.DistractedPct = pct

	samples := make([]TrialSample, req.Trials)
	errs := make([]error, req.Trials)

	var wg sync.WaitGroup
	sem := make(chan struct{}, req.Workers)
	for trial := 0; trial < req.Trials; trial++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(trial int) {
			defer wg.Done()
			defer func() { <-sem }()

			seed := req.Seed + int64(comboIdx)*trialSeedStride + int64(trial)
			res, err := runTrial(cfg, seed)
			if err != nil {
				errs[trial] = err
				return
			}
			samples[trial] = TrialSample{Trial: trial, Seed: seed, Result: res}
		}(trial)
	}
	wg.Wait()

	combo := ComboResult{
		VehicleCount:  count,
		DistractedPct: pct,
		Trials:        req.Trials,
	}
	var speeds, flows, densities, exits []float64
	for trial := 0; trial < req.Trials; trial++ {
		if err := errs[trial]; err != nil {
			combo.FailedTrials++
			log.Printf("[sweep] WARNING: trial %d of combination %d failed: %v", trial, comboIdx+1, err)
			r.addWarning(fmt.Sprintf("combo %d trial %d failed (excluded): %v", comboIdx+1, trial, err))
			continue
		}
		s := samples[trial]
		combo.Raw = append(combo.Raw, s)
		speeds = append(speeds, s.Result.MeanSpeed)
		flows = append(flows, s.Result.Flow)
		densities = append(densities, s.Result.Density)
		exits = append(exits, float64(s.Result.Exits))
	}

	combo.MeanSpeed = Summarise(speeds)
	combo.Flow = Summarise(flows)
	combo.Density = Summarise(densities)
	combo.Exits = Summarise(exits)

	mean, stddev := MeanStddev(speeds)
	log.Printf("[sweep] Results: mean_speed=%.3f±%.3f m/s, flow=%.4f veh/s (%d/%d trials)",
		mean, stddev, combo.Flow.Mean, len(speeds), req.Trials)
	return combo
}

func runTrial(cfg traffic.TrialConfig, seed int64) (traffic.TrialResult, error) {
	sim, err := traffic.NewSimulation(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return traffic.TrialResult{}, err
	}
	return sim.Run()
}
