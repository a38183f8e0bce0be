package sweep

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flow.report/internal/traffic"
)

func baseConfig() traffic.TrialConfig {
	return traffic.TrialConfig{
		RoadLength:      500,
		LaneCount:       1,
		SimTime:         20,
		Dt:              0.5,
		ArrivalInterval: -1,
	}
}

func TestRunnerSweep(t *testing.T) {
	r := NewRunner()
	req := Request{
		Base:           baseConfig(),
		VehicleCounts:  []int{0, 5},
		DistractedPcts: []float64{0, 50},
		Trials:         3,
		Seed:           42,
	}
	if err := r.Start(context.Background(), req); err != nil {
		t.Fatalf("Start: %v", err)
	}
	state := r.Wait()

	if state.Status != StatusComplete {
		t.Fatalf("status: got %s, want %s (error: %s)", state.Status, StatusComplete, state.Error)
	}
	if state.RunID == "" {
		t.Error("run ID not assigned")
	}
	if state.TotalCombos != 4 || state.CompletedCombos != 4 {
		t.Errorf("combos: got %d/%d, want 4/4", state.CompletedCombos, state.TotalCombos)
	}
	if len(state.Results) != 4 {
		t.Fatalf("results: got %d, want 4", len(state.Results))
	}
	if state.StartedAt == nil || state.CompletedAt == nil {
		t.Error("timestamps not recorded")
	}

	for _, combo := range state.Results {
		if combo.FailedTrials != 0 {
			t.Errorf("combo (%d, %.0f%%): %d failed trials", combo.VehicleCount, combo.DistractedPct, combo.FailedTrials)
		}
		if len(combo.Raw) != 3 {
			t.Errorf("combo (%d, %.0f%%): %d raw samples, want 3", combo.VehicleCount, combo.DistractedPct, len(combo.Raw))
		}
		if combo.VehicleCount > 0 && combo.MeanSpeed.Mean <= 0 {
			t.Errorf("combo (%d, %.0f%%): mean speed %f, want positive", combo.VehicleCount, combo.DistractedPct, combo.MeanSpeed.Mean)
		}
	}
}

func TestRunnerIsDeterministicPerSeed(t *testing.T) {
	req := Request{
		Base:           baseConfig(),
		VehicleCounts:  []int{5, 10},
		DistractedPcts: []float64{25},
		Trials:         4,
		Seed:           7,
		Workers:        3,
	}

	run := func() []ComboResult {
		r := NewRunner()
		if err := r.Start(context.Background(), req); err != nil {
			t.Fatalf("Start: %v", err)
		}
		state := r.Wait()
		if state.Status != StatusComplete {
			t.Fatalf("status: got %s (error: %s)", state.Status, state.Error)
		}
		return state.Results
	}

	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("same seed produced different sweep results (-first +second):\n%s", diff)
	}
}

func TestRunnerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner()
	req := Request{
		Base:           baseConfig(),
		VehicleCounts:  []int{0, 5},
		DistractedPcts: []float64{0},
		Trials:         2,
		Seed:           1,
	}
	if err := r.Start(ctx, req); err != nil {
		t.Fatalf("Start: %v", err)
	}
	state := r.Wait()

	if state.Status != StatusError {
		t.Fatalf("status after cancellation: got %s, want %s", state.Status, StatusError)
	}
	if !strings.Contains(state.Error, "sweep stopped") {
		t.Errorf("error message: got %q", state.Error)
	}
}

func TestRunnerRejectsBadRequests(t *testing.T) {
	r := NewRunner()

	bad := baseConfig()
	bad.RoadLength = 0
	if err := r.Start(context.Background(), Request{Base: bad, VehicleCounts: []int{1}}); err == nil {
		t.Error("invalid base config accepted")
	}

	if err := r.Start(context.Background(), Request{Base: baseConfig(), Trials: maxTrials + 1}); err == nil {
		t.Error("excessive trial count accepted")
	}

	counts := make([]int, maxCombos+1)
	if err := r.Start(context.Background(), Request{Base: baseConfig(), VehicleCounts: counts}); err == nil {
		t.Error("excessive combination count accepted")
	}
}

func TestRunnerExcludesFailedTrials(t *testing.T) {
	// A deployment with zero comfortable deceleration blows up the car
	// following model a step after injection, so every trial fails.
	base := baseConfig()
	base.Deployments = []traffic.Deployment{{
		Time: 0, Lane: 0, Position: 100, VelocityKmh: 72,
		Profile: traffic.DriverProfile{
			Type: traffic.DriverNormal, DesiredSpeed: 33, TimeHeadway: 1.5,
			MinGap: 2, MaxAccel: 0.3, ComfortDecel: 0, AccelExponent: 4, VehicleLength: 5,
		},
	}}

	r := NewRunner()
	req := Request{
		Base:           base,
		VehicleCounts:  []int{0},
		DistractedPcts: []float64{0},
		Trials:         2,
		Seed:           1,
	}
	if err := r.Start(context.Background(), req); err != nil {
		t.Fatalf("Start: %v", err)
	}
	state := r.Wait()

	if state.Status != StatusComplete {
		t.Fatalf("status: got %s (error: %s)", state.Status, state.Error)
	}
	if len(state.Results) != 1 {
		t.Fatalf("results: got %d, want 1", len(state.Results))
	}
	combo := state.Results[0]
	if combo.FailedTrials != 2 {
		t.Errorf("failed trials: got %d, want 2", combo.FailedTrials)
	}
	if len(combo.Raw) != 0 {
		t.Errorf("raw samples from failed trials: got %d, want 0", len(combo.Raw))
	}
	if len(state.Warnings) == 0 {
		t.Error("failed trials recorded no warnings")
	}
	if combo.MeanSpeed != (MetricSummary{}) {
		t.Errorf("summary over zero samples: got %+v, want zero", combo.MeanSpeed)
	}
}

func TestCSVOutput(t *testing.T) {
	r := NewRunner()
	req := Request{
		Base:           baseConfig(),
		VehicleCounts:  []int{5},
		DistractedPcts: []float64{0, 50},
		Trials:         2,
		Seed:           3,
	}
	if err := r.Start(context.Background(), req); err != nil {
		t.Fatalf("Start: %v", err)
	}
	state := r.Wait()

	var summary, raw bytes.Buffer
	w := NewCSVWriter(&summary, &raw)
	w.WriteState(state)

	summaryLines := strings.Split(strings.TrimSpace(summary.String()), "\n")
	if len(summaryLines) != 3 { // header + 2 combos
		t.Fatalf("summary lines: got %d, want 3\n%s", len(summaryLines), summary.String())
	}
	if !strings.HasPrefix(summaryLines[0], "vehicle_count,distracted_pct,trials,failed_trials,mean_speed_mean") {
		t.Errorf("summary header: %q", summaryLines[0])
	}

	rawLines := strings.Split(strings.TrimSpace(raw.String()), "\n")
	if len(rawLines) != 5 { // header + 2 combos * 2 trials
		t.Fatalf("raw lines: got %d, want 5\n%s", len(rawLines), raw.String())
	}
}

func TestChartAndPlotRejectEmptyState(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderFlowDensityChart(State{}, &buf); err == nil {
		t.Error("chart rendered with no results")
	}
	if err := SaveSpeedPlot(State{}, t.TempDir()+"/speed.png"); err == nil {
		t.Error("plot saved with no results")
	}
}

func TestRenderFlowDensityChart(t *testing.T) {
	state := State{
		RunID: "test",
		Results: []ComboResult{
			{VehicleCount: 5, DistractedPct: 0, Flow: MetricSummary{Mean: 0.1}, Density: MetricSummary{Mean: 0.01}},
			{VehicleCount: 10, DistractedPct: 50, Flow: MetricSummary{Mean: 0.08}, Density: MetricSummary{Mean: 0.02}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderFlowDensityChart(state, &buf))
	html := buf.String()
	assert.Contains(t, html, "echarts", "rendered output does not look like an echarts page")
	assert.Contains(t, html, "50% distracted", "rendered output missing the distracted series")
}
