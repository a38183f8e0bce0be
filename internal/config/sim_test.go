package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/flow.report/internal/traffic"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.json")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadSimConfigDefaults(t *testing.T) {
	cfg, err := LoadSimConfig(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("LoadSimConfig: %v", err)
	}

	trial, err := cfg.TrialConfig()
	if err != nil {
		t.Fatalf("TrialConfig: %v", err)
	}
	want := traffic.TrialConfig{
		RoadLength: 1000,
		LaneCount:  3,
		SimTime:    120,
		Dt:         0.5,
	}
	if diff := cmp.Diff(want, trial); diff != "" {
		t.Errorf("default trial config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSimConfigPartialOverride(t *testing.T) {
	cfg, err := LoadSimConfig(writeConfig(t, `{
		"road_length": 2000,
		"vehicle_count": 40,
		"distracted_pct": 25,
		"distribution": {"normal": 1.0}
	}`))
	if err != nil {
		t.Fatalf("LoadSimConfig: %v", err)
	}

	trial, err := cfg.TrialConfig()
	if err != nil {
		t.Fatalf("TrialConfig: %v", err)
	}
	if trial.RoadLength != 2000 || trial.VehicleCount != 40 {
		t.Errorf("overrides not applied: %+v", trial)
	}
	if trial.LaneCount != 3 || trial.Dt != 0.5 {
		t.Errorf("defaults not retained: %+v", trial)
	}
	if trial.Distribution.Normal != 1.0 {
		t.Errorf("distribution not applied: %+v", trial.Distribution)
	}
}

func TestLoadSimConfigDeployments(t *testing.T) {
	cfg, err := LoadSimConfig(writeConfig(t, `{
		"deployments": [
			{"time": 10, "lane": 0, "position": 500, "type": "obstacle"},
			{"time": 0, "lane": 1, "position": 0, "velocity_kmh": 90, "type": "aggressive", "distracted": true}
		]
	}`))
	if err != nil {
		t.Fatalf("LoadSimConfig: %v", err)
	}

	trial, err := cfg.TrialConfig()
	if err != nil {
		t.Fatalf("TrialConfig: %v", err)
	}
	if len(trial.Deployments) != 2 {
		t.Fatalf("deployments: got %d, want 2", len(trial.Deployments))
	}

	obstacle := trial.Deployments[0]
	if obstacle.Profile.Type != traffic.DriverObstacle || obstacle.Profile.MaxAccel != 0 {
		t.Errorf("obstacle profile: %+v", obstacle.Profile)
	}

	driver := trial.Deployments[1]
	if driver.Profile.Type != traffic.DriverAggressive {
		t.Errorf("driver type: got %s, want aggressive", driver.Profile.Type)
	}
	base := traffic.DefaultArchetypes()[traffic.DriverAggressive].TimeHeadway
	want := base * traffic.DefaultDistractedPenalty
	if driver.Profile.TimeHeadway != want {
		t.Errorf("distracted headway: got %f, want %f", driver.Profile.TimeHeadway, want)
	}
}

func TestLoadSimConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"bad json", `{`},
		{"zero road", `{"road_length": 0}`},
		{"zero lanes", `{"lane_count": 0}`},
		{"zero dt", `{"dt": 0}`},
		{"distracted out of range", `{"distracted_pct": 150}`},
		{"bad distribution", `{"distribution": {"normal": 0.5}}`},
		{"deployment without type", `{"deployments": [{"lane": 0, "position": 10}]}`},
		{"deployment unknown type", `{"deployments": [{"lane": 0, "position": 10, "type": "reckless"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadSimConfig(writeConfig(t, tc.contents)); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}

	if _, err := LoadSimConfig("nonexistent.json"); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := LoadSimConfig(filepath.Join(t.TempDir(), "sim.yaml")); err == nil {
		t.Error("non-json extension accepted")
	}
}
