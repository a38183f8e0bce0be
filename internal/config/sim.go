// Package config loads simulation configuration from JSON files. Fields use
// pointer types so a partial config file overrides only what it names; every
// omitted field falls back to the engine default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/flow.report/internal/traffic"
)

// DeploymentConfig schedules one explicit vehicle in the config file. Type
// names a driver archetype, or "obstacle" for a stationary blocker.
type DeploymentConfig struct {
	Time        float64 `json:"time"`
	Lane        int     `json:"lane"`
	Position    float64 `json:"position"`
	VelocityKmh float64 `json:"velocity_kmh"`
	Type        string  `json:"type"`
	Distracted  bool    `json:"distracted,omitempty"`
}

// SimConfig represents the root configuration for a simulation run. The
// schema mirrors traffic.TrialConfig; fields omitted from the JSON file
// retain the engine defaults, so partial configs are safe.
type SimConfig struct {
	RoadLength   *float64 `json:"road_length,omitempty"`
	LaneCount    *int     `json:"lane_count,omitempty"`
	VehicleCount *int     `json:"vehicle_count,omitempty"`
	SimTime      *float64 `json:"sim_time,omitempty"`
	Dt           *float64 `json:"dt,omitempty"`

	ArrivalInterval  *float64 `json:"arrival_interval,omitempty"`
	EntrySpeedMinKmh *float64 `json:"entry_speed_min_kmh,omitempty"`
	EntrySpeedMaxKmh *float64 `json:"entry_speed_max_kmh,omitempty"`
	EntryMinGap      *float64 `json:"entry_min_gap,omitempty"`

	DistractedPct     *float64 `json:"distracted_pct,omitempty"`
	DistractedPenalty *float64 `json:"distracted_penalty,omitempty"`

	Distribution *traffic.DriverDistribution                    `json:"distribution,omitempty"`
	Archetypes   map[traffic.DriverType]traffic.ArchetypeParams `json:"archetypes,omitempty"`

	Deployments []DeploymentConfig `json:"deployments,omitempty"`
	RecordSteps *bool              `json:"record_steps,omitempty"`
}

// LoadSimConfig loads a SimConfig from a JSON file. The file is validated to
// ensure it has a .json extension and is under the max file size.
func LoadSimConfig(path string) (*SimConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &SimConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the values this package can judge on its own. Structural
// checks that need the assembled trial config happen in the traffic package.
func (c *SimConfig) Validate() error {
	if c.RoadLength != nil && *c.RoadLength <= 0 {
		return fmt.Errorf("road_length must be positive, got %f", *c.RoadLength)
	}
	if c.LaneCount != nil && *c.LaneCount < 1 {
		return fmt.Errorf("lane_count must be at least 1, got %d", *c.LaneCount)
	}
	if c.Dt != nil && *c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", *c.Dt)
	}
	if c.SimTime != nil && *c.SimTime <= 0 {
		return fmt.Errorf("sim_time must be positive, got %f", *c.SimTime)
	}
	if c.DistractedPct != nil && (*c.DistractedPct < 0 || *c.DistractedPct > 100) {
		return fmt.Errorf("distracted_pct must be between 0 and 100, got %f", *c.DistractedPct)
	}
	if c.Distribution != nil {
		if err := c.Distribution.Validate(); err != nil {
			return err
		}
	}
	for i, d := range c.Deployments {
		if d.Type == "" {
			return fmt.Errorf("deployment %d: type is required", i)
		}
		if _, err := c.resolveProfile(d); err != nil {
			return fmt.Errorf("deployment %d: %w", i, err)
		}
	}
	return nil
}

// TrialConfig assembles the full trial configuration, applying the config
// file's overrides on top of the engine defaults.
func (c *SimConfig) TrialConfig() (traffic.TrialConfig, error) {
	cfg := traffic.TrialConfig{
		RoadLength:   c.GetRoadLength(),
		LaneCount:    c.GetLaneCount(),
		VehicleCount: c.GetVehicleCount(),
		SimTime:      c.GetSimTime(),
		Dt:           c.GetDt(),
	}
	if c.ArrivalInterval != nil {
		cfg.ArrivalInterval = *c.ArrivalInterval
	}
	if c.EntrySpeedMinKmh != nil {
		cfg.EntrySpeedMinKmh = *c.EntrySpeedMinKmh
	}
	if c.EntrySpeedMaxKmh != nil {
		cfg.EntrySpeedMaxKmh = *c.EntrySpeedMaxKmh
	}
	if c.EntryMinGap != nil {
		cfg.EntryMinGap = *c.EntryMinGap
	}
	if c.DistractedPct != nil {
		cfg.DistractedPct = *c.DistractedPct
	}
	if c.DistractedPenalty != nil {
		cfg.DistractedPenalty = *c.DistractedPenalty
	}
	if c.Distribution != nil {
		cfg.Distribution = *c.Distribution
	}
	if c.Archetypes != nil {
		cfg.Archetypes = c.Archetypes
	}
	if c.RecordSteps != nil {
		cfg.RecordSteps = *c.RecordSteps
	}

	for i, d := range c.Deployments {
		profile, err := c.resolveProfile(d)
		if err != nil {
			return traffic.TrialConfig{}, fmt.Errorf("deployment %d: %w", i, err)
		}
		cfg.Deployments = append(cfg.Deployments, traffic.Deployment{
			Time:        d.Time,
			Lane:        d.Lane,
			Position:    d.Position,
			VelocityKmh: d.VelocityKmh,
			Profile:     profile,
		})
	}
	return cfg, nil
}

// resolveProfile maps a deployment's type name to a driver profile, applying
// the distraction penalty when the deployment asks for it.
func (c *SimConfig) resolveProfile(d DeploymentConfig) (traffic.DriverProfile, error) {
	if traffic.DriverType(d.Type) == traffic.DriverObstacle {
		return traffic.ObstacleProfile(), nil
	}

	archetypes := c.Archetypes
	if archetypes == nil {
		archetypes = traffic.DefaultArchetypes()
	}
	params, ok := archetypes[traffic.DriverType(d.Type)]
	if !ok {
		return traffic.DriverProfile{}, fmt.Errorf("unknown driver type %q", d.Type)
	}

	profile := traffic.ProfileFor(traffic.DriverType(d.Type), params)
	if d.Distracted {
		penalty := traffic.DefaultDistractedPenalty
		if c.DistractedPenalty != nil {
			penalty = *c.DistractedPenalty
		}
		profile.TimeHeadway *= penalty
		profile.Distracted = true
	}
	return profile, nil
}

// GetRoadLength returns the road_length value or the default.
func (c *SimConfig) GetRoadLength() float64 {
	if c.RoadLength == nil {
		return 1000 // default: 1km road
	}
	return *c.RoadLength
}

// GetLaneCount returns the lane_count value or the default.
func (c *SimConfig) GetLaneCount() int {
	if c.LaneCount == nil {
		return 3
	}
	return *c.LaneCount
}

// GetVehicleCount returns the vehicle_count value or the default.
func (c *SimConfig) GetVehicleCount() int {
	if c.VehicleCount == nil {
		return 0
	}
	return *c.VehicleCount
}

// GetSimTime returns the sim_time value or the default.
func (c *SimConfig) GetSimTime() float64 {
	if c.SimTime == nil {
		return 120
	}
	return *c.SimTime
}

// GetDt returns the dt value or the default.
func (c *SimConfig) GetDt() float64 {
	if c.Dt == nil {
		return 0.5
	}
	return *c.Dt
}
