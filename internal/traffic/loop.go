package traffic

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"

	"github.com/banshee-data/flow.report/internal/units"
)

// State is the lifecycle state of a Simulation.
type State string

const (
	StateInitialized State = "initialized"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// Trial defaults.
const (
	DefaultArrivalInterval   = 10.0  // s between arrivals per lane
	DefaultEntrySpeedMinKmh  = 80.0  // km/h
	DefaultEntrySpeedMaxKmh  = 120.0 // km/h
	DefaultEntryMinGap       = 10.0  // m
	DefaultDistractedPenalty = 1.5   // time-headway multiplier
)

// Deployment schedules one explicit vehicle injection at a given time, lane
// and position. Deployments bypass the profile sampler, so callers can place
// exact profiles (including obstacles) for scripted scenarios.
type Deployment struct {
	Time        float64       `json:"time"`
	Lane        int           `json:"lane"`
	Position    float64       `json:"position"`
	VelocityKmh float64       `json:"velocity_kmh"`
	Profile     DriverProfile `json:"-"`
}

// TrialConfig fully describes one trial. The zero value is not runnable;
// withDefaults fills the optional knobs and Validate rejects the rest.
type TrialConfig struct {
	RoadLength   float64 `json:"road_length"` // m
	LaneCount    int     `json:"lane_count"`
	VehicleCount int     `json:"vehicle_count"` // initial population placed across the road
	SimTime      float64 `json:"sim_time"`      // s
	Dt           float64 `json:"dt"`            // s

	// ArrivalInterval is the mean time between arrivals per lane. Zero means
	// the default (10s); a negative value disables inflow entirely.
	ArrivalInterval float64 `json:"arrival_interval,omitempty"`

	EntrySpeedMinKmh float64 `json:"entry_speed_min_kmh,omitempty"`
	EntrySpeedMaxKmh float64 `json:"entry_speed_max_kmh,omitempty"`
	EntryMinGap      float64 `json:"entry_min_gap,omitempty"` // m

	DistractedPct     float64 `json:"distracted_pct"`               // percentage in [0,100]
	DistractedPenalty float64 `json:"distracted_penalty,omitempty"` // >1; multiplies a distracted driver's T

	Distribution DriverDistribution             `json:"distribution,omitempty"`
	Archetypes   map[DriverType]ArchetypeParams `json:"archetypes,omitempty"`

	Deployments []Deployment `json:"deployments,omitempty"`
	RecordSteps bool         `json:"record_steps,omitempty"`
}

func (c TrialConfig) withDefaults() TrialConfig {
	if c.ArrivalInterval == 0 {
		c.ArrivalInterval = DefaultArrivalInterval
	}
	if c.EntrySpeedMinKmh == 0 && c.EntrySpeedMaxKmh == 0 {
		c.EntrySpeedMinKmh = DefaultEntrySpeedMinKmh
		c.EntrySpeedMaxKmh = DefaultEntrySpeedMaxKmh
	}
	if c.EntryMinGap == 0 {
		c.EntryMinGap = DefaultEntryMinGap
	}
	if c.DistractedPenalty == 0 {
		c.DistractedPenalty = DefaultDistractedPenalty
	}
	if c.Distribution == (DriverDistribution{}) {
		c.Distribution = DefaultDistribution()
	}
	if c.Archetypes == nil {
		c.Archetypes = DefaultArchetypes()
	}
	return c
}

// Validate rejects configurations before any trial state is created.
func (c TrialConfig) Validate() error {
	if c.RoadLength <= 0 {
		return fmt.Errorf("road length must be positive, got %f", c.RoadLength)
	}
	if c.LaneCount < 1 {
		return fmt.Errorf("lane count must be at least 1, got %d", c.LaneCount)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.SimTime <= 0 {
		return fmt.Errorf("sim time must be positive, got %f", c.SimTime)
	}
	if c.VehicleCount < 0 {
		return fmt.Errorf("vehicle count must be non-negative, got %d", c.VehicleCount)
	}
	if c.EntrySpeedMinKmh < 0 || c.EntrySpeedMaxKmh < c.EntrySpeedMinKmh {
		return fmt.Errorf("entry speed range [%f,%f] km/h is invalid", c.EntrySpeedMinKmh, c.EntrySpeedMaxKmh)
	}
	for i, d := range c.Deployments {
		if d.Lane < 0 || d.Lane >= c.LaneCount {
			return fmt.Errorf("deployment %d: lane %d out of range [0,%d)", i, d.Lane, c.LaneCount)
		}
		if d.Time < 0 {
			return fmt.Errorf("deployment %d: time must be non-negative, got %f", i, d.Time)
		}
		if d.Position < 0 || d.Position > c.RoadLength {
			return fmt.Errorf("deployment %d: position %f outside road [0,%f]", i, d.Position, c.RoadLength)
		}
	}
	return nil
}

// Simulation runs one trial. It is strictly sequential: each step snapshots
// the whole population, computes every acceleration from that snapshot, then
// applies all integrator results, so no vehicle ever reads a sibling's
// already-updated state within a step.
type Simulation struct {
	cfg     TrialConfig
	rng     *rand.Rand
	sampler *ProfileSampler

	lanes       [][]Vehicle
	spawner     *spawnController
	deployments []Deployment

	state   State
	clock   float64
	nextID  int
	spawned int
	exits   int

	acc   trialAccumulator
	steps []StepMetrics
}

// NewSimulation validates the configuration, places the initial population
// and returns a trial in StateInitialized. Every trial requires its own
// seeded RNG; sharing a process-wide generator would break reproducibility
// under concurrent trials.
func NewSimulation(cfg TrialConfig, rng *rand.Rand) (*Simulation, error) {
	if rng == nil {
		return nil, fmt.Errorf("simulation requires an explicit seeded RNG")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trial config: %w", err)
	}
	sampler, err := NewProfileSampler(cfg.Distribution, cfg.Archetypes, cfg.DistractedPct, cfg.DistractedPenalty)
	if err != nil {
		return nil, fmt.Errorf("invalid trial config: %w", err)
	}

	s := &Simulation{
		cfg:     cfg,
		rng:     rng,
		sampler: sampler,
		lanes:   make([][]Vehicle, cfg.LaneCount),
		state:   StateInitialized,
	}
	s.spawner = newSpawnController(cfg)

	// Deployments are consumed in time order.
	s.deployments = append([]Deployment(nil), cfg.Deployments...)
	sort.SliceStable(s.deployments, func(i, j int) bool {
		return s.deployments[i].Time < s.deployments[j].Time
	})

	if err := s.placeInitialPopulation(); err != nil {
		return nil, err
	}
	return s, nil
}

// placeInitialPopulation scatters cfg.VehicleCount vehicles over the road by
// rejection sampling from the trial's RNG stream, keeping the per-lane
// minimum spacing. Entry speeds come from the configured entry range.
func (s *Simulation) placeInitialPopulation() error {
	const maxAttempts = 1000
	for i := 0; i < s.cfg.VehicleCount; i++ {
		placed := false
		for attempt := 0; attempt < maxAttempts; attempt++ {
			lane := s.rng.Intn(s.cfg.LaneCount)
			pos := s.rng.Float64() * s.cfg.RoadLength
			if !roomAt(s.lanes[lane], pos, s.cfg.EntryMinGap) {
				continue
			}
			v := s.newVehicle(lane, pos)
			s.lanes[lane] = append(s.lanes[lane], v)
			placed = true
			break
		}
		if !placed {
			return fmt.Errorf("invalid trial config: cannot place %d vehicles on a %.0fm road with %d lane(s)",
				s.cfg.VehicleCount, s.cfg.RoadLength, s.cfg.LaneCount)
		}
	}
	for _, lane := range s.lanes {
		sortLane(lane)
	}
	return nil
}

// newVehicle samples a profile and entry speed from the trial stream. Draw
// order is fixed (speed, then profile) for reproducibility.
func (s *Simulation) newVehicle(lane int, pos float64) Vehicle {
	lo := units.KmhToMps(s.cfg.EntrySpeedMinKmh)
	hi := units.KmhToMps(s.cfg.EntrySpeedMaxKmh)
	vel := lo + s.rng.Float64()*(hi-lo)
	profile := s.sampler.Sample(s.rng)
	v := Vehicle{
		ID:      s.nextID,
		Lane:    lane,
		Pos:     pos,
		Vel:     vel,
		Length:  profile.VehicleLength,
		Profile: profile,
	}
	s.nextID++
	s.spawned++
	return v
}

// insertAtEntry appends a freshly sampled vehicle at x=0. The caller has
// already verified the entry gap.
func (s *Simulation) insertAtEntry(lane int) {
	v := s.newVehicle(lane, 0)
	s.lanes[lane] = append(s.lanes[lane], v)
}

// State returns the trial's lifecycle state.
func (s *Simulation) State() State { return s.state }

// Clock returns the simulated time in seconds.
func (s *Simulation) Clock() float64 { return s.clock }

// Spawned returns the total vehicles created, initial population included.
func (s *Simulation) Spawned() int { return s.spawned }

// Exits returns the total vehicles that have left the road.
func (s *Simulation) Exits() int { return s.exits }

// VehicleCount returns the number of vehicles currently on the road.
func (s *Simulation) VehicleCount() int {
	n := 0
	for _, lane := range s.lanes {
		n += len(lane)
	}
	return n
}

// Vehicles returns a copy of the current population, front-first per lane.
func (s *Simulation) Vehicles() []Vehicle {
	out := make([]Vehicle, 0, s.VehicleCount())
	for _, lane := range s.lanes {
		out = append(out, lane...)
	}
	return out
}

// Step advances the trial by one dt cycle: snapshot, leader resolution,
// acceleration, simultaneous integration, inflow, outflow, clock. Returns an
// error (and transitions to StateFailed) on a numeric fault.
func (s *Simulation) Step() error {
	switch s.state {
	case StateCompleted, StateFailed:
		return fmt.Errorf("simulation is %s, cannot step", s.state)
	}
	s.state = StateRunning
	now := s.clock + s.cfg.Dt

	// Accelerations for the whole population come from one consistent
	// snapshot; nothing is mutated until every lane has been resolved.
	accels := make([][]float64, len(s.lanes))
	for li, lane := range s.lanes {
		sortLane(lane)
		leaders := resolveLeaders(lane)
		accels[li] = make([]float64, len(lane))
		for vi := range lane {
			a := Acceleration(lane[vi].Vel, leaders[vi].Vel, lane[vi].Gap(leaders[vi]), lane[vi].Profile)
			if math.IsNaN(a) || math.IsInf(a, 0) {
				s.state = StateFailed
				return fmt.Errorf("numeric fault: non-finite acceleration for vehicle %d (lane %d) at t=%.2fs", lane[vi].ID, li, s.clock)
			}
			accels[li][vi] = a
		}
	}

	// Apply all integrator results. Each vehicle's next state depends only on
	// its own snapshot values and the acceleration above, so in-place update
	// order does not matter.
	for li, lane := range s.lanes {
		for vi := range lane {
			x, v := BallisticStep(lane[vi].Pos, lane[vi].Vel, accels[li][vi], s.cfg.Dt)
			if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(v) || math.IsInf(v, 0) {
				s.state = StateFailed
				return fmt.Errorf("numeric fault: non-finite state for vehicle %d (lane %d) at t=%.2fs", lane[vi].ID, li, s.clock)
			}
			lane[vi].Pos, lane[vi].Vel, lane[vi].Accel = x, v, accels[li][vi]
		}
	}

	// Inflow: scripted deployments first, then the arrival process.
	s.deploy(now)
	s.spawner.step(s, now)

	// Outflow happens strictly after all integrations are finalised.
	s.removeExited()

	s.clock = now
	count, mean := s.acc.observe(s.lanes)
	if s.cfg.RecordSteps {
		s.steps = append(s.steps, StepMetrics{Time: s.clock, VehicleCount: count, MeanSpeed: mean})
	}
	if s.clock >= s.cfg.SimTime-1e-9 {
		s.state = StateCompleted
	}
	return nil
}

// deploy injects scheduled vehicles whose time has come. A deployment that
// cannot meet the minimum gap at its position is deferred, like any arrival.
func (s *Simulation) deploy(now float64) {
	if len(s.deployments) == 0 {
		return
	}
	var remaining []Deployment
	for _, d := range s.deployments {
		if d.Time > now {
			remaining = append(remaining, d)
			continue
		}
		if !roomAt(s.lanes[d.Lane], d.Position, s.cfg.EntryMinGap) {
			log.Printf("[deploy] lane %d: scheduled vehicle deferred at t=%.1fs (no room at x=%.1fm)", d.Lane, now, d.Position)
			remaining = append(remaining, d)
			continue
		}
		length := d.Profile.VehicleLength
		if length <= 0 {
			length = 5
		}
		v := Vehicle{
			ID:      s.nextID,
			Lane:    d.Lane,
			Pos:     d.Position,
			Vel:     units.KmhToMps(d.VelocityKmh),
			Length:  length,
			Profile: d.Profile,
		}
		s.nextID++
		s.spawned++
		s.lanes[d.Lane] = append(s.lanes[d.Lane], v)
		sortLane(s.lanes[d.Lane])
	}
	s.deployments = remaining
}

// removeExited evicts vehicles past the end of the road and counts them
// toward throughput.
func (s *Simulation) removeExited() {
	for li, lane := range s.lanes {
		kept := lane[:0]
		for _, v := range lane {
			if v.Pos > s.cfg.RoadLength {
				s.exits++
				continue
			}
			kept = append(kept, v)
		}
		s.lanes[li] = kept
	}
}

// Run steps the trial to completion and summarises it.
func (s *Simulation) Run() (TrialResult, error) {
	for s.state == StateInitialized || s.state == StateRunning {
		if err := s.Step(); err != nil {
			return TrialResult{}, err
		}
	}
	meanSpeed, flow, density := s.acc.summarise(s.cfg.RoadLength, s.clock, s.exits)
	return TrialResult{
		Duration:          s.clock,
		Spawned:           s.spawned,
		Exits:             s.exits,
		FinalVehicleCount: s.VehicleCount(),
		MeanSpeed:         meanSpeed,
		Flow:              flow,
		Density:           density,
		Steps:             s.steps,
	}, nil
}
