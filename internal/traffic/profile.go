package traffic

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/banshee-data/flow.report/internal/units"
)

// DriverType identifies a behavioural archetype.
type DriverType string

const (
	DriverAggressive DriverType = "aggressive"
	DriverNormal     DriverType = "normal"
	DriverCautious   DriverType = "cautious"
	DriverPolite     DriverType = "polite"
	DriverSubmissive DriverType = "submissive"

	// DriverObstacle is a stationary deployment: desired speed and maximum
	// acceleration are both zero, so the vehicle never moves. It is only
	// valid in explicit deployment schedules, never in sampled populations.
	DriverObstacle DriverType = "obstacle"
)

// ArchetypeParams holds the per-archetype behavioural parameters. The table
// mapping archetype to parameters is a configuration input, not a hidden
// constant: callers may override DefaultArchetypes wholesale.
type ArchetypeParams struct {
	DesiredSpeedKmh float64 `json:"desired_speed_kmh"`
	TimeHeadway     float64 `json:"time_headway"`     // s
	MinGap          float64 `json:"min_gap"`          // m
	MaxAccel        float64 `json:"max_accel"`        // m/s²
	ComfortDecel    float64 `json:"comfort_decel"`    // m/s²
	VehicleLength   float64 `json:"vehicle_length"`   // m
	AccelExponent   float64 `json:"accel_exponent"`   // IDM δ
}

// DefaultArchetypes returns the stock archetype table. Time headways span
// the 0.8s (aggressive) to 2.0s (cautious/submissive) band; acceleration and
// braking comfort scale with temperament.
func DefaultArchetypes() map[DriverType]ArchetypeParams {
	return map[DriverType]ArchetypeParams{
		DriverAggressive: {DesiredSpeedKmh: 140, TimeHeadway: 0.8, MinGap: 1.5, MaxAccel: 0.4, ComfortDecel: 3.0, VehicleLength: 5, AccelExponent: 4},
		DriverNormal:     {DesiredSpeedKmh: 120, TimeHeadway: 1.5, MinGap: 2.0, MaxAccel: 0.3, ComfortDecel: 2.0, VehicleLength: 5, AccelExponent: 4},
		DriverCautious:   {DesiredSpeedKmh: 100, TimeHeadway: 2.0, MinGap: 3.0, MaxAccel: 0.2, ComfortDecel: 1.5, VehicleLength: 5, AccelExponent: 4},
		DriverPolite:     {DesiredSpeedKmh: 120, TimeHeadway: 1.7, MinGap: 2.0, MaxAccel: 0.3, ComfortDecel: 2.0, VehicleLength: 5, AccelExponent: 4},
		DriverSubmissive: {DesiredSpeedKmh: 100, TimeHeadway: 2.0, MinGap: 3.5, MaxAccel: 0.2, ComfortDecel: 1.5, VehicleLength: 5, AccelExponent: 4},
	}
}

// DriverDistribution weights the five sampled archetypes. Weights must be
// non-negative and sum to 1.0 within DistributionTolerance.
type DriverDistribution struct {
	Aggressive float64 `json:"aggressive"`
	Normal     float64 `json:"normal"`
	Cautious   float64 `json:"cautious"`
	Polite     float64 `json:"polite"`
	Submissive float64 `json:"submissive"`
}

// DistributionTolerance is the permitted deviation of the weight sum from 1.0.
const DistributionTolerance = 0.01

// DefaultDistribution returns the stock driver mix.
func DefaultDistribution() DriverDistribution {
	return DriverDistribution{Aggressive: 0.15, Normal: 0.40, Cautious: 0.15, Polite: 0.15, Submissive: 0.15}
}

// Validate checks weight non-negativity and normalisation.
func (d DriverDistribution) Validate() error {
	weights := d.weights()
	sum := 0.0
	for i, w := range weights {
		if w < 0 {
			return fmt.Errorf("driver distribution weight for %s must be non-negative, got %f", samplerOrder[i], w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > DistributionTolerance {
		return fmt.Errorf("driver distribution weights must sum to 1.0 (±%.2f), got %f", DistributionTolerance, sum)
	}
	return nil
}

func (d DriverDistribution) weights() [5]float64 {
	return [5]float64{d.Aggressive, d.Normal, d.Cautious, d.Polite, d.Submissive}
}

// samplerOrder fixes the archetype draw order so a seeded RNG stream always
// produces the same sequence of profiles.
var samplerOrder = [5]DriverType{DriverAggressive, DriverNormal, DriverCautious, DriverPolite, DriverSubmissive}

// DriverProfile is the immutable per-vehicle parameter set, in SI units.
type DriverProfile struct {
	Type          DriverType
	DesiredSpeed  float64 // v0, m/s
	TimeHeadway   float64 // T, s (already includes any distraction penalty)
	MinGap        float64 // s0, m
	MaxAccel      float64 // a, m/s²
	ComfortDecel  float64 // b, m/s²
	AccelExponent float64 // δ
	VehicleLength float64 // m
	Distracted    bool
}

// ProfileFor converts an archetype table entry into a runnable profile with
// no distraction applied. Deployment schedules use this to pin exact
// behaviour instead of sampling.
func ProfileFor(dt DriverType, p ArchetypeParams) DriverProfile {
	return DriverProfile{
		Type:          dt,
		DesiredSpeed:  units.KmhToMps(p.DesiredSpeedKmh),
		TimeHeadway:   p.TimeHeadway,
		MinGap:        p.MinGap,
		MaxAccel:      p.MaxAccel,
		ComfortDecel:  p.ComfortDecel,
		AccelExponent: p.AccelExponent,
		VehicleLength: p.VehicleLength,
	}
}

// ObstacleProfile returns a profile for a stationary obstacle deployment.
func ObstacleProfile() DriverProfile {
	return DriverProfile{
		Type:          DriverObstacle,
		DesiredSpeed:  0,
		TimeHeadway:   1.5,
		MinGap:        2.0,
		MaxAccel:      0,
		ComfortDecel:  2.0,
		AccelExponent: 4,
		VehicleLength: 5,
	}
}

// ProfileSampler draws driver profiles from a weighted archetype mix with an
// independent distraction trait. All randomness comes from the RNG passed to
// Sample, so callers control reproducibility per trial.
type ProfileSampler struct {
	archetypes     map[DriverType]ArchetypeParams
	cumulative     [5]float64
	distractedProb float64
	headwayPenalty float64
}

// NewProfileSampler validates the distribution and builds a sampler.
// distractedPct is a percentage in [0,100]; headwayPenalty is the multiplier
// (>1) applied to a distracted driver's time headway.
func NewProfileSampler(dist DriverDistribution, archetypes map[DriverType]ArchetypeParams, distractedPct, headwayPenalty float64) (*ProfileSampler, error) {
	if err := dist.Validate(); err != nil {
		return nil, err
	}
	if distractedPct < 0 || distractedPct > 100 {
		return nil, fmt.Errorf("distracted percentage must be in [0,100], got %f", distractedPct)
	}
	if headwayPenalty < 1 {
		return nil, fmt.Errorf("distraction headway penalty must be >= 1, got %f", headwayPenalty)
	}
	if archetypes == nil {
		archetypes = DefaultArchetypes()
	}
	for _, dt := range samplerOrder {
		p, ok := archetypes[dt]
		if !ok {
			return nil, fmt.Errorf("archetype table missing entry for %s", dt)
		}
		if p.TimeHeadway <= 0 || p.MaxAccel <= 0 || p.ComfortDecel <= 0 || p.DesiredSpeedKmh <= 0 {
			return nil, fmt.Errorf("archetype %s has non-positive parameters", dt)
		}
	}

	s := &ProfileSampler{
		archetypes:     archetypes,
		distractedProb: distractedPct / 100.0,
		headwayPenalty: headwayPenalty,
	}
	weights := dist.weights()
	acc := 0.0
	for i, w := range weights {
		acc += w
		s.cumulative[i] = acc
	}
	// Absorb any sub-tolerance rounding so the last bucket always catches.
	s.cumulative[4] = math.Max(s.cumulative[4], 1.0)
	return s, nil
}

// Sample draws one profile. It consumes exactly two values from the RNG
// stream: the archetype draw and the distraction draw.
func (s *ProfileSampler) Sample(rng *rand.Rand) DriverProfile {
	u := rng.Float64()
	dt := samplerOrder[4]
	for i, c := range s.cumulative {
		if u < c {
			dt = samplerOrder[i]
			break
		}
	}
	distracted := rng.Float64() < s.distractedProb

	p := s.archetypes[dt]
	headway := p.TimeHeadway
	if distracted {
		headway *= s.headwayPenalty
	}
	return DriverProfile{
		Type:          dt,
		DesiredSpeed:  units.KmhToMps(p.DesiredSpeedKmh),
		TimeHeadway:   headway,
		MinGap:        p.MinGap,
		MaxAccel:      p.MaxAccel,
		ComfortDecel:  p.ComfortDecel,
		AccelExponent: p.AccelExponent,
		VehicleLength: p.VehicleLength,
		Distracted:    distracted,
	}
}
