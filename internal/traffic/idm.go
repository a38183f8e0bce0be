package traffic

import "math"

// Numerical guards for the IDM interaction term.
const (
	// GapEpsilon is the smallest gap used in the (s*/s)² term. Gaps at or
	// below zero would blow the division up; the original model clamps here.
	GapEpsilon = 0.1 // m

	// VirtualLeadDistance is how far ahead of a lane's frontmost vehicle the
	// synthetic leader sits. It moves at the follower's own speed, so it
	// never forces braking.
	VirtualLeadDistance = 1000.0 // m
)

// Acceleration computes the Intelligent Driver Model acceleration for a
// follower at speed v with a leader at speed vLead and bumper gap s:
//
//	s* = s0 + v·T + v·(v−vLead) / (2·√(a·b))
//	dv/dt = a · (1 − (v/v0)^δ − (s*/s)²)
//
// The desired gap s* is clamped to ≥ 0 (a fast-closing leader must not
// produce a negative target gap) and s is clamped to ≥ GapEpsilon. The
// result is finite for any valid profile; NaN/Inf can only arise from a
// malformed profile and is treated by the caller as a fatal numeric fault.
func Acceleration(v, vLead, gap float64, p DriverProfile) float64 {
	if p.MaxAccel <= 0 {
		// Obstacles and other inert profiles never accelerate.
		return 0
	}
	if gap < GapEpsilon {
		gap = GapEpsilon
	}

	sStar := p.MinGap + v*p.TimeHeadway + v*(v-vLead)/(2*math.Sqrt(p.MaxAccel*p.ComfortDecel))
	if sStar < 0 {
		sStar = 0
	}

	freeTerm := 0.0
	if p.DesiredSpeed > 0 {
		freeTerm = math.Pow(v/p.DesiredSpeed, p.AccelExponent)
	} else if v > 0 {
		freeTerm = 1
	}

	ratio := sStar / gap
	return p.MaxAccel * (1 - freeTerm - ratio*ratio)
}
