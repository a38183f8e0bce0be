package traffic

import (
	"log"
	"math"
)

// spawnController injects new vehicles at each lane's entry on a
// deterministic schedule derived from the mean inter-arrival time. Arrivals
// that cannot meet the minimum entry gap are deferred to the next eligible
// step, never dropped, so an entry collision is impossible.
type spawnController struct {
	interval    float64 // mean seconds between arrivals, per lane
	minEntryGap float64
	next        []float64 // per-lane next scheduled arrival time
	pending     []int     // per-lane deferred arrivals
}

func newSpawnController(cfg TrialConfig) *spawnController {
	sc := &spawnController{
		interval:    cfg.ArrivalInterval,
		minEntryGap: cfg.EntryMinGap,
		next:        make([]float64, cfg.LaneCount),
		pending:     make([]int, cfg.LaneCount),
	}
	// First arrival lands one full interval after the trial starts.
	for i := range sc.next {
		sc.next[i] = sc.interval
	}
	return sc
}

// step moves due arrivals into their lanes.
func (sc *spawnController) step(s *Simulation, now float64) {
	if sc.interval <= 0 {
		return
	}
	for lane := range s.lanes {
		due := 0
		for now >= sc.next[lane] {
			due++
			sc.next[lane] += sc.interval
		}
		sc.pending[lane] += due

		for sc.pending[lane] > 0 && sc.roomToEnter(s.lanes[lane]) {
			s.insertAtEntry(lane)
			sc.pending[lane]--
		}
		if sc.pending[lane] > 0 && due > 0 {
			log.Printf("[spawn] lane %d: arrival deferred at t=%.1fs (%d waiting, entry gap below %.1fm)",
				lane, now, sc.pending[lane], sc.minEntryGap)
		}
	}
}

// roomToEnter reports whether a vehicle placed at x=0 would have at least the
// minimum entry gap to the vehicle currently nearest the entry.
func (sc *spawnController) roomToEnter(lane []Vehicle) bool {
	if len(lane) == 0 {
		return true
	}
	rear := lane[len(lane)-1] // lane is front-first; last is nearest the entry
	return rear.Pos-rear.Length >= sc.minEntryGap
}

// roomAt reports whether a vehicle can be placed at pos without landing
// within the minimum gap of an existing vehicle. Used for mid-road
// deployments and initial population placement.
func roomAt(lane []Vehicle, pos, minGap float64) bool {
	for _, v := range lane {
		if math.Abs(v.Pos-pos) < math.Max(v.Length, minGap) {
			return false
		}
	}
	return true
}
