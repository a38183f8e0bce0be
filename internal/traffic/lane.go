package traffic

import "sort"

// Leader is an immutable snapshot of the vehicle ahead, taken before any
// state in the step is mutated. Gap and acceleration computations only ever
// see Leader values, never live Vehicle state.
type Leader struct {
	Pos     float64
	Vel     float64
	Length  float64
	Virtual bool
}

// sortLane orders a lane front-first (positions descending). Within a lane
// positions are strictly decreasing outside of an integration pass, so this
// is normally a no-op; it keeps the ordering invariant explicit.
func sortLane(lane []Vehicle) {
	sort.SliceStable(lane, func(i, j int) bool {
		return lane[i].Pos > lane[j].Pos
	})
}

// resolveLeaders pairs every vehicle in a front-first lane with its leader
// snapshot. Index i of the result corresponds to lane[i]. The frontmost
// vehicle is paired with a virtual leader VirtualLeadDistance ahead moving at
// the vehicle's own speed. An empty lane yields an empty pairing.
func resolveLeaders(lane []Vehicle) []Leader {
	if len(lane) == 0 {
		return nil
	}
	leaders := make([]Leader, len(lane))
	leaders[0] = Leader{
		Pos:     lane[0].Pos + VirtualLeadDistance,
		Vel:     lane[0].Vel,
		Virtual: true,
	}
	for i := 1; i < len(lane); i++ {
		ahead := lane[i-1]
		leaders[i] = Leader{Pos: ahead.Pos, Vel: ahead.Vel, Length: ahead.Length}
	}
	return leaders
}
