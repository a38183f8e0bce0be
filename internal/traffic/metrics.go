package traffic

// StepMetrics is one instantaneous sample recorded after a completed step.
type StepMetrics struct {
	Time         float64 `json:"time"`
	VehicleCount int     `json:"vehicle_count"`
	MeanSpeed    float64 `json:"mean_speed"` // m/s
}

// TrialResult summarises one completed trial.
type TrialResult struct {
	Duration          float64 `json:"duration"` // simulated seconds
	Spawned           int     `json:"spawned"`  // vehicles created, initial population included
	Exits             int     `json:"exits"`    // vehicles that left the far end of the road
	FinalVehicleCount int     `json:"final_vehicle_count"`
	MeanSpeed         float64 `json:"mean_speed"` // m/s, averaged over time and vehicles
	Flow              float64 `json:"flow"`       // vehicles/s leaving the road
	Density           float64 `json:"density"`    // vehicles/m, time-averaged count over road length

	// Steps is populated only when TrialConfig.RecordSteps is set.
	Steps []StepMetrics `json:"steps,omitempty"`
}

// trialAccumulator collects the running sums behind TrialResult. Speeds are
// summed over every vehicle on every step, so MeanSpeed weights each
// vehicle-step sample equally.
type trialAccumulator struct {
	speedSum     float64
	speedSamples int
	countSum     int
	steps        int
}

func (a *trialAccumulator) observe(lanes [][]Vehicle) (count int, mean float64) {
	var sum float64
	for _, lane := range lanes {
		for _, v := range lane {
			sum += v.Vel
			count++
		}
	}
	a.speedSum += sum
	a.speedSamples += count
	a.countSum += count
	a.steps++
	if count > 0 {
		mean = sum / float64(count)
	}
	return count, mean
}

func (a *trialAccumulator) summarise(roadLength, elapsed float64, exits int) (meanSpeed, flow, density float64) {
	if a.speedSamples > 0 {
		meanSpeed = a.speedSum / float64(a.speedSamples)
	}
	if elapsed > 0 {
		flow = float64(exits) / elapsed
	}
	if a.steps > 0 && roadLength > 0 {
		density = float64(a.countSum) / float64(a.steps) / roadLength
	}
	return meanSpeed, flow, density
}
