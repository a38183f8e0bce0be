package traffic

// Vehicle is the kinematic state of one car. Vehicles are plain value
// records owned by their lane's slice; behaviour is a function of the data,
// not a method set on it.
type Vehicle struct {
	ID      int
	Lane    int
	Pos     float64 // m, front bumper position along the road
	Vel     float64 // m/s, never negative
	Accel   float64 // m/s², as computed on the last step
	Length  float64 // m
	Profile DriverProfile
}

// Gap returns the bumper-to-bumper distance to a leader snapshot.
func (v Vehicle) Gap(lead Leader) float64 {
	return lead.Pos - v.Pos - lead.Length
}
