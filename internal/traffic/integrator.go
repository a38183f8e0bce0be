package traffic

// BallisticStep advances one vehicle's kinematic state under a constant
// acceleration over dt:
//
//	v' = max(0, v + a·dt)
//	x' = x + v·dt + ½·a·dt²
//
// The position update uses the pre-update velocity, not the post-update one.
// Velocity is floored at zero and a stopped vehicle does not roll backwards:
// if hard braking would carry x' behind x within the step, the vehicle holds
// position instead.
func BallisticStep(x, v, a, dt float64) (newX, newV float64) {
	newV = v + a*dt
	if newV < 0 {
		newV = 0
	}
	newX = x + v*dt + 0.5*a*dt*dt
	if newX < x {
		newX = x
	}
	return newX, newV
}
