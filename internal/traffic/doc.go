// Package traffic owns the highway simulation core.
//
// Responsibilities: vehicle and driver-profile state, the Intelligent
// Driver Model acceleration law, ballistic integration, per-lane leader
// resolution, vehicle inflow/outflow, and per-trial metric aggregation.
// Key types: Vehicle, DriverProfile, Simulation, TrialResult.
//
// A Simulation is single-threaded and owns its RNG stream; concurrent
// trials each get their own Simulation. Cross-trial statistics live in
// internal/sweep, which may depend on this package but never the
// reverse. No SQL/database code is allowed in this package.
package traffic
