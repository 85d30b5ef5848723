// Package smc implements the sliding-mode controller family the tuner
// searches over.
//
// Four variants are registered, each with a fixed gain layout, search
// bounds and defaults:
//
//   - [Classical]: boundary-layer law with surface damping
//   - [SuperTwisting]: second-order law with an integral switching term
//   - [Adaptive]: online switching-gain estimation with leak and dead zone
//   - [HybridAdaptiveSTA]: mode-switched adaptive/super-twisting law
//
// Gain vectors go through layered validation (length, finiteness, bounds,
// stability predicates) before a controller is built, so the swarm can
// discard hopeless candidates without paying for a simulation.
//
// # Usage
//
//	spec, _ := smc.Get(smc.Classical)
//	ctrl, err := smc.New(smc.Classical, spec.Defaults, smc.DefaultParams())
//	// ctrl implements sim.Controller; Step saturates to ±MaxForce
package smc
