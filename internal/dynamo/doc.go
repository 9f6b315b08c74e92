// Package dynamo provides the shared primitives for grid-based optimal control.
//
// The package defines the interfaces every other package plugs into:
//
//   - [State]: a continuous state vector (position, velocity)
//   - [StateTransition]: discrete-time dynamics, x' = f(x, u, dt)
//   - [System]: continuous-time dynamics, dX/dt = f(X, u)
//   - [Integrator]: turns a [System] into a discrete step
//   - [StepCostPolicy]: per-step cost used by the Bellman backup
//   - [Controller]: feedback policy applied during trajectory simulation
//
// # Example
//
//	g, _ := grid.New(199, 199, 10, 5)
//	sys := dynamics.NewDoubleIntegrator()
//	eng, _ := valueiter.New(valueiter.DefaultConfig(), g, sys, cost.NewMinimumTime(g))
//	result, _ := eng.Run(ctx)
//
// # Thread Safety
//
// Implementations of [StateTransition] and [StepCostPolicy] must be safe for
// concurrent use; the value iteration engine calls them from several goroutines.
package dynamo
