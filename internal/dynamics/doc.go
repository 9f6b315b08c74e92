// Package dynamics holds the plant models the solver discretizes.
//
//   - [DoubleIntegrator]: unit mass driven by acceleration, the reference plant
//   - [Pendulum]: damped pendulum driven by torque
//
// A continuous [dynamo.System] becomes a [dynamo.StateTransition] through
// [Discretize]:
//
//	step := dynamics.Discretize(dynamics.NewPendulum(), integrators.NewRK4())
//	next := step.Next(x, 0.01, 1)
//
// The double integrator also implements StateTransition directly with the
// closed-form Euler update, which is what the value iteration reference runs use.
package dynamics
