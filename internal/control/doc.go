// Package control provides feedback policies for the trajectory simulator.
//
// Every policy implements [dynamo.Controller]:
//
//   - [FieldPolicy]: interpolates a solved control field
//   - [BangBang]: analytical minimum-time law for the double integrator
//   - [LQR]: linear state feedback
//   - [PID]: position PID
//   - [None]: zero control
//
// # Usage
//
//	res, _ := engine.Run(ctx)
//	policy := control.NewFieldPolicy(res.Control)
//	u := policy.Compute(dynamo.State{-2, -1.5}, 0)
//
// Controllers implementing [dynamo.Configurable] take params from the
// controller section of the config (controller.params).
package control
