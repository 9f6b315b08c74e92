// Package render turns solver output into pictures.
//
// PNG renderers draw cost and control fields as heatmaps and rollouts as
// phase-plane scatters with gonum/plot. Terminal renderers draw the
// convergence history and an ASCII phase portrait. [Animator] plugs into the
// value iteration engine and writes a frame pair every few sweeps.
package render
