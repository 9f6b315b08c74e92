package valueiter

import (
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/grid"
)

const minChunk = 256

// transition is one precomputed (control, cell) pair: the step cost of the
// successor and the bilinear stencil it reads from the cost field.
type transition struct {
	cost               float64
	i00, i01, i10, i11 int32
	rx, ry             float64
}

func newTransition(g *grid.Grid, next dynamo.State, c float64) transition {
	xi := g.X().Indices(next[0])
	yi := g.Y().Indices(next[1])
	nx := g.PointsX()
	return transition{
		cost: c,
		i00:  int32(yi.Lower*nx + xi.Lower),
		i01:  int32(yi.Upper*nx + xi.Lower),
		i10:  int32(yi.Lower*nx + xi.Upper),
		i11:  int32(yi.Upper*nx + xi.Upper),
		rx:   xi.Ratio,
		ry:   yi.Ratio,
	}
}

// eval is the same value grid.Lookup returns for the successor state.
func (t *transition) eval(values []float64) float64 {
	return grid.Bilinear(values[t.i00], values[t.i01], values[t.i10], values[t.i11], t.rx, t.ry)
}

// buildTables fills the successor and transition tables, indexed
// [control][cell]. The dynamics and step cost never change between sweeps.
func (e *Engine) buildTables() error {
	cells := e.grid.Cells()
	e.successors = make([][]dynamo.State, len(e.cfg.Controls))
	e.table = make([][]transition, len(e.cfg.Controls))
	for k := range e.cfg.Controls {
		e.successors[k] = make([]dynamo.State, cells)
		e.table[k] = make([]transition, cells)
	}

	var group errgroup.Group
	for _, chunk := range dynamo.Partition(cells, e.cfg.Workers, minChunk) {
		chunk := chunk
		group.Go(func() error {
			for i := chunk.Start; i < chunk.End; i++ {
				x := e.grid.Coordinates(i)
				for k, u := range e.cfg.Controls {
					next := e.sys.Next(x, e.cfg.Dt, u)
					if !next.IsValid() {
						return &dynamo.SimulationError{Step: i, State: x, Wrapped: dynamo.ErrInvalidState}
					}
					e.successors[k][i] = next
					e.table[k][i] = newTransition(e.grid, next, e.policy.StepCost(next, u))
				}
			}
			return nil
		})
	}
	return group.Wait()
}
