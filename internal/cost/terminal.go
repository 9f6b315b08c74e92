package cost

import "github.com/san-kum/dynprog/internal/grid"

// TerminalField seeds the cost-to-go: 1 everywhere except the goal cells
// around the origin, which are 0. Odd point counts add the neighbouring
// cell on that axis, so up to three cells are zero.
func TerminalField(g *grid.Grid) *grid.Field {
	f := g.NewField(1)
	nx, ny := g.PointsX(), g.PointsY()
	cx, cy := nx/2, ny/2

	f.Set(cx, cy, 0)
	switch {
	case nx%2 == 1:
		f.Set(cx+1, cy, 0)
		if ny%2 == 1 {
			f.Set(cx+1, cy+1, 0)
		}
	case ny%2 == 1:
		f.Set(cx, cy+1, 0)
	}
	return f
}

// GoalCells lists the flat indices TerminalField zeroes.
func GoalCells(g *grid.Grid) []int {
	f := TerminalField(g)
	var cells []int
	for i, v := range f.Values() {
		if v == 0 {
			cells = append(cells, i)
		}
	}
	return cells
}
