package grid

import (
	"errors"
	"testing"

	"github.com/san-kum/dynprog/internal/dynamo"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		nx, ny  int
		rx, ry  float64
		wantErr error
	}{
		{"reference", 199, 199, 10, 5, nil},
		{"minimal", 2, 2, 1, 1, nil},
		{"one point x", 1, 5, 10, 5, ErrTooFewPoints},
		{"zero points y", 5, 0, 10, 5, ErrTooFewPoints},
		{"zero range", 5, 5, 0, 5, ErrInvalidRange},
		{"negative range", 5, 5, 10, -1, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.nx, tt.ny, tt.rx, tt.ry)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if g.Cells() != tt.nx*tt.ny {
					t.Errorf("cells = %d, want %d", g.Cells(), tt.nx*tt.ny)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIndexRowMajor(t *testing.T) {
	g, _ := New(7, 3, 1, 1)
	for y := 0; y < 3; y++ {
		for x := 0; x < 7; x++ {
			i := g.Index(x, y)
			if i != y*7+x {
				t.Fatalf("Index(%d,%d) = %d", x, y, i)
			}
			cx, cy := g.Cell(i)
			if cx != x || cy != y {
				t.Fatalf("Cell(%d) = (%d,%d), want (%d,%d)", i, cx, cy, x, y)
			}
		}
	}
}

func TestCoordinates(t *testing.T) {
	g, _ := New(5, 3, 10, 4)
	s := g.Coordinates(g.Index(4, 0))
	if s[0] != 5 || s[1] != -2 {
		t.Errorf("Coordinates = %v, want [5 -2]", s)
	}
	s = g.Coordinates(g.Index(2, 1))
	if s[0] != 0 || s[1] != 0 {
		t.Errorf("Coordinates = %v, want origin", s)
	}
}

func TestTolerance(t *testing.T) {
	g, _ := New(199, 199, 10, 5)
	if got := g.X().Tolerance(); got != 10.0/199 {
		t.Errorf("x tolerance = %v", got)
	}
	if got := g.Y().Step(); got != 5.0/198 {
		t.Errorf("y step = %v", got)
	}
}

func TestFieldAccess(t *testing.T) {
	g, _ := New(4, 3, 1, 1)
	f := g.NewField(1)

	f.Set(3, 2, 9)
	if f.At(3, 2) != 9 || f.AtIndex(11) != 9 {
		t.Errorf("Set did not land at row-major index 11")
	}
	if f.At(0, 0) != 1 {
		t.Errorf("fill value lost")
	}

	lo, hi := f.Bounds()
	if lo != 1 || hi != 9 {
		t.Errorf("Bounds = (%v, %v)", lo, hi)
	}
}

func TestFieldOutOfRangePanics(t *testing.T) {
	g, _ := New(4, 3, 1, 1)
	f := g.NewField(0)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range cell")
		}
	}()
	f.At(4, 0)
}

func TestFieldCloneIndependent(t *testing.T) {
	g, _ := New(3, 3, 1, 1)
	f := g.NewField(2)
	c := f.Clone()
	c.Set(1, 1, 5)
	if f.At(1, 1) != 2 {
		t.Error("clone aliases source")
	}

	f.CopyFrom(c)
	if f.At(1, 1) != 5 {
		t.Error("CopyFrom did not copy")
	}
	c.Set(1, 1, 7)
	if f.At(1, 1) != 5 {
		t.Error("CopyFrom aliases source")
	}
}

func TestFieldFrom(t *testing.T) {
	g, _ := New(3, 2, 1, 1)
	if _, err := FieldFrom(g, make([]float64, 5)); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
	f, err := FieldFrom(g, []float64{0, 1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	if f.At(2, 1) != 5 {
		t.Errorf("At(2,1) = %v", f.At(2, 1))
	}
}
