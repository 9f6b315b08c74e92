package render

import (
	"fmt"
	"path/filepath"

	"github.com/san-kum/dynprog/internal/valueiter"
)

// Animator writes a cost frame and a control frame every Every sweeps, plus
// one for the final sweep, numbered cost/000.png, control/000.png, ...
type Animator struct {
	Dir      string
	Every    int
	Renderer Renderer

	frames int
}

func NewAnimator(dir string, every int, r Renderer) *Animator {
	if every < 1 {
		every = 1
	}
	return &Animator{Dir: dir, Every: every, Renderer: r}
}

// Frames is the number of frame pairs written so far.
func (a *Animator) Frames() int { return a.frames }

func (a *Animator) OnSweep(s valueiter.Sweep) error {
	if s.Iteration%a.Every != 0 && !s.Phase.Done() {
		return nil
	}

	name := fmt.Sprintf("%03d.png", a.frames)
	frames := []Frame{
		{
			Field: s.Cost,
			Title: fmt.Sprintf("cost, sweep %d", s.Iteration),
			Path:  filepath.Join(a.Dir, "cost", name),
		},
		{
			Field: s.Control,
			Title: fmt.Sprintf("control, sweep %d", s.Iteration),
			Path:  filepath.Join(a.Dir, "control", name),
		},
	}
	for _, f := range frames {
		if err := a.Renderer.Render(f); err != nil {
			return err
		}
	}
	a.frames++
	return nil
}
