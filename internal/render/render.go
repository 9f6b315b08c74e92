package render

import (
	"bufio"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/dynprog/internal/grid"
)

const dpi = 96

// Frame is one field to draw: a solved or in-progress grid field, the plot
// title and the file it goes to.
type Frame struct {
	Field *grid.Field
	Title string
	Path  string
}

type Renderer interface {
	Render(f Frame) error
}

var (
	colorPositive = color.RGBA{R: 0x5f, G: 0xd7, B: 0x5f, A: 0xff}
	colorNegative = color.RGBA{R: 0xff, G: 0x5f, B: 0x5f, A: 0xff}
	colorZero     = color.RGBA{R: 0x8a, G: 0x8a, B: 0x8a, A: 0xff}
	colorPath     = color.RGBA{R: 0x00, G: 0xd7, B: 0xff, A: 0xff}
)

func controlColor(u float64) color.Color {
	switch {
	case u > 0.5:
		return colorPositive
	case u < -0.5:
		return colorNegative
	}
	return colorZero
}

// PNG renders frames as heatmap images of a fixed pixel size.
type PNG struct {
	Width  int
	Height int
}

func NewPNG(width, height int) *PNG {
	return &PNG{Width: width, Height: height}
}

func (r *PNG) Render(f Frame) error {
	return Heatmap(f, r.Width, r.Height)
}

func pixels(n int) vg.Length {
	return vg.Length(n) * vg.Inch / dpi
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// savePNG draws p onto a width x height pixel canvas and writes it to path,
// creating parent directories.
func savePNG(p *plot.Plot, path string, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", width, height)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	c := vgimg.NewWith(vgimg.UseWH(pixels(width), pixels(height)), vgimg.UseDPI(dpi))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
