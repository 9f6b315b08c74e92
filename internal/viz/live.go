package viz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/dynprog/internal/valueiter"
)

const (
	fps            = 30
	chartWindow    = 120
	maxSweepsTick  = 256
	controlMapCols = 48
	controlMapRows = 16
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model drives an engine from the Bubble Tea event loop.
type Model struct {
	ctx    context.Context
	engine *valueiter.Engine
	title  string

	sweepsPerTick int
	running       bool
	showControl   bool
	err           error

	spring      harmonica.Spring
	progress    float64
	progressVel float64
	started     time.Time
	elapsed     time.Duration
}

func NewModel(ctx context.Context, engine *valueiter.Engine, title string) Model {
	return Model{
		ctx:           ctx,
		engine:        engine,
		title:         title,
		sweepsPerTick: 1,
		running:       true,
		showControl:   true,
		spring:        harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
		started:       time.Now(),
	}
}

// Err is the error that stopped solving, if any.
func (m Model) Err() error { return m.err }

func (m Model) Engine() *valueiter.Engine { return m.engine }

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			m.sweepsPerTick = min(m.sweepsPerTick*2, maxSweepsTick)
		case "-", "_":
			m.sweepsPerTick = max(m.sweepsPerTick/2, 1)
		case "c":
			m.showControl = !m.showControl
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.advance()
		}
		m.progress, m.progressVel = m.spring.Update(m.progress, m.progressVel, m.target())
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	for i := 0; i < m.sweepsPerTick && !m.engine.Done(); i++ {
		if _, err := m.engine.Step(m.ctx); err != nil {
			m.err = err
			return
		}
	}
	if !m.engine.Done() {
		m.elapsed = time.Since(m.started)
	}
}

// target is how far the norm has come down toward the tolerance on a log
// scale, measured from the first sweep.
func (m Model) target() float64 {
	if m.engine.Phase() == valueiter.PhaseConverged {
		return 1
	}
	norms := m.engine.Norms()
	if len(norms) == 0 {
		return 0
	}
	first, last := norms[0], norms[len(norms)-1]
	tol := m.engine.Config().Tolerance
	if first <= tol || last <= 0 {
		return 1
	}
	f := math.Log(first/last) / math.Log(first/tol)
	return max(0, min(f, 1))
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")

	phase := m.engine.Phase()
	status := strings.ToUpper(phase.String())
	if !m.running && !phase.Done() {
		status = "PAUSED"
	}
	s.WriteString(phaseStyle(phase, m.running).Render(status) + "\n\n")

	cfg := m.engine.Config()
	s.WriteString(labelStyle.Render("Grid") + valueStyle.Render(m.engine.Grid().String()) + "\n")
	s.WriteString(labelStyle.Render("Sweep") + valueStyle.Render(fmt.Sprintf("%d / %d", m.engine.Iterations(), cfg.MaxIterations)) + "\n")
	norm := "-"
	if m.engine.Iterations() > 0 {
		norm = fmt.Sprintf("%.4g (tol %g)", m.engine.Norm(), cfg.Tolerance)
	}
	s.WriteString(labelStyle.Render("Norm") + valueStyle.Render(norm) + "\n")
	s.WriteString(labelStyle.Render("Speed") + valueStyle.Render(fmt.Sprintf("%d sweeps/tick", m.sweepsPerTick)) + "\n")
	s.WriteString(labelStyle.Render("Elapsed") + valueStyle.Render(m.elapsed.Round(time.Millisecond).String()) + "\n\n")
	s.WriteString(ProgressBar(m.progress, 30) + "\n")

	if norms := m.engine.Norms(); len(norms) > 1 {
		if len(norms) > chartWindow {
			norms = norms[len(norms)-chartWindow:]
		}
		chart := asciigraph.Plot(norms, asciigraph.Height(6), asciigraph.Width(40), asciigraph.Caption("max change"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if m.err != nil {
		s.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause +/-:Speed C:Control Q:Quit"))

	stats := panelStyle.Render(s.String())
	if !m.showControl {
		return stats
	}
	ctrl := panelStyle.Render("control\n\n" + ControlMap(m.engine.Control(), controlMapCols, controlMapRows))
	return lipgloss.JoinHorizontal(lipgloss.Top, stats, ctrl)
}

// Run starts the TUI on engine and blocks until the user quits. The engine
// keeps whatever progress was made.
func Run(ctx context.Context, engine *valueiter.Engine, title string) error {
	final, err := tea.NewProgram(NewModel(ctx, engine, title), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}
