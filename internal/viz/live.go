package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/batchreactor/internal/dynamo"
	"github.com/san-kum/batchreactor/internal/reactor"
)

const (
	historyCapacity = 600
	maxStepsPerTick = 1 << 12
	shownSpecies    = 6
)

var (
	statsStyle = lipgloss.NewStyle().Padding(1, 2).Width(44)
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 2)
)

// Closer recovers temperature and pressure for a concentration vector
// without touching the model's non-convergence diagnostics.
type Closer interface {
	Closure(c []float64) (reactor.ClosedState, error)
}

type TickMsg time.Time

// LiveConfig describes the run shown by a LiveModel.
type LiveConfig struct {
	Name     string
	Species  []string
	Dt       float64
	Duration float64
	// StepsPerTick is the number of integrator steps per frame.
	StepsPerTick int
	FrameRate    int
}

// LiveModel steps a reactor on every frame and keeps a bounded temperature
// history for plotting.
type LiveModel struct {
	cfg        LiveConfig
	sys        dynamo.System
	closer     Closer
	integrator dynamo.Integrator

	initial dynamo.State
	state   dynamo.State
	t       float64
	closed  reactor.ClosedState
	steps   int

	temperatures []float64
	running      bool
	err          error
}

func NewLiveModel(sys dynamo.System, closer Closer, integ dynamo.Integrator, x0 dynamo.State, cfg LiveConfig) LiveModel {
	if cfg.StepsPerTick <= 0 {
		cfg.StepsPerTick = 10
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 30
	}
	m := LiveModel{
		cfg:        cfg,
		sys:        sys,
		closer:     closer,
		integrator: integ,
		initial:    x0.Clone(),
	}
	m.reset()
	return m
}

func (m LiveModel) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.cfg.FrameRate), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m LiveModel) Init() tea.Cmd {
	return m.tick()
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "+", "=":
			m.cfg.StepsPerTick = min(m.cfg.StepsPerTick*2, maxStepsPerTick)
		case "-", "_":
			m.cfg.StepsPerTick = max(m.cfg.StepsPerTick/2, 1)
		}
	case TickMsg:
		if m.running && !m.Done() {
			m.advance()
		}
		return m, m.tick()
	}
	return m, nil
}

// Done reports whether the run reached its duration or failed.
func (m LiveModel) Done() bool {
	return m.err != nil || m.t >= m.cfg.Duration*(1-1e-12)
}

func (m LiveModel) Err() error { return m.err }

func (m LiveModel) Time() float64 { return m.t }

func (m LiveModel) Temperature() float64 { return m.closed.State.T }

func (m *LiveModel) reset() {
	m.state = m.initial.Clone()
	m.t = 0
	m.steps = 0
	m.err = nil
	m.running = true
	m.temperatures = make([]float64, 0, historyCapacity)
	m.observe()
}

func (m *LiveModel) advance() {
	for k := 0; k < m.cfg.StepsPerTick && !m.Done(); k++ {
		dt := min(m.cfg.Dt, m.cfg.Duration-m.t)
		next, err := m.integrator.Step(m.sys, m.state, m.t, dt)
		if err == nil && !next.IsValid() {
			err = dynamo.ErrInvalidState
		}
		if err != nil {
			m.err = &dynamo.SimulationError{Step: m.steps, Time: m.t, State: m.state.Clone(), Wrapped: err}
			m.running = false
			return
		}
		m.state = next
		m.t += dt
		m.steps++
	}
	m.observe()
}

func (m *LiveModel) observe() {
	cs, err := m.closer.Closure(m.state)
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.closed = cs
	m.temperatures = append(m.temperatures, cs.State.T)
	if len(m.temperatures) > historyCapacity {
		m.temperatures = m.temperatures[1:]
	}
}

func (m LiveModel) status() string {
	switch {
	case m.err != nil:
		return StatusFailed.Render("FAILED")
	case m.Done():
		return StatusRunning.Render("DONE")
	case !m.running:
		return StatusPaused.Render("PAUSED")
	}
	return StatusRunning.Render("RUNNING")
}

func (m LiveModel) View() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(strings.ToUpper(m.cfg.Name)) + "\n")
	s.WriteString(m.status() + "\n\n")

	fraction := 0.0
	if m.cfg.Duration > 0 {
		fraction = m.t / m.cfg.Duration
	}
	s.WriteString(ProgressBar(fraction, 30) + "\n\n")

	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("Time", FormatDuration(m.t))
	row("Steps", fmt.Sprintf("%d (%d/frame)", m.steps, m.cfg.StepsPerTick))
	row("Temperature", fmt.Sprintf("%.2f K", m.closed.State.T))
	row("Pressure", fmt.Sprintf("%.4g Pa", m.closed.State.P))
	row("Closure", fmt.Sprintf("%d iter", m.closed.Closure.Iterations))

	s.WriteString("\nCOMPOSITION\n")
	for _, sp := range m.topSpecies() {
		s.WriteString(fmt.Sprintf("%-8s %s %.4f\n", sp.name, ProgressBar(sp.x, 16), sp.x))
	}

	if m.err != nil {
		s.WriteString("\n" + StatusFailed.Render(m.err.Error()) + "\n")
	}
	s.WriteString(KeyHint.Render("\nSP:Pause R:Reset +/-:Speed Q:Quit"))

	graph := graphStyle.Render(Plot(m.temperatures, 50, 12, "Temperature [K]"))
	return lipgloss.JoinHorizontal(lipgloss.Top, graph, statsStyle.Render(s.String()))
}

type speciesFraction struct {
	name string
	x    float64
}

func (m LiveModel) topSpecies() []speciesFraction {
	x := m.closed.MoleFractions
	out := make([]speciesFraction, 0, len(x))
	for i, v := range x {
		name := fmt.Sprintf("x%d", i)
		if i < len(m.cfg.Species) {
			name = m.cfg.Species[i]
		}
		out = append(out, speciesFraction{name: name, x: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].x > out[j].x })
	if len(out) > shownSpecies {
		out = out[:shownSpecies]
	}
	return out
}
