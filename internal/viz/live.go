package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/springsim/internal/drive"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/sim"
)

const (
	width           = 72
	height          = 24
	historyCapacity = 600
	maxStepsPerTick = 64
	nudge           = 0.05
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model drives a simulation from the terminal: it steps on every tick,
// tunes live parameters and moves the anchors by hand.
type Model struct {
	sim           *sim.Simulation
	name          string
	initial       dynamo.Params
	initialSphere *dynamo.Obstacle
	width, height int
	canvas        *Canvas
	camera        *Camera
	manual        *drive.Manual
	running       bool
	stepsPerTick  int
	paramKeys     []string
	selected      int
	energyHistory []float64
	last          sim.StepReport
	err           error
	showHelp      bool
}

func NewModel(s *sim.Simulation, name string) Model {
	keys := make([]string, 0, 11)
	for k := range s.GetParams() {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sphere *dynamo.Obstacle
	if o, ok := s.Obstacle(); ok {
		sphere = &o
	}

	cam := NewCamera()
	cam.Fit(s.Positions())

	return Model{
		sim:           s,
		name:          name,
		initial:       s.Params(),
		initialSphere: sphere,
		width:         width,
		height:        height,
		canvas:        NewCanvas(width, height),
		camera:        cam,
		running:       true,
		stepsPerTick:  1,
		paramKeys:     keys,
		energyHistory: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd { return tick() }

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			if !m.running {
				m.step()
			}
		case "r":
			m.reset()
		case "tab":
			m.cycleParam(1)
		case "shift+tab":
			m.cycleParam(-1)
		case "up", "k":
			m.adjustParam(1.05, 1)
		case "down", "j":
			m.adjustParam(0.95, -1)
		case "]":
			m.stepsPerTick = min(maxStepsPerTick, m.stepsPerTick*2)
		case "[":
			m.stepsPerTick = max(1, m.stepsPerTick/2)
		case "a":
			m.moveAnchors(dynamo.V(-nudge, 0, 0))
		case "d":
			m.moveAnchors(dynamo.V(nudge, 0, 0))
		case "w":
			m.moveAnchors(dynamo.V(0, nudge, 0))
		case "s":
			m.moveAnchors(dynamo.V(0, -nudge, 0))
		case "e":
			m.moveAnchors(dynamo.V(0, 0, nudge))
		case "c":
			m.moveAnchors(dynamo.V(0, 0, -nudge))
		case "0":
			if m.manual != nil {
				m.manual.Center()
			}
		case "left":
			m.camera.Rotate(-0.1, 0)
		case "right":
			m.camera.Rotate(0.1, 0)
		case "x":
			m.camera.Rotate(0, 0.1)
		case "X":
			m.camera.Rotate(0, -0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "f":
			m.camera.Fit(m.sim.Positions())
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		w := max(20, msg.Width-56)
		h := max(8, msg.Height-4)
		if w != m.width || h != m.height {
			m.width, m.height = w, h
			m.canvas = NewCanvas(w, h)
		}
	case TickMsg:
		if m.running {
			for i := 0; i < m.stepsPerTick && m.running; i++ {
				m.step()
			}
		}
		return m, tick()
	}
	return m, nil
}

// step advances once. A configuration error pauses the view until the
// parameter is fixed or the simulation is reset.
func (m *Model) step() {
	report, err := m.sim.Advance()
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.err = nil
	m.last = report
	m.energyHistory = append(m.energyHistory, m.sim.Energy().Total())
	if len(m.energyHistory) > historyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}
}

func (m *Model) cycleParam(dir int) {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + dir + len(m.paramKeys)) % len(m.paramKeys)
}

// adjustParam scales the selected parameter by factor, or moves it by
// delta when it is the integer resolution.
func (m *Model) adjustParam(factor float64, delta int) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.sim.GetParams()[key]
	switch {
	case key == dynamo.ParamResolution:
		val += float64(delta)
	case val == 0 && factor > 1:
		val = 0.01
	default:
		val *= factor
	}
	if err := m.sim.SetParameter(key, val); err != nil {
		m.err = err
	}
}

// moveAnchors hands the anchors to a manual driver on first use.
func (m *Model) moveAnchors(d dynamo.Vec3) {
	if m.manual == nil {
		m.manual = drive.NewManual()
		m.sim.SetDriver(m.manual)
	}
	m.manual.Nudge(d)
}

// reset restores the starting parameters, obstacle and anchor offset.
func (m *Model) reset() {
	m.sim.SetObstacle(m.initialSphere)
	if m.manual != nil {
		m.manual.Center()
	}
	if err := m.sim.Reset(m.initial); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.last = sim.StepReport{}
	m.energyHistory = m.energyHistory[:0]
	m.running = true
}

// SceneOf captures the drawable state of s.
func SceneOf(s *sim.Simulation) Scene {
	particles := s.Particles()
	sc := Scene{
		Positions: make([]dynamo.Vec3, len(particles)),
		Fixed:     make([]bool, len(particles)),
		Springs:   s.Springs(),
	}
	for i, p := range particles {
		sc.Positions[i] = p.Position
		sc.Fixed[i] = p.Fixed
	}
	if o, ok := s.Obstacle(); ok {
		sc.Obstacle = &o
	}
	return sc
}

func (m *Model) draw() {
	m.canvas.Clear()
	Render(m.canvas, m.camera, SceneOf(m.sim))
}

// View renders the canvas next to the stats panel.
func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")

	frozen := m.sim.DivergedCount()
	status := statusRunning.Render("RUNNING")
	if !m.running {
		status = statusPaused.Render("PAUSED")
	}
	if frozen > 0 {
		status += " " + statusFrozen.Render(fmt.Sprintf("%d FROZEN", frozen))
	}
	s.WriteString(status + "\n")

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	e := m.sim.Energy()
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.sim.Time()))
	row("Step", fmt.Sprintf("%d (x%d)", m.sim.StepCount(), m.stepsPerTick))
	row("Energy", fmt.Sprintf("%.3f", e.Total()))
	row("Kinetic", fmt.Sprintf("%.3f", e.Kinetic))
	row("Particles", fmt.Sprintf("%d / %d springs", m.sim.NumParticles(), len(m.sim.Springs())))
	n := max(1, m.sim.NumParticles())
	row("Diverged", ProgressBar(float64(frozen)/float64(n), 10)+fmt.Sprintf(" %d", frozen))
	if m.manual != nil {
		o := m.manual.Offset
		row("Anchor offset", fmt.Sprintf("%+.2f %+.2f %+.2f", o.X, o.Y, o.Z))
	}

	s.WriteString("\nPARAMETERS\n")
	current := m.sim.GetParams()
	initial := m.initial.GetParams()
	for i, k := range m.paramKeys {
		val := current[k]
		ref := math.Abs(initial[k])
		if ref == 0 {
			ref = math.Max(1, math.Abs(val))
		}
		ratio := math.Max(0, math.Min(1, math.Abs(val)/(2*ref)))
		barWidth := 10
		filled := int(ratio * float64(barWidth))
		bar := "[" + strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled) + "]"
		line := fmt.Sprintf("%-19s %s %.3g", k, bar, val)
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + paramStyle.Render(line) + "\n")
		}
	}
	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause N:Step R:Reset Q:Quit ?:Help\nTab:Param ↑↓:Tune WASD/EC:Anchors"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
  Space      pause / resume
  N          single step while paused
  R          reset parameters, obstacle and anchors
  Tab        next parameter (Shift+Tab previous)
  Up/K Down/J tune parameter (±5%, resolution ±1)
  [ ]        halve / double steps per frame
  A D W S E C move anchors along -x +x +y -y +z -z
  0          return anchors to their base positions
  ← → X      rotate view, + - zoom, F fit
  Q          quit
`

// Run opens the live view for s until the user quits.
func Run(s *sim.Simulation, name string) error {
	_, err := tea.NewProgram(NewModel(s, name), tea.WithAltScreen()).Run()
	return err
}
