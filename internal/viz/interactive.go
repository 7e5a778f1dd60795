package viz

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/experiment"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	subStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	pickStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

var scenarioInfo = map[string]string{
	"single_spring": "one bob on one spring",
	"rectangle":     "four bodies, one anchor",
	"grid":          "pinned sheet, structural springs",
	"cloth":         "pinned sheet with shear springs",
}

const (
	stateScenario = iota
	statePreset
	stateConfig
	stateSim
)

// App walks the user from scenario to preset to parameter edits, then
// hands over to the live Model.
type App struct {
	state       int
	cursor      int
	scenarios   []string
	presets     []string
	scenario    string
	cfg         *config.Config
	paramNames  []string
	editing     bool
	editBuf     string
	err         error
	logger      *slog.Logger
	live        Model
	initialSize tea.WindowSizeMsg
}

func NewApp(logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{state: stateScenario, scenarios: config.Scenarios(), logger: logger}
}

func (a App) Init() tea.Cmd { return nil }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)
	case tea.WindowSizeMsg:
		a.initialSize = msg
		if a.state == stateSim {
			return a.forward(msg)
		}
		return a, nil
	default:
		if a.state == stateSim {
			return a.forward(msg)
		}
	}
	return a, nil
}

func (a App) forward(msg tea.Msg) (App, tea.Cmd) {
	next, cmd := a.live.Update(msg)
	a.live = next.(Model)
	return a, cmd
}

func (a App) handleKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch a.state {
	case stateScenario:
		next, pick, cmd := a.listKey(msg, a.scenarios)
		if pick != "" {
			next.scenario = pick
			next.presets = config.ListPresets(pick)
			next.state = statePreset
		}
		return next, cmd
	case statePreset:
		if msg.String() == "esc" {
			a.state, a.cursor = stateScenario, 0
			return a, nil
		}
		next, pick, cmd := a.listKey(msg, a.presets)
		if pick != "" {
			next.cfg = config.GetPreset(a.scenario, pick)
			next.paramNames = sortedKeys(next.cfg.Params.GetParams())
			next.state = stateConfig
		}
		return next, cmd
	case stateConfig:
		return a.configKey(msg)
	case stateSim:
		return a.forward(msg)
	}
	return a, nil
}

// listKey moves the cursor over items and returns the item picked with
// enter, or "" when nothing was picked.
func (a App) listKey(msg tea.KeyMsg, items []string) (App, string, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, "", tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(items)-1 {
			a.cursor++
		}
	case "enter", " ":
		if len(items) > 0 {
			pick := items[a.cursor]
			a.cursor = 0
			return a, pick, nil
		}
	}
	return a, "", nil
}

func (a App) configKey(msg tea.KeyMsg) (App, tea.Cmd) {
	if a.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(a.editBuf, 64); err == nil {
				a.err = a.cfg.Params.SetParam(a.paramNames[a.cursor], v)
			} else {
				a.err = err
			}
			a.editing, a.editBuf = false, ""
		case "esc":
			a.editing, a.editBuf = false, ""
		case "backspace":
			if len(a.editBuf) > 0 {
				a.editBuf = a.editBuf[:len(a.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-e") {
				a.editBuf += s
			}
		}
		return a, nil
	}
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "esc":
		a.state, a.cursor = statePreset, 0
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.paramNames)-1 {
			a.cursor++
		}
	case "enter", " ":
		a.editing = true
		a.editBuf = strconv.FormatFloat(a.cfg.Params.GetParams()[a.paramNames[a.cursor]], 'g', -1, 64)
	case "s":
		return a.start()
	}
	return a, nil
}

// start builds the configured experiment and switches to the live view.
func (a App) start() (App, tea.Cmd) {
	exp, err := experiment.New(a.cfg, experiment.WithLogger(a.logger))
	if err != nil {
		a.err = err
		return a, nil
	}
	a.err = nil
	a.live = NewModel(exp.Simulation(), a.scenario)
	if a.initialSize.Width > 0 {
		next, _ := a.live.Update(a.initialSize)
		a.live = next.(Model)
	}
	a.state = stateSim
	return a, a.live.Init()
}

func (a App) View() string {
	switch a.state {
	case stateScenario:
		return a.viewList("SPRINGSIM", "mass-spring simulation", a.scenarios, scenarioInfo)
	case statePreset:
		return a.viewList(strings.ToUpper(a.scenario), scenarioInfo[a.scenario], a.presets, nil)
	case stateConfig:
		return a.viewConfig()
	case stateSim:
		return a.live.View()
	}
	return ""
}

func (a App) header(title, sub string) string {
	return "\n\n    " + titleStyle.Render(title) + "\n    " + subStyle.Render(sub) + "\n    " + subStyle.Render(strings.Repeat("─", 25)) + "\n\n"
}

func hints(pairs ...string) string {
	var b strings.Builder
	b.WriteString("\n    ")
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(keyStyle.Render(pairs[i]) + idleStyle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String() + "\n"
}

func (a App) viewList(title, sub string, items []string, info map[string]string) string {
	var b strings.Builder
	b.WriteString(a.header(title, sub))
	for i, name := range items {
		if i == a.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", cursorStyle.Render("▸"), pickStyle.Render(fmt.Sprintf("%-16s", name)), subStyle.Render(info[name])))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", idleStyle.Render(fmt.Sprintf("  %-16s", name)), idleStyle.Render(info[name])))
		}
	}
	return b.String() + hints("j/k", "navigate", "enter", "select", "esc", "back", "q", "quit")
}

func (a App) viewConfig() string {
	var b strings.Builder
	b.WriteString(a.header(strings.ToUpper(a.scenario), fmt.Sprintf("mass %.3g, %d steps", a.cfg.Mass, a.cfg.Steps)))
	params := a.cfg.Params.GetParams()
	for i, name := range a.paramNames {
		val := fmt.Sprintf("%10.4g", params[name])
		if a.editing && i == a.cursor {
			val = fmt.Sprintf("%10s", a.editBuf+"_")
		}
		if i == a.cursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", cursorStyle.Render("▸"), pickStyle.Render(fmt.Sprintf("%-20s", name)), activeParamStyle.Render(val)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", idleStyle.Render(fmt.Sprintf("  %-20s", name)), idleStyle.Render(val)))
		}
	}
	if a.err != nil {
		b.WriteString("\n    " + errorStyle.Render(a.err.Error()) + "\n")
	}
	return b.String() + hints("j/k", "select", "enter", "edit", "s", "start", "esc", "back")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RunInteractive opens the scenario picker.
func RunInteractive(logger *slog.Logger) error {
	_, err := tea.NewProgram(NewApp(logger), tea.WithAltScreen()).Run()
	return err
}
