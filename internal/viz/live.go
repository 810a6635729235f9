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
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/san-kum/quadtask/internal/dynamo"
	"github.com/san-kum/quadtask/internal/policy"
	"github.com/san-kum/quadtask/internal/task"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 300
	trailCapacity   = 200
	frameRate       = 30
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps a task with a policy on every tick and draws the side view
// (x across, z up) of the quadcopter's flight.
type Model struct {
	task   *task.Task
	policy policy.Policy
	name   string

	obs     task.Observation
	steps   int
	ret     float64
	done    bool
	running bool
	last    []task.Substep
	action  task.RotorSpeeds

	rewards []float64
	trail   [][2]float64

	canvas   *Canvas
	view     Viewport
	params   map[string]float64
	keys     []string
	selected int
	showHelp bool
}

// NewModel resets t and returns a model driving it with p. name labels
// the header.
func NewModel(t *task.Task, p policy.Policy, name string) Model {
	m := Model{
		task:    t,
		policy:  p,
		name:    name,
		running: true,
		canvas:  NewCanvas(width, height),
		params:  map[string]float64{},
	}
	if c, ok := p.(dynamo.Configurable); ok {
		m.params = c.GetParams()
		for k := range m.params {
			m.keys = append(m.keys, k)
		}
		sort.Strings(m.keys)
	}
	m.reset()
	return m
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the task.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "n":
			if !m.running {
				m.step()
			}
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	if m.done {
		return
	}
	m.action = m.policy.Act(m.obs)
	obs, reward, done, subs := m.task.StepDetailed(m.action)
	m.obs, m.done, m.last = obs, done, subs
	m.ret += reward
	m.steps++

	m.rewards = append(m.rewards, reward)
	if len(m.rewards) > historyCapacity {
		m.rewards = m.rewards[1:]
	}
	m.record(obs.Latest())
}

func (m *Model) record(p task.Pose) {
	m.trail = append(m.trail, [2]float64{p[0], p[2]})
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
}

// reset starts a new episode with the current parameters.
func (m *Model) reset() {
	policy.Reset(m.policy)
	m.obs = m.task.Reset()
	m.steps, m.ret, m.done = 0, 0, false
	m.last = nil
	m.action = task.RotorSpeeds{}
	m.rewards = m.rewards[:0]
	m.trail = m.trail[:0]
	m.record(m.obs.Latest())
	m.view = viewportFor(m.task)
}

// viewportFor frames the start, the target and some headroom.
func viewportFor(t *task.Task) Viewport {
	start := t.Simulator().Pose()
	target := t.Target()
	x := r1.Interval{Min: math.Min(start[0], target[0]), Max: math.Max(start[0], target[0])}
	z := r1.Interval{Min: 0, Max: math.Max(start[2], target[2])}
	pad := math.Max(5, 0.25*math.Max(x.Max-x.Min, z.Max-z.Min))
	return Viewport{
		X: r1.Interval{Min: x.Min - 2*pad, Max: x.Max + 2*pad},
		Y: r1.Interval{Min: z.Min, Max: z.Max + pad},
	}
}

func (m *Model) cycleParam() {
	if len(m.keys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.keys)
}

func (m *Model) adjustParam(factor float64) {
	c, ok := m.policy.(dynamo.Configurable)
	if !ok || len(m.keys) == 0 {
		return
	}
	key := m.keys[m.selected]
	if err := c.SetParam(key, m.params[key]*factor); err == nil {
		m.params = c.GetParams()
	}
}

// Return is the reward accumulated in the current episode.
func (m Model) Return() float64 { return m.ret }

func (m Model) Steps() int { return m.steps }

func (m Model) Done() bool { return m.done }

func (m *Model) draw() {
	m.canvas.Clear()
	v := m.view

	m.canvas.Line(v, v.X.Min, 0, v.X.Max, 0)

	target := m.task.Target()
	tx, tz := target[0], target[2]
	m.canvas.Line(v, tx-1, tz, tx+1, tz)
	m.canvas.Line(v, tx, tz-1, tx, tz+1)

	for _, pt := range m.trail {
		m.canvas.Plot(v, pt[0], pt[1])
	}

	p := m.obs.Latest()
	x, z, pitch := p[0], p[2], p[4]
	arm := 0.04 * (v.X.Max - v.X.Min)
	c, s := math.Cos(pitch), math.Sin(pitch)
	m.canvas.Line(v, x-arm*c, z+arm*s, x+arm*c, z-arm*s)
	m.canvas.Line(v, x-arm*c, z+arm*s, x-arm*c, z+arm*s+arm/3)
	m.canvas.Line(v, x+arm*c, z-arm*s, x+arm*c, z-arm*s+arm/3)
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")

	switch {
	case m.done:
		s.WriteString(statusDone.Render("DONE") + "\n\n")
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	}

	if len(m.rewards) > 1 {
		chart := asciigraph.Plot(m.rewards, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Reward"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	p := m.obs.Latest()
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d", m.steps))
	row("Return", fmt.Sprintf("%.3f", m.ret))
	row("Position", fmt.Sprintf("%6.2f %6.2f %6.2f", p[0], p[1], p[2]))
	row("Angles", fmt.Sprintf("%6.3f %6.3f %6.3f", p[3], p[4], p[5]))
	row("Rotors", fmt.Sprintf("%.0f %.0f %.0f %.0f", m.action[0], m.action[1], m.action[2], m.action[3]))
	row("Distance", fmt.Sprintf("%.2f", task.Distance(p.Position(), m.task.Target())))

	if n := len(m.last); n > 0 {
		b := m.last[n-1].RewardBreakdown
		s.WriteString("\nREWARD\n")
		row("Proximity", fmt.Sprintf("%.3f", b.ProximityReward))
		s.WriteString(labelStyle.Render("Rotation") + penaltyStyle(b.RotationPunish).Render(fmt.Sprintf("-%d", b.RotationPunish)) + "\n")
		s.WriteString(labelStyle.Render("Shift") + penaltyStyle(b.ShiftPunish).Render(fmt.Sprintf("-%d", b.ShiftPunish)) + "\n")
	}

	if len(m.keys) > 0 {
		s.WriteString("\nPARAMETERS\n")
		for i, k := range m.keys {
			line := fmt.Sprintf("%-10s %.3f", k, m.params[k])
			if i == m.selected {
				s.WriteString(activeParamStyle.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + labelStyle.Render(line) + "\n")
			}
		}
	}

	s.WriteString(helpStyle.Render("SP:Pause R:Reset N:Step Q:Quit\nTab/↑↓:Tune ?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
  Space    pause or resume
  N        single step while paused
  R        reset the episode
  Tab      select policy parameter
  Up/K     increase parameter (+5%)
  Down/J   decrease parameter (-5%)
  ?        toggle this help
  Q        quit`
