package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwielgat/swingtune/internal/sim"
)

const (
	animCols = 70
	animRows = 20
	animFPS  = 60

	// Drawing scale in canvas dots.
	dotsPerMeter = 20
	linkLen      = 24.0
)

type frameMsg time.Time

type point struct{ x, y int }

// replayModel plays a recorded trajectory back at wall-clock speed, drawing
// the cart and both links on a braille canvas. The playhead is fractional so
// playback speed does not depend on the integration step.
type replayModel struct {
	tr         *sim.Trajectory
	controller string

	canvas *Canvas
	trail  []point
	pos    float64
	paused bool
	ended  bool
}

func newReplayModel(tr *sim.Trajectory, controller string) replayModel {
	return replayModel{
		tr:         tr,
		controller: controller,
		canvas:     NewCanvas(animCols, animRows),
		trail:      make([]point, 0, 200),
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(time.Second/animFPS, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m replayModel) Init() tea.Cmd {
	return frameTick()
}

func (m replayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "r":
			m.pos = 0
			m.trail = m.trail[:0]
			m.paused = false
			m.ended = false
		case "[":
			m.scrub(-0.5)
		case "]":
			m.scrub(0.5)
		}
	case frameMsg:
		if !m.paused && !m.ended {
			m.pos += 1.0 / (animFPS * m.tr.Dt)
			if int(m.pos) >= len(m.tr.States) {
				m.pos = float64(len(m.tr.States) - 1)
				m.ended = true
			}
			m.pushTrail(int(m.pos))
		}
		return m, frameTick()
	}
	return m, nil
}

// pushTrail records the second tip for the current frame. Trail state lives
// in Update because View works on a copy of the model.
func (m *replayModel) pushTrail(frame int) {
	x := m.tr.States[frame]
	_, dotH := m.canvas.Dots()
	groundY := dotH - 12
	cartX := m.cartDotX(x[0])
	t1x := cartX + int(linkLen*math.Sin(x[1]))
	t1y := groundY - int(linkLen*math.Cos(x[1]))
	m.trail = append(m.trail, point{
		t1x + int(linkLen*math.Sin(x[2])),
		t1y - int(linkLen*math.Cos(x[2])),
	})
	if len(m.trail) > 200 {
		m.trail = m.trail[1:]
	}
}

func (m *replayModel) cartDotX(x float64) int {
	dotW, _ := m.canvas.Dots()
	return dotW/2 + int(x*dotsPerMeter)
}

// scrub jumps the playhead by seconds and pauses, so stepping through a
// divergence frame by frame is possible.
func (m *replayModel) scrub(seconds float64) {
	m.pos += seconds / m.tr.Dt
	if m.pos < 0 {
		m.pos = 0
	}
	if int(m.pos) >= len(m.tr.States) {
		m.pos = float64(len(m.tr.States) - 1)
	}
	m.paused = true
	m.ended = false
	m.trail = m.trail[:0]
}

func (m replayModel) View() string {
	frame := int(m.pos)
	if frame >= len(m.tr.States) {
		frame = len(m.tr.States) - 1
	}
	m.draw(frame)

	x := m.tr.States[frame]
	var s strings.Builder
	status := "playing"
	switch {
	case m.ended:
		status = "end, R to replay"
	case m.paused:
		status = "paused"
	}
	s.WriteString(labelStyle.Render("Status") + valueStyle.Render(status) + "\n")
	s.WriteString(labelStyle.Render("Outcome") + outcomeView(m.tr) + "\n\n")
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.tr.Times[frame])) + "\n")
	s.WriteString(labelStyle.Render("Cart x") + valueStyle.Render(fmt.Sprintf("%+.3f m", x[0])) + "\n")
	s.WriteString(labelStyle.Render("Theta1") + valueStyle.Render(fmt.Sprintf("%+.3f rad", x[1])) + "\n")
	s.WriteString(labelStyle.Render("Theta2") + valueStyle.Render(fmt.Sprintf("%+.3f rad", x[2])) + "\n")
	s.WriteString(labelStyle.Render("Force") + valueStyle.Render(fmt.Sprintf("%+.2f N", m.tr.Controls[frame])) + "\n")
	s.WriteString(labelStyle.Render("Surface") + valueStyle.Render(fmt.Sprintf("%+.4f", m.tr.Surfaces[frame])) + "\n")
	s.WriteString(fmt.Sprintf("\n%s %.1fs\n", bar(frame, len(m.tr.States)-1, barWidth), m.tr.Times[len(m.tr.Times)-1]))
	s.WriteString(helpStyle.Render("SP:Pause R:Restart [ ]:Scrub Q:Quit"))

	var left strings.Builder
	left.WriteString(headerStyle.Render("REPLAY · "+strings.ToUpper(m.controller)) + "\n")
	left.WriteString(m.canvas.String())

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(left.String()), statsStyle.Render(s.String()))
}

// draw renders one sample: ground, cart, both links, tip trail and a force
// tick under the cart. Angles are measured from upright, so theta = 0 points
// straight up the screen. The canvas is shared, so drawing from View sticks.
func (m replayModel) draw(frame int) {
	m.canvas.Clear()
	dotW, dotH := m.canvas.Dots()
	groundY := dotH - 12

	x := m.tr.States[frame]
	cartX := m.cartDotX(x[0])

	m.canvas.Line(0, groundY+4, dotW, groundY+4)
	m.canvas.FillRect(cartX-6, groundY, 13, 4)

	t1x := cartX + int(linkLen*math.Sin(x[1]))
	t1y := groundY - int(linkLen*math.Cos(x[1]))
	t2x := t1x + int(linkLen*math.Sin(x[2]))
	t2y := t1y - int(linkLen*math.Cos(x[2]))

	for _, pt := range m.trail {
		m.canvas.Set(pt.x, pt.y)
	}

	m.canvas.Line(cartX, groundY, t1x, t1y)
	m.canvas.Line(t1x, t1y, t2x, t2y)
	m.canvas.FillRect(t1x-1, t1y-1, 3, 3)
	m.canvas.FillRect(t2x-1, t2y-1, 3, 3)

	u := m.tr.Controls[frame]
	if math.Abs(u) > 0.5 {
		fx := int(u * 0.2)
		if fx > 26 {
			fx = 26
		} else if fx < -26 {
			fx = -26
		}
		m.canvas.Line(cartX, groundY+8, cartX+fx, groundY+8)
	}
}

func outcomeView(tr *sim.Trajectory) string {
	switch tr.Status {
	case sim.StatusCompleted, sim.StatusConverged:
		return goodStyle.Render(tr.Status.String())
	case sim.StatusUnstable:
		return badStyle.Render(fmt.Sprintf("%s at t=%.2fs", tr.Status, tr.FailTime))
	default:
		return badStyle.Render(tr.Status.String())
	}
}

// Replay plays a recorded trajectory as a terminal animation.
func Replay(tr *sim.Trajectory, controller string) error {
	if len(tr.States) == 0 {
		return fmt.Errorf("viz: trajectory has no samples")
	}
	_, err := tea.NewProgram(newReplayModel(tr, controller)).Run()
	return err
}
