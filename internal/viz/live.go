// Package viz holds the terminal front ends: a live progress view for gain
// searches and a replay animation for recorded trajectories. Both are
// bubbletea programs; nothing here is needed for headless operation.
package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/mwielgat/swingtune/internal/pso"
	"github.com/mwielgat/swingtune/internal/tune"
)

const (
	chartWidth  = 46
	chartHeight = 8
	barWidth    = 24
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(13)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("84")).Bold(true)
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type iterMsg pso.IterationStats

type doneMsg struct {
	res *tune.Result
	err error
}

type tickMsg time.Time

// Model renders a running gain search: best-cost sparkline on the left,
// swarm stats on the right. Iteration events arrive over a channel so the
// swarm never waits on the terminal.
type Model struct {
	controller string
	particles  int
	budget     int

	events <-chan pso.IterationStats
	done   <-chan doneMsg
	cancel context.CancelFunc

	history  []float64
	last     pso.IterationStats
	seen     int
	started  time.Time
	elapsed  time.Duration
	stopping bool
	finished bool
	result   *tune.Result
	err      error
}

func newModel(o tune.Options, events <-chan pso.IterationStats, done <-chan doneMsg, cancel context.CancelFunc) Model {
	def := pso.DefaultOptions(nil, nil)
	budget, particles := o.Iterations, o.Particles
	if budget <= 0 {
		budget = def.MaxIterations
	}
	if particles <= 0 {
		particles = def.Particles
	}
	return Model{
		controller: o.Controller.String(),
		particles:  particles,
		budget:     budget,
		events:     events,
		done:       done,
		cancel:     cancel,
		history:    make([]float64, 0, budget),
		started:    time.Now(),
	}
}

func waitIter(ch <-chan pso.IterationStats) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return iterMsg(st)
	}
}

func waitDone(ch <-chan doneMsg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/4, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitIter(m.events), waitDone(m.done), tick())
}

// Update consumes key presses, iteration events and the final result. A quit
// key does not exit directly; it cancels the search and the view leaves once
// the tuner hands back the best candidate found so far.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.finished {
				return m, tea.Quit
			}
			m.stopping = true
			m.cancel()
		}
	case iterMsg:
		m.last = pso.IterationStats(msg)
		m.seen++
		m.history = append(m.history, m.last.BestCost)
		return m, waitIter(m.events)
	case doneMsg:
		m.finished = true
		m.result = msg.res
		m.err = msg.err
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	case tickMsg:
		if !m.finished {
			m.elapsed = time.Since(m.started)
			return m, tick()
		}
	}
	return m, nil
}

// View draws the search in flight, or the closing summary once the tuner is
// done. The summary is the last frame bubbletea leaves on screen.
func (m Model) View() string {
	if m.finished {
		return m.summary()
	}

	var left strings.Builder
	left.WriteString(headerStyle.Render("GAIN SEARCH · "+strings.ToUpper(m.controller)) + "\n")
	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(chartHeight), asciigraph.Width(chartWidth), asciigraph.Caption("best cost"))
		left.WriteString(graphStyle.Render(chart) + "\n")
	} else {
		left.WriteString(graphStyle.Render("waiting for the first iteration...") + "\n")
	}
	left.WriteString(fmt.Sprintf("\n%s %d/%d\n", bar(m.seen, m.budget, barWidth), m.seen, m.budget))

	var s strings.Builder
	status := "searching"
	if m.stopping {
		status = "stopping, keeping best so far"
	}
	s.WriteString(labelStyle.Render("Status") + valueStyle.Render(status) + "\n")
	s.WriteString(labelStyle.Render("Particles") + valueStyle.Render(fmt.Sprintf("%d", m.particles)) + "\n")
	s.WriteString(labelStyle.Render("Elapsed") + valueStyle.Render(fmtElapsed(m.elapsed)) + "\n")
	if m.seen > 0 {
		s.WriteString(labelStyle.Render("Best cost") + valueStyle.Render(fmt.Sprintf("%.6g", m.last.BestCost)) + "\n")
		s.WriteString(labelStyle.Render("Mean cost") + valueStyle.Render(fmt.Sprintf("%.6g", m.last.MeanCost)) + "\n")
		s.WriteString(labelStyle.Render("Diversity") + valueStyle.Render(fmt.Sprintf("%.3g", m.last.Diversity)) + "\n")
		s.WriteString(labelStyle.Render("Stagnation") + valueStyle.Render(fmt.Sprintf("%d", m.last.Stagnation)) + "\n")
	}
	s.WriteString(helpStyle.Render("Q:Stop and keep best"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(left.String()), statsStyle.Render(s.String()))
}

func (m Model) summary() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("GAIN SEARCH · "+strings.ToUpper(m.controller)) + "\n")
	if m.err != nil {
		s.WriteString(badStyle.Render("failed: "+m.err.Error()) + "\n")
		return canvasStyle.Render(s.String())
	}
	if m.result == nil {
		return canvasStyle.Render(s.String())
	}

	res := m.result
	s.WriteString(labelStyle.Render("Stopped") + valueStyle.Render(fmt.Sprintf("%s after %d iterations", res.Reason, res.Iterations)) + "\n")
	s.WriteString(labelStyle.Render("Best cost") + valueStyle.Render(fmt.Sprintf("%.6g", res.BestCost)) + "\n")
	if res.FoundStable {
		s.WriteString(labelStyle.Render("Stable") + goodStyle.Render("yes") + "\n")
	} else {
		s.WriteString(labelStyle.Render("Stable") + badStyle.Render("no") + "\n")
	}
	s.WriteString(labelStyle.Render("Elapsed") + valueStyle.Render(fmtElapsed(res.Elapsed)) + "\n")
	s.WriteString("\nGAINS\n")
	for i, name := range res.GainNames {
		if i < len(res.BestGains) {
			s.WriteString(labelStyle.Render(name) + valueStyle.Render(fmt.Sprintf("%.5g", res.BestGains[i])) + "\n")
		}
	}
	return canvasStyle.Render(s.String())
}

// Live runs a tuning session behind the progress view. Quitting the view
// cancels the search, which then returns the best candidate found so far,
// exactly as a plainly cancelled run would.
func Live(ctx context.Context, o tune.Options) (*tune.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan pso.IterationStats, 16)
	done := make(chan doneMsg, 1)

	forward := o.OnIteration
	o.OnIteration = func(st pso.IterationStats) {
		if forward != nil {
			forward(st)
		}
		// Drop the frame rather than stall the swarm on a slow terminal.
		select {
		case events <- st:
		default:
		}
	}

	go func() {
		res, err := tune.Run(ctx, o)
		done <- doneMsg{res: res, err: err}
		close(events)
	}()

	final, err := tea.NewProgram(newModel(o, events, done, cancel)).Run()
	if err != nil {
		cancel()
		d := <-done
		if d.err != nil {
			return d.res, d.err
		}
		return d.res, err
	}
	m := final.(Model)
	return m.result, m.err
}

func bar(done, total, width int) string {
	if total < 1 {
		total = 1
	}
	ratio := float64(done) / float64(total)
	if ratio > 1 {
		ratio = 1
	} else if ratio < 0 {
		ratio = 0
	}
	filled := int(ratio * float64(width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

func fmtElapsed(d time.Duration) string {
	return d.Truncate(100 * time.Millisecond).String()
}
