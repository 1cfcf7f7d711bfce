// Package tui renders a stepping world in the terminal as a side view on a
// braille canvas, with a stats panel for the watched body.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/keel-engine/keel/internal/engine"
	"github.com/keel-engine/keel/internal/scene"
)

const (
	canvasCols = 70
	canvasRows = 22
	historyCap = 300

	// World window projected onto the canvas, in meters.
	worldLeft   = -12.0
	worldRight  = 12.0
	worldBottom = -1.0
	worldTop    = 11.0
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	canvasStyle = lipgloss.NewStyle().Padding(0, 2)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 2)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model drives one engine at its fixed tick rate and draws the result.
type Model struct {
	eng     *engine.Engine
	sc      *scene.Scene
	canvas  *canvas
	paused  bool
	ticks   uint64
	history []float64
	lastErr error
}

func NewModel(eng *engine.Engine, sc *scene.Scene) *Model {
	m := &Model{
		eng:     eng,
		sc:      sc,
		canvas:  newCanvas(canvasCols, canvasRows),
		history: make([]float64, 0, historyCap),
	}
	m.replayScene()
	return m
}

// replayScene feeds the scene declarations to the engine. Under an
// immediate-mode engine a fatal message error surfaces here instead of at
// the next step, so it is captured the same way step captures one.
func (m *Model) replayScene() {
	for _, msg := range m.sc.Messages {
		if err := m.eng.EnqueueMessage(msg); err != nil {
			m.lastErr = err
			m.paused = true
			return
		}
	}
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "r":
			m.reset()
		}
		return m, nil
	case TickMsg:
		if !m.paused {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	batch := m.eng.PopMessages()
	if _, err := m.eng.Integrate(engine.Ticks(1), batch); err != nil {
		m.lastErr = err
		m.paused = true
		return
	}
	m.ticks++

	if center, err := m.eng.BodyCenter(m.sc.Watch); err == nil {
		m.history = append(m.history, float64(center.Y()))
		if len(m.history) > historyCap {
			m.history = m.history[1:]
		}
	}
}

// reset tears the world down and replays the scene from its declarations.
func (m *Model) reset() {
	m.ticks = 0
	m.history = m.history[:0]
	m.lastErr = nil
	m.paused = false

	if err := m.eng.EnqueueMessage(engine.RebuildPhysicsMessage{}); err != nil {
		m.lastErr = err
		m.paused = true
		return
	}
	m.replayScene()
}

func (m *Model) View() string {
	m.draw()

	header := headerStyle.Render(fmt.Sprintf("keel watch  scene=%s  t=%.2fs", m.sc.Name, float64(m.ticks)/60))

	var stats strings.Builder
	stats.WriteString(labelStyle.Render("bodies") + valueStyle.Render(fmt.Sprintf("%d", m.eng.BodyCount())) + "\n")
	g := m.eng.Gravity()
	stats.WriteString(labelStyle.Render("gravity") + valueStyle.Render(fmt.Sprintf("(%.1f %.1f %.1f)", g.X(), g.Y(), g.Z())) + "\n")
	if center, err := m.eng.BodyCenter(m.sc.Watch); err == nil {
		stats.WriteString(labelStyle.Render("watch") + valueStyle.Render(m.sc.Watch.String()) + "\n")
		stats.WriteString(labelStyle.Render("center") + valueStyle.Render(fmt.Sprintf("(%.2f %.2f %.2f)", center.X(), center.Y(), center.Z())) + "\n")
		if vel, err := m.eng.GetBodyLinearVelocity(m.sc.Watch); err == nil {
			stats.WriteString(labelStyle.Render("velocity") + valueStyle.Render(fmt.Sprintf("%.2f m/s", vel.Len())) + "\n")
		}
		stats.WriteString(labelStyle.Render("grounded") + valueStyle.Render(fmt.Sprintf("%v", m.eng.IsBodyOnGround(m.sc.Watch))) + "\n")
	}
	if m.lastErr != nil {
		stats.WriteString(alertStyle.Render("error: "+m.lastErr.Error()) + "\n")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.canvas.String()),
		stats.String(),
	)

	graph := ""
	if len(m.history) > 2 {
		graph = graphStyle.Render(asciigraph.Plot(m.history,
			asciigraph.Height(6),
			asciigraph.Width(canvasCols),
			asciigraph.Caption("watched body height"),
		))
	}

	help := helpStyle.Render("space pause · r reset · q quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, graph, help)
}

func (m *Model) draw() {
	m.canvas.clear()

	// Ground line at y=0.
	gx0, gy := project(worldLeft, 0)
	gx1, _ := project(worldRight, 0)
	m.canvas.line(gx0, gy, gx1, gy)

	for _, v := range m.eng.Views() {
		x, y := project(float64(v.Center.X()), float64(v.Center.Y()))
		r := int(float64(v.Radius) * subPerMeterX())
		switch {
		case v.Ghost:
			m.canvas.set(x-r, y-r)
			m.canvas.set(x+r, y-r)
			m.canvas.set(x-r, y+r)
			m.canvas.set(x+r, y+r)
			m.canvas.set(x, y)
		case v.Static:
			m.canvas.line(x-r, y, x+r, y)
		default:
			m.canvas.circle(x, y, r)
			if v.Sleeping {
				m.canvas.set(x, y)
			}
		}
	}
}

func subPerMeterX() float64 {
	return float64(canvasCols*2) / (worldRight - worldLeft)
}

// project maps world XY to canvas sub-pixels, Y flipped.
func project(wx, wy float64) (int, int) {
	x := (wx - worldLeft) / (worldRight - worldLeft) * float64(canvasCols*2)
	y := (1 - (wy-worldBottom)/(worldTop-worldBottom)) * float64(canvasRows*4)
	return int(x), int(y)
}
