// Package tui is the live cluster viewer: a braille scatter of the
// bodies next to the current diagnostics, refreshed as the run
// advances. It either drives an in-process runner or tails the
// snapshot directory of a run owned by another process.
package tui

import (
	"context"
	"errors"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/plot"
	"github.com/clusterlab/clusterlab/internal/simulation"
)

type mode int

const (
	modeLive mode = iota
	modeWatch
)

// frameBudget is how long one step command may keep integrating before
// it hands a frame back to the event loop.
const frameBudget = 33 * time.Millisecond

type frame struct {
	parts *datamodel.Particles
	rows  []simulation.DiagRow
	time  float64 // s
	done  bool
}

type frameMsg struct {
	frame
	err error
}

type snapshotMsg string

type watchClosedMsg struct{}

// Model is the bubbletea model of the viewer.
type Model struct {
	mode mode
	name string
	ctx  context.Context

	runner *simulation.Runner // live
	endSI  float64

	dir   string // watch
	snaps <-chan string

	parts   *datamodel.Particles
	rows    []simulation.DiagRow
	simTime float64
	done    bool
	paused  bool
	err     error

	plane plot.Plane
	zoom  float64
	rot   bool
	cam   *plot.Camera

	width  int
	height int
}

// NewLive views a runner that this process steps itself. The context
// stops the integration, not just the UI.
func NewLive(ctx context.Context, name string, r *simulation.Runner) Model {
	return Model{
		mode:   modeLive,
		name:   name,
		ctx:    ctx,
		runner: r,
		endSI:  r.End(),
		zoom:   1,
		cam:    plot.NewCamera(),
		width:  80,
		height: 24,
	}
}

// NewWatch tails the snapshot directory of an external run. The initial
// frame is the latest snapshot already on disk, if any.
func NewWatch(ctx context.Context, dir string) (Model, error) {
	snaps, err := simulation.WatchSnapshots(ctx, dir)
	if err != nil {
		return Model{}, err
	}
	m := Model{
		mode:   modeWatch,
		name:   dir,
		ctx:    ctx,
		dir:    dir,
		snaps:  snaps,
		zoom:   1,
		cam:    plot.NewCamera(),
		width:  80,
		height: 24,
	}
	if man, err := simulation.ReadManifest(dir); err == nil {
		m.name = man.Name
	}
	if latest, err := simulation.LatestSnapshot(dir); err == nil {
		if parts, err := simulation.ReadSnapshot(latest); err == nil {
			m.parts = parts
		}
	}
	if rows, err := simulation.ReadSeries(dir); err == nil && len(rows) > 0 {
		m.rows = rows
		m.simTime = rows[len(rows)-1].Time
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	if m.mode == modeLive {
		return m.stepCmd()
	}
	return m.waitSnapshotCmd()
}

// stepCmd integrates macro steps for up to one frame budget, then
// reports the new state. The next command is only issued once this one
// lands, so the runner is never touched from two goroutines.
func (m Model) stepCmd() tea.Cmd {
	r := m.runner
	ctx := m.ctx
	return func() tea.Msg {
		start := time.Now()
		for {
			done, err := r.StepOnce(ctx)
			if err != nil {
				return frameMsg{err: err}
			}
			if done || time.Since(start) >= frameBudget {
				parts, perr := r.Merged()
				if perr != nil {
					return frameMsg{err: perr}
				}
				return frameMsg{frame: frame{
					parts: parts,
					rows:  r.Rows(),
					time:  r.Time(),
					done:  done,
				}}
			}
		}
	}
}

func (m Model) waitSnapshotCmd() tea.Cmd {
	ch := m.snaps
	return func() tea.Msg {
		path, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return snapshotMsg(path)
	}
}

func (m Model) readSnapshotCmd(path string) tea.Cmd {
	dir := m.dir
	return func() tea.Msg {
		parts, err := simulation.ReadSnapshot(path)
		if err != nil {
			return frameMsg{err: err}
		}
		f := frame{parts: parts}
		// The series file may trail the snapshot; stale rows are fine.
		if rows, err := simulation.ReadSeries(dir); err == nil {
			f.rows = rows
			if len(rows) > 0 {
				f.time = rows[len(rows)-1].Time
			}
		}
		return frameMsg{frame: f}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case frameMsg:
		if msg.err != nil {
			if errors.Is(msg.err, context.Canceled) {
				return m, tea.Quit
			}
			m.err = msg.err
			return m, nil
		}
		m.parts = msg.parts
		m.rows = msg.rows
		m.simTime = msg.time
		if msg.done {
			m.done = true
		}
		if m.mode == modeLive && !m.paused && !m.done {
			return m, m.stepCmd()
		}
		return m, nil

	case snapshotMsg:
		if m.paused {
			return m, m.waitSnapshotCmd()
		}
		return m, tea.Batch(m.readSnapshotCmd(string(msg)), m.waitSnapshotCmd())

	case watchClosedMsg:
		m.done = true
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case " ", "p":
		m.paused = !m.paused
		if !m.paused && m.mode == modeLive && !m.done && m.err == nil {
			return m, m.stepCmd()
		}
		if !m.paused && m.mode == modeWatch {
			if latest, err := simulation.LatestSnapshot(m.dir); err == nil {
				return m, m.readSnapshotCmd(latest)
			}
		}

	case "tab":
		m.plane = m.plane.Next()

	case "r":
		m.rot = !m.rot

	case "+", "=":
		if m.rot {
			m.cam.ZoomIn()
		} else {
			m.zoom = math.Min(m.zoom*1.25, 32)
		}

	case "-", "_":
		if m.rot {
			m.cam.ZoomOut()
		} else {
			m.zoom = math.Max(m.zoom/1.25, 1.0/32)
		}

	case "0":
		m.zoom = 1
		m.cam = plot.NewCamera()

	case "left", "h":
		if m.rot {
			m.cam.Orbit(-0.15)
		}

	case "right", "l":
		if m.rot {
			m.cam.Orbit(0.15)
		}
	}
	return m, nil
}

// Run starts the viewer in the alternate screen.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
