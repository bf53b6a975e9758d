package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clusterlab/clusterlab/internal/plot"
	"github.com/clusterlab/clusterlab/internal/simulation"
	"github.com/clusterlab/clusterlab/internal/units"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	statsPane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

const statsWidth = 26

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.viewHeader())

	cw := m.width - statsWidth - 6
	ch := m.height - 12
	if cw < 40 {
		cw = 40
	}
	if ch < 10 {
		ch = 10
	}

	left, caption := m.viewScatter(cw, ch)
	right := m.viewStats()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	b.WriteString("\n " + dim.Render(caption) + "\n")

	if spark := m.viewDrift(cw); spark != "" {
		b.WriteString("\n" + spark + "\n")
	}

	help := "space pause  tab plane  +/- zoom  r rotate  q quit"
	if m.rot {
		help = "space pause  ←/→ orbit  +/- zoom  r flat  q quit"
	}
	b.WriteString("\n " + dim.Render(help) + "\n")

	return b.String()
}

func (m Model) viewHeader() string {
	icon, status := green.Render("●"), green.Render("running")
	switch {
	case m.err != nil:
		icon, status = red.Render("✗"), red.Render(m.err.Error())
	case m.done:
		icon, status = cyan.Render("●"), cyan.Render("finished")
	case m.paused:
		icon, status = yellow.Render("○"), yellow.Render("paused")
	case m.mode == modeWatch:
		status = green.Render("watching")
	}

	tMyr := m.simTime / units.Megayear.Scale
	head := fmt.Sprintf("\n %s %s  %s  %s\n",
		icon, cyan.Render(m.name), status, white.Render(fmt.Sprintf("t = %.2f Myr", tMyr)))

	if m.mode != modeLive || m.endSI <= 0 {
		return head + "\n"
	}
	progress := math.Min(m.simTime/m.endSI, 1)
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) +
		dimmer.Render(strings.Repeat("─", barWidth-filled))
	endMyr := m.endSI / units.Megayear.Scale
	return head + fmt.Sprintf(" %s %s\n\n",
		bar, dim.Render(fmt.Sprintf("%.1f/%.0f Myr", tMyr, endMyr)))
}

func (m Model) viewScatter(w, h int) (string, string) {
	if m.rot {
		canvas := plot.NewCanvas(w, h)
		m.cam.Render(canvas, m.parts)
		n := 0
		if m.parts != nil {
			n = m.parts.Len()
		}
		caption := fmt.Sprintf("3d orbit view, zoom %.2g, N=%d", m.cam.Zoom, n)
		return canvas.String(), caption
	}
	return plot.Scatter(m.parts, plot.ScatterOptions{
		Width:    w,
		Height:   h,
		Plane:    m.plane,
		Recenter: true,
		Zoom:     m.zoom,
		Unit:     units.Parsec,
	})
}

func (m Model) viewStats() string {
	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("%s %s\n", dim.Render(fmt.Sprintf("%-7s", label)), white.Render(value)))
	}

	n := 0
	if m.parts != nil {
		n = m.parts.Len()
	}
	row("N", fmt.Sprintf("%d", n))

	if len(m.rows) > 0 {
		last := m.rows[len(m.rows)-1]
		row("E tot", fmt.Sprintf("%.4g J", last.Total))
		row("Q", fmt.Sprintf("%.3f", last.VirialRatio))
		row("r10", fmt.Sprintf("%.3g pc", last.R10/units.Parsec.Scale))
		row("r50", fmt.Sprintf("%.3g pc", last.R50/units.Parsec.Scale))
		row("r90", fmt.Sprintf("%.3g pc", last.R90/units.Parsec.Scale))
		row("bound", fmt.Sprintf("%.1f%%", 100*last.BoundFrac))
		if d := driftSeries(m.rows); len(d) > 0 {
			row("drift", fmt.Sprintf("%.2e", d[len(d)-1]))
		}
	}
	if !m.rot {
		row("plane", m.plane.String())
		row("zoom", fmt.Sprintf("%.2g", m.zoom))
	}

	return statsPane.Width(statsWidth).Render(strings.TrimRight(b.String(), "\n"))
}

// viewDrift plots |E-E0|/|E0| over the diagnostics so far.
func (m Model) viewDrift(width int) string {
	d := driftSeries(m.rows)
	if len(d) < 2 {
		return ""
	}
	if len(d) > 240 {
		d = d[len(d)-240:]
	}
	spark := plot.Sparkline(d, width-12, 4)
	if spark == "" {
		return ""
	}
	return spark + "\n " + dim.Render("energy drift |E-E0|/|E0|")
}

func driftSeries(rows []simulation.DiagRow) []float64 {
	if len(rows) == 0 {
		return nil
	}
	e0 := rows[0].Total
	den := math.Abs(e0)
	if den == 0 {
		den = 1
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = math.Abs(r.Total-e0) / den
	}
	return out
}
