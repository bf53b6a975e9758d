package plot

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/clusterlab/clusterlab/internal/analysis"
	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/simulation"
	"github.com/clusterlab/clusterlab/internal/units"
)

func TestCanvasSetsBrailleDots(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0) // top-left dot of the first cell
	c.Set(3, 3) // bottom-right dot of the second cell

	got := c.String()
	want := string([]rune{0x2800 | 0x1, 0x2800 | 0x80}) + "\n"
	if got != want {
		t.Fatalf("canvas = %q, want %q", got, want)
	}

	// Out-of-range dots are dropped silently.
	c.Set(-1, 0)
	c.Set(4, 0)
	c.Set(0, 4)
	if c.String() != want {
		t.Fatalf("out-of-range Set changed the canvas")
	}

	c.Clear()
	if c.String() != NewCanvas(2, 1).String() {
		t.Fatalf("clear left dots behind: %q", c.String())
	}
}

func cross(t *testing.T, scale float64) *datamodel.Particles {
	t.Helper()
	p := datamodel.NewParticles(0)
	for _, pos := range []datamodel.Vec3{
		{X: scale}, {X: -scale}, {Y: scale}, {Y: -scale},
	} {
		if _, err := p.Add(datamodel.Particle{Mass: 1, Pos: pos}); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func TestScatterCaptionAndZoom(t *testing.T) {
	p := cross(t, units.Parsec.Scale)

	grid, caption := Scatter(p, ScatterOptions{Width: 40, Height: 12})
	if !strings.Contains(caption, "x-y [pc]") || !strings.Contains(caption, "N=4") {
		t.Fatalf("caption = %q", caption)
	}
	if !strings.ContainsRune(grid, '\n') || len(grid) == 0 {
		t.Fatalf("empty grid")
	}
	lit := 0
	for _, r := range grid {
		if r > 0x2800 && r <= 0x28FF {
			lit++
		}
	}
	if lit == 0 {
		t.Fatalf("no dots set for a populated scatter")
	}

	// Fit is limited by the shorter axis: 1.05 * 40/24 pc half width.
	if !strings.Contains(caption, "half width 1.75") {
		t.Fatalf("caption = %q", caption)
	}
	// Doubling the zoom halves the captioned half width.
	_, zoomed := Scatter(p, ScatterOptions{Width: 40, Height: 12, Zoom: 2})
	if !strings.Contains(zoomed, "half width 0.875") {
		t.Fatalf("zoomed caption = %q", zoomed)
	}
}

func TestScatterEmptyAndPlanes(t *testing.T) {
	grid, caption := Scatter(datamodel.NewParticles(0), ScatterOptions{})
	if !strings.Contains(caption, "empty") {
		t.Fatalf("caption = %q", caption)
	}
	if grid == "" {
		t.Fatalf("even an empty scatter renders a grid")
	}

	if got := PlaneXY.Next(); got != PlaneXZ {
		t.Fatalf("Next(xy) = %v", got)
	}
	if got := PlaneYZ.Next(); got != PlaneXY {
		t.Fatalf("Next(yz) = %v", got)
	}
	if PlaneXZ.String() != "x-z" {
		t.Fatalf("String(xz) = %q", PlaneXZ.String())
	}
}

func TestHistogramBars(t *testing.T) {
	h := analysis.MassHistogram{
		Edges:  []float64{-1, 0, 1},
		Counts: []int{10, 5},
	}
	out := Histogram(h, 20)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 bar rows, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], strings.Repeat("█", 20)) {
		t.Fatalf("max bin should fill the bar width:\n%s", out)
	}
	if !strings.Contains(lines[1], strings.Repeat("█", 10)) || strings.Contains(lines[1], strings.Repeat("█", 11)) {
		t.Fatalf("half count should draw half the bar:\n%s", out)
	}
	if !strings.HasSuffix(lines[0], "10") || !strings.HasSuffix(lines[1], "5") {
		t.Fatalf("rows should end with counts:\n%s", out)
	}
}

func TestDiagSeries(t *testing.T) {
	rows := make([]simulation.DiagRow, 12)
	for i := range rows {
		rows[i] = simulation.DiagRow{
			Time:        float64(i) * units.Megayear.Scale,
			N:           100,
			Total:       -1e40 + float64(i)*1e37,
			VirialRatio: 0.5,
			R10:         1 * units.Parsec.Scale,
			R50:         3 * units.Parsec.Scale,
			R90:         9 * units.Parsec.Scale,
		}
	}

	for _, col := range SeriesColumns() {
		out, err := DiagSeries(rows, col)
		if err != nil {
			t.Fatalf("DiagSeries(%s): %v", col, err)
		}
		if out == "" {
			t.Fatalf("DiagSeries(%s) rendered nothing", col)
		}
	}

	radii, err := DiagSeries(rows, ColRadii)
	if err != nil {
		t.Fatal(err)
	}
	for _, legend := range []string{"r10", "r50", "r90"} {
		if !strings.Contains(radii, legend) {
			t.Fatalf("radii plot missing legend %s:\n%s", legend, radii)
		}
	}

	if _, err := DiagSeries(rows, SeriesColumn("bogus")); err == nil {
		t.Fatal("unknown column should error")
	}
	if _, err := DiagSeries(nil, ColTotal); err == nil {
		t.Fatal("empty rows should error")
	}
}

func TestSnapshotSVG(t *testing.T) {
	p := cross(t, units.Parsec.Scale)
	svg := SnapshotSVG(p, ScatterOptions{Recenter: true}, 400)

	if !strings.HasPrefix(svg, `<?xml`) || !strings.Contains(svg, "</svg>") {
		t.Fatalf("not an svg document:\n%.120s", svg)
	}
	if got := strings.Count(svg, "<circle"); got != 4 {
		t.Fatalf("want 4 circles, got %d", got)
	}
	if !strings.Contains(svg, "N=4") {
		t.Fatalf("missing caption text")
	}

	empty := SnapshotSVG(datamodel.NewParticles(0), ScatterOptions{}, 0)
	if strings.Contains(empty, "<circle") {
		t.Fatalf("empty set should draw no circles")
	}
}

func TestCameraOrbitChangesView(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p := datamodel.NewParticles(0)
	for i := 0; i < 200; i++ {
		_, err := p.Add(datamodel.Particle{
			Mass: 1,
			Pos: datamodel.Vec3{
				X: rng.NormFloat64(),
				Y: rng.NormFloat64(),
				Z: 3 * rng.NormFloat64(),
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	cam := NewCamera()
	canvas := NewCanvas(40, 16)
	cam.Render(canvas, p)
	before := canvas.String()
	if before == NewCanvas(40, 16).String() {
		t.Fatal("render drew nothing")
	}

	cam.Orbit(0.8)
	cam.Render(canvas, p)
	if canvas.String() == before {
		t.Fatal("orbiting the camera should change the projection")
	}
}
