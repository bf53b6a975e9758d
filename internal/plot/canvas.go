// Package plot renders snapshots and diagnostic series for terminals:
// braille scatter projections, asciigraph line charts, mass-function
// bars and an SVG export for reports.
package plot

import "strings"

// Braille patterns pack 2x4 dots per character cell:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// starting at U+2800.
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a braille dot grid. Width and Height are character cells;
// the drawable area is (2*Width) x (4*Height) dots.
type Canvas struct {
	Width, Height int
	grid          []rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, grid: make([]rune, w*h)}
	c.Clear()
	return c
}

// DotWidth and DotHeight are the drawable extent in dots.
func (c *Canvas) DotWidth() int  { return c.Width * 2 }
func (c *Canvas) DotHeight() int { return c.Height * 4 }

// Set turns on the dot at (x, y) in dot coordinates. Out-of-range dots
// are dropped, which makes clipping the caller's non-problem.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.grid[row*c.Width+col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.grid {
		c.grid[i] = 0x2800
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(c.Height * (c.Width + 1) * 3)
	for row := 0; row < c.Height; row++ {
		b.WriteString(string(c.grid[row*c.Width : (row+1)*c.Width]))
		b.WriteByte('\n')
	}
	return b.String()
}
