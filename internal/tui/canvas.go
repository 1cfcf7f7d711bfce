package tui

import "strings"

// Braille cells pack 2x4 dots per terminal character, offset 0x2800.
var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// canvas is a braille drawing surface. Coordinates are sub-pixels: the
// drawable area is (cols*2) x (rows*4).
type canvas struct {
	cols, rows int
	grid       [][]rune
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: cols, rows: rows, grid: make([][]rune, rows)}
	for i := range c.grid {
		c.grid[i] = make([]rune, cols)
		for j := range c.grid[i] {
			c.grid[i][j] = 0x2800
		}
	}
	return c
}

func (c *canvas) clear() {
	for i := range c.grid {
		for j := range c.grid[i] {
			c.grid[i][j] = 0x2800
		}
	}
}

func (c *canvas) set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.cols || row >= c.rows {
		return
	}
	c.grid[row][col] |= dotBits[y%4][x%2]
}

func (c *canvas) line(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// circle draws a midpoint circle outline.
func (c *canvas) circle(cx, cy, r int) {
	if r <= 0 {
		c.set(cx, cy)
		return
	}
	x, y := r, 0
	err := 1 - r
	for x >= y {
		c.set(cx+x, cy+y)
		c.set(cx+y, cy+x)
		c.set(cx-y, cy+x)
		c.set(cx-x, cy+y)
		c.set(cx-x, cy-y)
		c.set(cx-y, cy-x)
		c.set(cx+y, cy-x)
		c.set(cx+x, cy-y)
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for _, row := range c.grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
