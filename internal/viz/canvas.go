package viz

import (
	"math"
	"strings"
)

// Braille cells hold 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// offset from U+2800.
const blank = 0x2800

var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a character grid addressed in dots. A canvas of Width x Height
// cells has (Width*2) x (Height*4) dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (int, int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) cell(x, y int) (row, col int, mask rune, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, 0, false
	}
	col, row = x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, 0, false
	}
	return row, col, pixelMap[y%4][x%2], true
}

func (c *Canvas) Set(x, y int) {
	if row, col, mask, ok := c.cell(x, y); ok {
		c.Grid[row][col] |= mask
	}
}

func (c *Canvas) Unset(x, y int) {
	if row, col, mask, ok := c.cell(x, y); ok {
		c.Grid[row][col] &^= mask
		c.Grid[row][col] |= blank
	}
}

// IsSet reports whether the dot at (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	row, col, mask, ok := c.cell(x, y)
	return ok && c.Grid[row][col]&mask != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
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

// DrawDisc fills a disc of radius r dots centred on (cx, cy).
func (c *Canvas) DrawDisc(cx, cy, r int) {
	if r <= 0 {
		c.Set(cx, cy)
		return
	}
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.Set(cx+dx, cy+dy)
			}
		}
	}
}

// DrawRect outlines the rectangle with corners (x0, y0) and (x1, y1).
func (c *Canvas) DrawRect(x0, y0, x1, y1 int) {
	c.DrawLine(x0, y0, x1, y0)
	c.DrawLine(x1, y0, x1, y1)
	c.DrawLine(x1, y1, x0, y1)
	c.DrawLine(x0, y1, x0, y0)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps model coordinates, y up, onto canvas dots, y down. The
// model rectangle is scaled uniformly to fit.
type Viewport struct {
	Width, Height float64
	scale         float64
	offX, offY    int
	dotsY         int
}

func NewViewport(c *Canvas, width, height float64) Viewport {
	w, h := c.Dots()
	v := Viewport{Width: width, Height: height, dotsY: h}
	if width <= 0 || height <= 0 {
		return v
	}
	v.scale = math.Min(float64(w-1)/width, float64(h-1)/height)
	v.offX = (w - 1 - int(width*v.scale)) / 2
	v.offY = (h - 1 - int(height*v.scale)) / 2
	return v
}

// Point returns the dot for model coordinates (x, y).
func (v Viewport) Point(x, y float64) (int, int) {
	px := v.offX + int(math.Round(x*v.scale))
	py := v.dotsY - 1 - v.offY - int(math.Round(y*v.scale))
	return px, py
}

// Length converts a model distance to dots.
func (v Viewport) Length(d float64) int { return int(math.Round(d * v.scale)) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
