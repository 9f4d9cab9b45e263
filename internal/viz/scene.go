package viz

import (
	"math"

	"github.com/san-kum/labsim/internal/sim"
	"github.com/san-kum/labsim/internal/table"
)

// 4x4 Bayer thresholds for dithering the temperature field.
var bayer = [4][4]float64{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

// Draw clears c and renders the current state of m onto it.
func Draw(c *Canvas, m *sim.Model) {
	c.Clear()
	switch m.Kind() {
	case sim.KindMD2D:
		drawParticles(c, m)
	case sim.KindEnergy2D:
		drawPlate(c, m)
	}
}

func float(m *sim.Model, name string) float64 {
	v, err := m.Get(name)
	if err != nil {
		return 0
	}
	f, _ := v.(float64)
	return f
}

func rowFloat(r table.Row, key string) float64 {
	f, _ := r[key].(float64)
	return f
}

func drawParticles(c *Canvas, m *sim.Model) {
	v := NewViewport(c, float(m, "width"), float(m, "height"))
	x0, y0 := v.Point(0, 0)
	x1, y1 := v.Point(v.Width, v.Height)
	c.DrawRect(x0, y0, x1, y1)

	r := v.Length(float(m, "sigma") / 2)
	for _, a := range m.Rows("atoms") {
		px, py := v.Point(rowFloat(a, "x"), rowFloat(a, "y"))
		if rowFloat(a, "excitation") > 0 {
			c.DrawDisc(px, py, r+1)
			continue
		}
		c.DrawDisc(px, py, r)
	}
	for _, p := range m.Rows("photons") {
		if rowFloat(p, "vx") == 0 && rowFloat(p, "vy") == 0 {
			continue
		}
		px, py := v.Point(rowFloat(p, "x"), rowFloat(p, "y"))
		c.Set(px, py)
	}
}

func drawPlate(c *Canvas, m *sim.Model) {
	v := NewViewport(c, float(m, "model_width"), float(m, "model_height"))
	field, nx, ny := m.Field()
	if len(field) > 0 {
		dither(c, v, field, nx, ny)
	}
	for _, p := range m.Parts() {
		x, y := rowFloat(p, "x"), rowFloat(p, "y")
		w, h := rowFloat(p, "width"), rowFloat(p, "height")
		if p["shapeType"] == "ellipse" {
			drawEllipse(c, v, x+w/2, y+h/2, w/2, h/2)
			continue
		}
		ax, ay := v.Point(x, y)
		bx, by := v.Point(x+w, y+h)
		c.DrawRect(ax, ay, bx, by)
	}
	for _, s := range m.Sensors() {
		px, py := v.Point(s.X, s.Y)
		for d := -1; d <= 1; d++ {
			c.Unset(px+d, py)
			c.Unset(px, py+d)
		}
	}
}

// dither sets a dot wherever the normalized temperature beneath it exceeds
// its Bayer threshold, so hotter regions render denser.
func dither(c *Canvas, v Viewport, field []float64, nx, ny int) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, t := range field {
		lo, hi = math.Min(lo, t), math.Max(hi, t)
	}
	span := hi - lo
	if span == 0 {
		return
	}
	x0, y1 := v.Point(0, 0)
	x1, y0 := v.Point(v.Width, v.Height)
	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			i := (px - x0) * nx / (x1 - x0 + 1)
			j := (y1 - py) * ny / (y1 - y0 + 1)
			t := (field[j*nx+i] - lo) / span
			if t*16 > bayer[py%4][px%4]+0.5 {
				c.Set(px, py)
			}
		}
	}
}

func drawEllipse(c *Canvas, v Viewport, cx, cy, a, b float64) {
	const segments = 48
	px, py := v.Point(cx+a, cy)
	for k := 1; k <= segments; k++ {
		th := 2 * math.Pi * float64(k) / segments
		qx, qy := v.Point(cx+a*math.Cos(th), cy+b*math.Sin(th))
		c.DrawLine(px, py, qx, qy)
		px, py = qx, qy
	}
}
