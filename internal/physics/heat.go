package physics

import (
	"math"

	"github.com/san-kum/labsim/internal/dynamo"
)

// Part is a structural element painted onto the heat grid.
type Part struct {
	Shape            string // "rectangle" or "ellipse", bounded by X, Y, W, H
	X, Y, W, H       float64
	Temperature      float64
	Conductivity     float64
	FixedTemperature bool
}

func (p Part) contains(x, y float64) bool {
	if p.Shape == "ellipse" {
		a, b := p.W/2, p.H/2
		if a <= 0 || b <= 0 {
			return false
		}
		dx, dy := (x-p.X-a)/a, (y-p.Y-b)/b
		return dx*dx+dy*dy <= 1
	}
	return x >= p.X && x <= p.X+p.W && y >= p.Y && y <= p.Y+p.H
}

// HeatGrid solves dT/dt = ∇·(k∇T) on NX×NY cells covering Width×Height with
// insulating borders. Temperatures are stored row-major, T[j*NX+i].
type HeatGrid struct {
	NX, NY        int
	Width, Height float64

	K     []float64
	Fixed []bool
}

func NewHeatGrid(nx, ny int, width, height float64) *HeatGrid {
	return &HeatGrid{
		NX: nx, NY: ny, Width: width, Height: height,
		K:     make([]float64, nx*ny),
		Fixed: make([]bool, nx*ny),
	}
}

func (g *HeatGrid) StateDim() int { return g.NX * g.NY }

func (g *HeatGrid) dx() float64 { return g.Width / float64(g.NX) }
func (g *HeatGrid) dy() float64 { return g.Height / float64(g.NY) }

func (g *HeatGrid) center(i, j int) (float64, float64) {
	return (float64(i) + 0.5) * g.dx(), (float64(j) + 0.5) * g.dy()
}

// Paint resets conductivity to background and applies parts in order, later
// parts winning. When t is non-nil, cells under a part take its temperature
// and the rest take ambient.
func (g *HeatGrid) Paint(parts []Part, background float64, t []float64, ambient float64) {
	for j := 0; j < g.NY; j++ {
		for i := 0; i < g.NX; i++ {
			c := j*g.NX + i
			g.K[c], g.Fixed[c] = background, false
			if t != nil {
				t[c] = ambient
			}
			x, y := g.center(i, j)
			for _, p := range parts {
				if !p.contains(x, y) {
					continue
				}
				g.K[c] = p.Conductivity
				g.Fixed[c] = p.FixedTemperature
				if t != nil {
					t[c] = p.Temperature
				}
			}
		}
	}
}

// Pin resets cells under fixed-temperature parts to the part temperature.
func (g *HeatGrid) Pin(parts []Part, t []float64) {
	for j := 0; j < g.NY; j++ {
		for i := 0; i < g.NX; i++ {
			x, y := g.center(i, j)
			for _, p := range parts {
				if p.FixedTemperature && p.contains(x, y) {
					t[j*g.NX+i] = p.Temperature
				}
			}
		}
	}
}

func (g *HeatGrid) Derive(t dynamo.State, _ float64) dynamo.State {
	nx, ny := g.NX, g.NY
	idx2, idy2 := 1/(g.dx()*g.dx()), 1/(g.dy()*g.dy())
	d := make(dynamo.State, len(t))

	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			c := j*nx + i
			if g.Fixed[c] {
				continue
			}
			flux := func(n int, scale float64) float64 {
				return 0.5 * (g.K[c] + g.K[n]) * (t[n] - t[c]) * scale
			}
			var sum float64
			if i > 0 {
				sum += flux(c-1, idx2)
			}
			if i < nx-1 {
				sum += flux(c+1, idx2)
			}
			if j > 0 {
				sum += flux(c-nx, idy2)
			}
			if j < ny-1 {
				sum += flux(c+nx, idy2)
			}
			d[c] = sum
		}
	}
	return d
}

// StableStep is the largest FTCS step for the current conductivities, with
// a 10% margin.
func (g *HeatGrid) StableStep() float64 {
	kmax := 0.0
	for _, k := range g.K {
		kmax = math.Max(kmax, k)
	}
	if kmax == 0 {
		return math.Inf(1)
	}
	return 0.9 / (2 * kmax * (1/(g.dx()*g.dx()) + 1/(g.dy()*g.dy())))
}

// Advance integrates t over dt, splitting it into as many equal sub-steps
// as stability requires. It returns the new field and the sub-step count.
func (g *HeatGrid) Advance(integ dynamo.Integrator, t dynamo.State, now, dt float64) (dynamo.State, int) {
	n := int(math.Ceil(dt / g.StableStep()))
	if n < 1 {
		n = 1
	}
	h := dt / float64(n)
	for k := 0; k < n; k++ {
		t = integ.Step(g, t, now+float64(k)*h, h)
	}
	return t, n
}

// Cell returns the index of the cell containing (x, y), clamped to the grid.
func (g *HeatGrid) Cell(x, y float64) (int, int) {
	i := int(math.Floor(x / g.dx()))
	j := int(math.Floor(y / g.dy()))
	return min(max(i, 0), g.NX-1), min(max(j, 0), g.NY-1)
}

// Gradient is the centred temperature gradient at the cell holding (x, y).
func (g *HeatGrid) Gradient(t []float64, x, y float64) (float64, float64) {
	i, j := g.Cell(x, y)
	at := func(i, j int) float64 {
		return t[min(max(j, 0), g.NY-1)*g.NX+min(max(i, 0), g.NX-1)]
	}
	gx := (at(i+1, j) - at(i-1, j)) / (2 * g.dx())
	gy := (at(i, j+1) - at(i, j-1)) / (2 * g.dy())
	return gx, gy
}
