package export

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// SeriesSVG draws column col of s against time as an SVG polyline.
func SeriesSVG(s Series, col, width, height int, strokeColor string) (string, error) {
	if col <= 0 || col >= len(s.Labels) {
		return "", fmt.Errorf("svg: column %d out of range", col)
	}
	if s.Len() < 2 {
		return "", fmt.Errorf("svg: need at least 2 points, have %d", s.Len())
	}
	xs, ys := s.Times(), s.Column(col)

	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<text x="8" y="16" fill="#888888" font-family="monospace" font-size="12">%s</text>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, escape(s.Labels[col].Key()), strokeColor)

	for i := range xs {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String(), nil
}

// FieldSVG renders a row-major nx×ny temperature grid as a heat map, with
// row 0 at the bottom.
func FieldSVG(field []float64, nx, ny int, cell float64) (string, error) {
	if nx <= 0 || ny <= 0 || len(field) != nx*ny {
		return "", fmt.Errorf("svg: field has %d cells, want %d×%d", len(field), nx, ny)
	}
	lo, hi := floats.Min(field), floats.Max(field)
	span := hi - lo
	if span == 0 {
		span = 1
	}

	w, h := float64(nx)*cell, float64(ny)*cell
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
`, w, h, w, h)

	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v := (field[j*nx+i] - lo) / span
			y := float64(ny-1-j) * cell
			fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
`, float64(i)*cell, y, cell, cell, heat(v))
		}
	}
	sb.WriteString("</svg>")
	return sb.String(), nil
}

// heat maps v in [0, 1] from blue through to red.
func heat(v float64) string {
	v = math.Max(0, math.Min(1, v))
	r := int(255 * v)
	b := int(255 * (1 - v))
	g := int(255 * (1 - math.Abs(2*v-1)) * 0.6)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
