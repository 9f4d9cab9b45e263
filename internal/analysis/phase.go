package analysis

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/labsim/internal/export"
)

// PhasePortrait2D holds one exported column plotted against another.
type PhasePortrait2D struct {
	XLabel, YLabel export.Label
	X, Y           []float64
}

// PhasePortrait pairs columns xCol and yCol of s.
func PhasePortrait(s export.Series, xCol, yCol int) (*PhasePortrait2D, error) {
	if xCol < 0 || yCol < 0 || xCol >= len(s.Labels) || yCol >= len(s.Labels) {
		return nil, fmt.Errorf("analysis: columns %d, %d out of range", xCol, yCol)
	}
	return &PhasePortrait2D{
		XLabel: s.Labels[xCol], YLabel: s.Labels[yCol],
		X: s.Column(xCol), Y: s.Column(yCol),
	}, nil
}

// density glyphs by visit count: once, a few times, often.
var density = []rune{'·', '•', '●'}

// PhasePortraitToASCII plots the portrait on a width x height character
// grid. Cells visited repeatedly are drawn heavier, and a footer gives the
// range of each axis.
func PhasePortraitToASCII(p *PhasePortrait2D, width, height int) string {
	if p == nil || len(p.X) == 0 || width <= 1 || height <= 1 {
		return ""
	}
	minX, maxX := floats.Min(p.X), floats.Max(p.X)
	minY, maxY := floats.Min(p.Y), floats.Max(p.Y)
	spanX, spanY := maxX-minX, maxY-minY
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}

	hits := make([][]int, height)
	for r := range hits {
		hits[r] = make([]int, width)
	}
	for i := range p.X {
		col := int(math.Round((p.X[i] - minX) / spanX * float64(width-1)))
		row := height - 1 - int(math.Round((p.Y[i]-minY)/spanY*float64(height-1)))
		hits[row][col]++
	}

	var sb strings.Builder
	for _, row := range hits {
		sb.WriteRune('│')
		for _, n := range row {
			switch {
			case n == 0:
				sb.WriteRune(' ')
			case n == 1:
				sb.WriteRune(density[0])
			case n < 4:
				sb.WriteRune(density[1])
			default:
				sb.WriteRune(density[2])
			}
		}
		sb.WriteRune('\n')
	}
	sb.WriteString("└" + strings.Repeat("─", width) + "\n")
	fmt.Fprintf(&sb, "x: %s [%.4g, %.4g]\n", p.XLabel.Key(), minX, maxX)
	fmt.Fprintf(&sb, "y: %s [%.4g, %.4g]\n", p.YLabel.Key(), minY, maxY)
	return sb.String()
}
