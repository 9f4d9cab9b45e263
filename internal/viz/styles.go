package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Title   lipgloss.Style
	Canvas  lipgloss.Style
	Panel   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Chart   lipgloss.Style
	Help    lipgloss.Style
	Running lipgloss.Style
	Stopped lipgloss.Style
	Halted  lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Canvas: lipgloss.NewStyle().Foreground(t.Text).Padding(1, 2),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(46),
		Label:   lipgloss.NewStyle().Foreground(t.Muted).Width(22),
		Value:   lipgloss.NewStyle().Foreground(t.Text),
		Chart:   lipgloss.NewStyle().Foreground(t.Accent).Padding(1, 0),
		Help:    lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		Running: lipgloss.NewStyle().Bold(true).Foreground(t.Running),
		Stopped: lipgloss.NewStyle().Bold(true).Foreground(t.Stopped),
		Halted:  lipgloss.NewStyle().Bold(true).Foreground(t.Halted),
	}
}

// GradientText colours each rune of text along a line between two hex
// colours.
func GradientText(text string, from, to lipgloss.Color) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	sr, sg, sb := parseHex(string(from))
	er, eg, eb := parseHex(string(to))

	var b strings.Builder
	for i, c := range runes {
		t := 0.0
		if len(runes) > 1 {
			t = float64(i) / float64(len(runes)-1)
		}
		col := fmt.Sprintf("#%02x%02x%02x",
			lerp(sr, er, t), lerp(sg, eg, t), lerp(sb, eb, t))
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(col)).Render(string(c)))
	}
	return b.String()
}

var sparks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders the last width values as block characters.
func Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(sparks)-1))
		b.WriteRune(sparks[min(max(idx, 0), len(sparks)-1)])
	}
	return b.String()
}

func parseHex(hex string) (r, g, b int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 255, 255, 255
	}
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return 255, 255, 255
	}
	return r, g, b
}

func lerp(a, b int, t float64) int {
	return min(max(int(float64(a)+t*float64(b-a)), 0), 255)
}
