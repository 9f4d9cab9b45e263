package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the colour scheme of the stepper.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Running lipgloss.Color
	Stopped lipgloss.Color
	Halted  lipgloss.Color
}

var Themes = []Theme{
	{
		Name:    "lab",
		Primary: lipgloss.Color("#00ffff"),
		Accent:  lipgloss.Color("#ff00ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666688"),
		Running: lipgloss.Color("#00ff88"),
		Stopped: lipgloss.Color("#ffaa00"),
		Halted:  lipgloss.Color("#ff4444"),
	},
	{
		Name:    "phosphor",
		Primary: lipgloss.Color("#00ff00"),
		Accent:  lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		Running: lipgloss.Color("#88ff88"),
		Stopped: lipgloss.Color("#ffff00"),
		Halted:  lipgloss.Color("#ff0000"),
	},
	{
		Name:    "paper",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Running: lipgloss.Color("#00ff00"),
		Stopped: lipgloss.Color("#ffaa00"),
		Halted:  lipgloss.Color("#ff0000"),
	},
	{
		Name:    "ember",
		Primary: lipgloss.Color("#ff6b6b"),
		Accent:  lipgloss.Color("#feca57"),
		Text:    lipgloss.Color("#fff5f5"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Running: lipgloss.Color("#5fd068"),
		Stopped: lipgloss.Color("#ffc048"),
		Halted:  lipgloss.Color("#ff4757"),
	},
}

// GetTheme returns the theme called name, or the first theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme returns the theme after name, wrapping around.
func NextTheme(name string) Theme {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
