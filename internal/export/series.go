package export

import (
	"fmt"
	"slices"
	"strings"
)

// Label names one exported column.
type Label struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// Key is the column header used in action logs and CSV files.
func (l Label) Key() string {
	if l.Unit == "" {
		return l.Name
	}
	return fmt.Sprintf("%s (%s)", l.Name, l.Unit)
}

// Series is the per-tick time series of a run. The first column is always
// model time.
type Series struct {
	Labels []Label     `json:"labels"`
	Points [][]float64 `json:"points"`
}

func (s Series) Len() int { return len(s.Points) }

// Column returns a copy of column i, or nil when out of range.
func (s Series) Column(i int) []float64 {
	if i < 0 || i >= len(s.Labels) {
		return nil
	}
	out := make([]float64, len(s.Points))
	for k, p := range s.Points {
		if i < len(p) {
			out[k] = p[i]
		}
	}
	return out
}

// Index finds a column by label name.
func (s Series) Index(name string) int {
	return slices.IndexFunc(s.Labels, func(l Label) bool { return l.Name == name })
}

// Times is shorthand for Column(0).
func (s Series) Times() []float64 { return s.Column(0) }

func (s Series) Clone() Series {
	out := Series{Labels: slices.Clone(s.Labels), Points: make([][]float64, len(s.Points))}
	for i, p := range s.Points {
		out.Points[i] = slices.Clone(p)
	}
	return out
}

// ParseLabel is the inverse of Label.Key.
func ParseLabel(key string) Label {
	if !strings.HasSuffix(key, ")") {
		return Label{Name: key}
	}
	i := strings.LastIndex(key, " (")
	if i < 0 {
		return Label{Name: key}
	}
	return Label{Name: key[:i], Unit: key[i+2 : len(key)-1]}
}
