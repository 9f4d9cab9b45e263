package metrics

import "math"

// Stability scores a run by the share of exported points whose values are
// finite and bounded by limit. The time column is not checked.
type Stability struct {
	limit     float64
	seen, bad int
	firstBad  float64
}

func NewStability(limit float64) *Stability {
	return &Stability{limit: limit, firstBad: math.NaN()}
}

func (*Stability) Name() string { return "stability" }

func (s *Stability) Observe(p []float64) {
	s.seen++
	if len(p) < 2 {
		return
	}
	for _, v := range p[1:] {
		if !(math.Abs(v) <= s.limit) {
			if s.bad == 0 {
				s.firstBad = p[0]
			}
			s.bad++
			return
		}
	}
}

func (s *Stability) Value() float64 {
	if s.seen == 0 {
		return 1
	}
	return float64(s.seen-s.bad) / float64(s.seen)
}

// FirstViolation is the time of the first rejected point, or NaN.
func (s *Stability) FirstViolation() float64 { return s.firstBad }

func (s *Stability) Reset() {
	s.seen, s.bad = 0, 0
	s.firstBad = math.NaN()
}
