package sim

import (
	"maps"

	"github.com/san-kum/labsim/internal/table"
)

// snapshot is a deep copy of model state at a step boundary. Only the
// history ring and the initial state hold snapshots.
type snapshot struct {
	version uint64
	time    float64
	steps   int
	params  map[string]any
	caps    map[string]bool
	tables  map[string]*table.Table
	engine  engineState
}

func (s *snapshot) Clone() *snapshot {
	c := &snapshot{
		version: s.version,
		time:    s.time,
		steps:   s.steps,
		params:  maps.Clone(s.params),
		caps:    maps.Clone(s.caps),
		tables:  make(map[string]*table.Table, len(s.tables)),
	}
	for name, t := range s.tables {
		c.tables[name] = t.Clone()
	}
	if s.engine != nil {
		c.engine = s.engine.clone()
	}
	return c
}
