package sim

import (
	"sync"

	"github.com/san-kum/labsim/internal/dynamo"
)

// statePool hands out zeroed pack buffers for one atom count. The md2d
// engine replaces it whenever the atoms table changes length.
type statePool struct {
	dim  int
	bufs sync.Pool
}

func newStatePool(dim int) *statePool {
	p := &statePool{dim: dim}
	p.bufs.New = func() any {
		s := make(dynamo.State, dim)
		return &s
	}
	return p
}

func (p *statePool) get() *dynamo.State { return p.bufs.Get().(*dynamo.State) }

// put drops buffers of the wrong size.
func (p *statePool) put(s *dynamo.State) {
	if len(*s) != p.dim {
		return
	}
	clear(*s)
	p.bufs.Put(s)
}
