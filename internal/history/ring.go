// Package history provides a bounded stack of snapshots used for stepping
// a model backwards.
package history

// Cloner is implemented by snapshot types that can deep-copy themselves.
type Cloner[T any] interface {
	Clone() T
}

// Ring keeps the newest Cap entries. Pushing at capacity evicts the oldest.
type Ring[T Cloner[T]] struct {
	buf   []T
	start int
	size  int
}

func NewRing[T Cloner[T]](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

func (r *Ring[T]) Len() int { return r.size }
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Push stores a deep copy of v.
func (r *Ring[T]) Push(v T) {
	c := v.Clone()
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = c
		r.size++
		return
	}
	r.buf[r.start] = c
	r.start = (r.start + 1) % len(r.buf)
}

// Pop removes and returns the newest entry. ok is false when empty.
func (r *Ring[T]) Pop() (v T, ok bool) {
	if r.size == 0 {
		return v, false
	}
	i := (r.start + r.size - 1) % len(r.buf)
	v = r.buf[i]
	var zero T
	r.buf[i] = zero
	r.size--
	return v, true
}

func (r *Ring[T]) Peek() (v T, ok bool) {
	if r.size == 0 {
		return v, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

// Reset empties the ring and pushes seed entries in order.
func (r *Ring[T]) Reset(seed ...T) {
	clear(r.buf)
	r.start, r.size = 0, 0
	for _, s := range seed {
		r.Push(s)
	}
}
