package sketchpad

// PendingWrite holds the latest value written during a frame until it is
// flushed. Writes overwrite each other, so a burst of pointer events costs
// one scene mutation per frame.
type PendingWrite[T any] struct {
	value T
	set   bool
	apply func(T)
}

// NewPendingWrite returns a buffer that calls apply on flush.
func NewPendingWrite[T any](apply func(T)) *PendingWrite[T] {
	return &PendingWrite[T]{apply: apply}
}

// Put replaces the pending value.
func (p *PendingWrite[T]) Put(v T) {
	p.value = v
	p.set = true
}

// Pending reports whether a value is waiting to be flushed.
func (p *PendingWrite[T]) Pending() bool {
	return p.set
}

// Flush applies the pending value, if any. Reports whether it applied one.
func (p *PendingWrite[T]) Flush() bool {
	if !p.set {
		return false
	}
	v := p.value
	var zero T
	p.value = zero
	p.set = false
	p.apply(v)
	return true
}

// Discard drops the pending value without applying it.
func (p *PendingWrite[T]) Discard() {
	var zero T
	p.value = zero
	p.set = false
}
