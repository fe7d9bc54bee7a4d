package workspace

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer a Debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func()) Timer

// RealAfterFunc schedules on the wall clock.
func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer buffers the latest value and commits it once no Set has
// happened for the idle period, or at once on Flush.
type Debouncer[T any] struct {
	mu        sync.Mutex
	delay     time.Duration
	afterFunc AfterFunc
	commit    func(T)

	timer   Timer
	pending bool
	value   T
	seq     uint64
}

// NewDebouncer creates a debouncer. A nil afterFunc uses the wall clock.
func NewDebouncer[T any](delay time.Duration, afterFunc AfterFunc, commit func(T)) *Debouncer[T] {
	if afterFunc == nil {
		afterFunc = RealAfterFunc
	}
	return &Debouncer[T]{delay: delay, afterFunc: afterFunc, commit: commit}
}

// Set buffers v and restarts the idle timer.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.value = v
	d.pending = true
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
	}
	seq := d.seq
	d.timer = d.afterFunc(d.delay, func() { d.fire(seq) })
}

// Flush commits the buffered value now, if any. It reports whether a
// commit happened.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	v, ok := d.take()
	d.mu.Unlock()

	if ok {
		d.commit(v)
	}
	return ok
}

// Stop drops the buffered value without committing.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.take()
}

// Pending reports whether a value is buffered.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || !d.pending {
		d.mu.Unlock()
		return
	}
	v, _ := d.take()
	d.mu.Unlock()

	d.commit(v)
}

// take clears the buffer and timer. Caller holds mu.
func (d *Debouncer[T]) take() (T, bool) {
	var zero T
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if !d.pending {
		return zero, false
	}
	v := d.value
	d.value = zero
	d.pending = false
	d.seq++
	return v, true
}
