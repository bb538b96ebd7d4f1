// Package debounce coalesces bursts of calls into a single trailing call.
package debounce

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// Option configures a Debouncer.
type Option func(*options)

type options struct {
	clock      clock.Clock
	onError    func(error)
	onCoalesce func()
}

// WithClock replaces the wall clock, typically with clock.NewMock() in tests.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithErrorHandler receives errors returned by timer-driven calls.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// WithCoalesceHook is called each time a pending payload is superseded.
func WithCoalesceHook(fn func()) Option {
	return func(o *options) { o.onCoalesce = fn }
}

// Debouncer holds at most one pending payload. Each Trigger replaces the
// payload and restarts the quiet period; when the period elapses the latest
// payload is handed to fn. Calls to fn never overlap.
type Debouncer[T any] struct {
	wait time.Duration
	fn   func(T) error
	opts options

	mu         sync.Mutex
	timer      *clock.Timer
	pending    T
	hasPending bool
	seq        uint64
	closed     bool

	runMu   sync.Mutex
	lastRun uint64
}

// New creates a Debouncer that calls fn after wait of inactivity.
func New[T any](wait time.Duration, fn func(T) error, opts ...Option) *Debouncer[T] {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Debouncer[T]{wait: wait, fn: fn, opts: o}
}

// Trigger schedules v, discarding any payload still waiting.
// It returns false once the debouncer is closed.
func (d *Debouncer[T]) Trigger(v T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	d.stopLocked()
	if d.hasPending && d.opts.onCoalesce != nil {
		d.opts.onCoalesce()
	}

	d.pending = v
	d.hasPending = true
	d.seq++
	seq := d.seq
	d.timer = d.opts.clock.AfterFunc(d.wait, func() { d.fire(seq) })
	return true
}

// Flush runs the pending payload immediately. ran is false when nothing was
// pending or when a newer payload ran first.
func (d *Debouncer[T]) Flush() (ran bool, err error) {
	d.mu.Lock()
	if !d.hasPending {
		d.mu.Unlock()
		return false, nil
	}
	v, seq := d.takeLocked()
	d.mu.Unlock()

	return d.run(seq, v)
}

// Cancel drops the pending payload. It reports whether one was dropped.
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	had := d.hasPending
	if had {
		d.takeLocked()
	}
	return had
}

// Pending reports whether a payload is waiting for its quiet period.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasPending
}

// Close cancels any pending payload and rejects further triggers.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasPending {
		d.takeLocked()
	}
	d.closed = true
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if !d.hasPending || seq != d.seq {
		d.mu.Unlock()
		return
	}
	v, seq := d.takeLocked()
	d.mu.Unlock()

	if _, err := d.run(seq, v); err != nil && d.opts.onError != nil {
		d.opts.onError(err)
	}
}

// run executes fn unless a newer payload has already been executed.
func (d *Debouncer[T]) run(seq uint64, v T) (bool, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	if seq <= d.lastRun {
		return false, nil
	}
	d.lastRun = seq
	return true, d.fn(v)
}

func (d *Debouncer[T]) takeLocked() (T, uint64) {
	d.stopLocked()
	v := d.pending
	var zero T
	d.pending = zero
	d.hasPending = false
	return v, d.seq
}

func (d *Debouncer[T]) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
