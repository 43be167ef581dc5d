package progress

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/studio1767/fileman/internal/ops"
)

// DefaultInterval is the minimum spacing between forwarded snapshots.
const DefaultInterval = 100 * time.Millisecond

// Sink receives forwarded snapshots.
type Sink func(Snapshot)

// Reporter decides which ticks reach the sink. A tick is forwarded when
// the interval has passed since the last forwarded one, or when it is the
// one that completes the operation.
type Reporter struct {
	label    string
	progress *ops.Progress
	sink     Sink
	dispatch Dispatcher
	limiter  *rate.Limiter
	now      func() time.Time

	forwarded int
	dropped   int
	pending   bool
}

type Option func(*Reporter)

func WithInterval(interval time.Duration) Option {
	return func(r *Reporter) {
		if interval > 0 {
			r.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// WithDispatcher sets how snapshots get to the sink. The default calls
// the sink on the ticking goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(r *Reporter) {
		if d != nil {
			r.dispatch = d
		}
	}
}

func NewReporter(label string, progress *ops.Progress, sink Sink, opts ...Option) *Reporter {
	if sink == nil {
		sink = func(Snapshot) {}
	}
	r := &Reporter{
		label:    label,
		progress: progress,
		sink:     sink,
		dispatch: Inline{},
		limiter:  rate.NewLimiter(rate.Every(DefaultInterval), 1),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot copies the current progress.
func (r *Reporter) Snapshot() Snapshot {
	return Take(r.label, r.progress)
}

// Tick is handed to the executors as their ops.Tick.
func (r *Reporter) Tick() {
	allowed := r.limiter.AllowN(r.now(), 1)
	if !allowed && !r.progress.Complete() {
		r.dropped++
		r.pending = true
		return
	}
	r.forward()
}

// Publish forwards the current progress whatever the throttle says,
// without using up the throttle's allowance.
func (r *Reporter) Publish() {
	r.forward()
}

// Flush forwards the current progress if the last tick was dropped, so the
// sink always ends up with the final state.
func (r *Reporter) Flush() {
	if r.pending {
		r.forward()
	}
}

func (r *Reporter) forward() {
	snapshot := r.Snapshot()
	sink := r.sink
	r.forwarded++
	r.pending = false
	r.dispatch.Dispatch(func() {
		sink(snapshot)
	})
}

// Forwarded is the number of snapshots sent to the sink.
func (r *Reporter) Forwarded() int {
	return r.forwarded
}

// Dropped is the number of ticks the throttle suppressed.
func (r *Reporter) Dropped() int {
	return r.dropped
}
