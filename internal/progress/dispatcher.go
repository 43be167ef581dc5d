package progress

import (
	"context"
	"sync"
)

// Dispatcher runs functions on the context that owns the sink. Functions
// run in the order they were dispatched.
type Dispatcher interface {
	Dispatch(fn func())
}

// Inline runs every function immediately on the calling goroutine.
type Inline struct{}

func (Inline) Dispatch(fn func()) {
	fn()
}

// Loop runs dispatched functions one at a time on its own goroutine, for
// sinks that must never be called from the worker.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop starts a loop that stops when ctx is done or Close is called.
// Functions dispatched after that are dropped.
func NewLoop(ctx context.Context, backlog int) *Loop {
	if backlog < 1 {
		backlog = 1
	}
	l := &Loop{
		queue: make(chan func(), backlog),
		done:  make(chan struct{}),
	}
	go l.run(ctx)
	return l
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn, ok := <-l.queue:
			if !ok {
				return
			}
			fn()
		}
	}
}

func (l *Loop) Dispatch(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}

	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Close runs whatever is already queued and waits for the loop to stop.
// Nothing may be dispatched once Close has been called.
func (l *Loop) Close() {
	l.once.Do(func() {
		close(l.queue)
	})
	<-l.done
}
