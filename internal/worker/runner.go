// Package worker runs bulk operations in the background, one at a time.
//
// Every operation goes through the same phases on its own goroutine: an
// indeterminate snapshot is published, the totals are scanned, the totals
// are published, the executor walks the tree while the reporter throttles
// its ticks, and finally the outcome is reported. While that is happening
// any new request is refused with ErrBusy.
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studio1767/fileman/internal/fsnode"
	"github.com/studio1767/fileman/internal/logging"
	"github.com/studio1767/fileman/internal/metrics"
	"github.com/studio1767/fileman/internal/ops"
	"github.com/studio1767/fileman/internal/progress"
)

type Kind string

const (
	KindCopy   Kind = "copy"
	KindMove   Kind = "move"
	KindDelete Kind = "delete"
)

// Label is the text shown alongside the operation's progress.
func (k Kind) Label() string {
	switch k {
	case KindMove:
		return progress.LabelMoving
	case KindDelete:
		return progress.LabelDeleting
	default:
		return progress.LabelCopying
	}
}

// Hook is called with the outcome of one operation, on the worker
// goroutine, before Wait returns. The runner is still busy while hooks run.
type Hook func(Outcome)

// Config configures a Runner. The zero value works: snapshots go nowhere
// and the defaults from ops and progress apply.
type Config struct {
	ChunkSize  int
	Interval   time.Duration
	Sink       progress.Sink
	Dispatcher progress.Dispatcher

	// OnComplete receives every outcome, through the Dispatcher.
	OnComplete func(Outcome)

	Logger *zap.Logger
	Clock  func() time.Time
}

type Runner struct {
	cfg  Config
	busy atomic.Bool
}

func NewRunner(cfg Config) *Runner {
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = progress.Inline{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.L()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Runner{cfg: cfg}
}

// Busy reports whether an operation is running.
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

// Transfer copies sources into destination, deleting them afterwards when
// move is set and every copy succeeded. Destination may not be one of the
// sources or lie below one.
func (r *Runner) Transfer(sources []fsnode.Node, destination fsnode.Node, move bool, hooks ...Hook) (*Handle, error) {
	for _, source := range sources {
		if fsnode.Contains(source, destination) {
			return nil, &ErrDestinationInsideSource{name: source.Name()}
		}
	}

	kind := KindCopy
	if move {
		kind = KindMove
	}

	sources = append([]fsnode.Node(nil), sources...)
	op := &operation{
		kind: kind,
		scan: func() ops.Totals {
			return ops.ScanTotals(sources)
		},
		walk: func(ex *ops.Executor, p *ops.Progress, tick ops.Tick) (ops.TransferResult, int) {
			return ex.Transfer(sources, destination, move, p, tick), 0
		},
	}
	return r.start(op, len(sources), hooks)
}

// Delete removes targets and everything below them.
func (r *Runner) Delete(targets []fsnode.Node, hooks ...Hook) (*Handle, error) {
	targets = append([]fsnode.Node(nil), targets...)
	op := &operation{
		kind: KindDelete,
		scan: func() ops.Totals {
			return ops.ScanDeleteTotals(targets)
		},
		walk: func(ex *ops.Executor, p *ops.Progress, tick ops.Tick) (ops.TransferResult, int) {
			return ops.TransferResult{}, ex.Delete(targets, p, tick)
		},
	}
	return r.start(op, len(targets), hooks)
}

type operation struct {
	kind Kind
	scan func() ops.Totals
	walk func(*ops.Executor, *ops.Progress, ops.Tick) (ops.TransferResult, int)
}

func (r *Runner) start(op *operation, roots int, hooks []Hook) (*Handle, error) {
	if !r.busy.CompareAndSwap(false, true) {
		metrics.RecordBusyRejection()
		return nil, &ErrBusy{}
	}

	handle := &Handle{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}

	log := r.cfg.Logger.With(
		zap.String("operation_id", handle.id),
		zap.String("kind", string(op.kind)),
	)
	log.Info("operation started", zap.Int("roots", roots))
	metrics.OperationStarted()

	go r.run(op, handle, log, hooks)

	return handle, nil
}

func (r *Runner) run(op *operation, handle *Handle, log *zap.Logger, hooks []Hook) {
	start := r.cfg.Clock()
	label := op.kind.Label()
	outcome := Outcome{ID: handle.id, Kind: op.kind, Label: label}

	// the gate stays closed until the hooks have run
	defer func() {
		if v := recover(); v != nil {
			log.Error("operation panicked", zap.Any("panic", v), zap.Stack("stack"))
			outcome.addFailure()
		}
		r.busy.Store(false)
		handle.outcome = outcome
		close(handle.done)
	}()

	p := ops.NewProgress(ops.Totals{})
	reporter := progress.NewReporter(label, p, r.cfg.Sink,
		progress.WithInterval(r.cfg.Interval),
		progress.WithClock(r.cfg.Clock),
		progress.WithDispatcher(r.cfg.Dispatcher),
	)
	reporter.Publish()

	var totals ops.Totals
	scanned := guard(log, "scan", func() {
		totals = op.scan()
	})
	p.TotalItems = totals.Items
	p.TotalBytes = totals.Bytes
	log.Debug("totals scanned",
		zap.Int("items", totals.Items),
		zap.Int64("bytes", totals.Bytes),
	)
	if totals.Items > 0 {
		reporter.Publish()
	}

	var result ops.TransferResult
	var deleteFailures int
	walked := false
	if scanned {
		executor := ops.NewExecutor(
			ops.WithChunkSize(r.cfg.ChunkSize),
			ops.WithLogger(log),
		)
		walked = guard(log, "walk", func() {
			result, deleteFailures = op.walk(executor, p, reporter.Tick)
		})
	}
	reporter.Flush()

	outcome.Totals = totals
	outcome.Result = result
	outcome.DeleteFailures = deleteFailures
	outcome.Final = reporter.Snapshot()
	outcome.Elapsed = r.cfg.Clock().Sub(start)
	if !walked {
		outcome.addFailure()
	}

	failed := outcome.Result.FailedItems + outcome.DeleteFailures
	metrics.RecordOperation(string(op.kind), p.CopiedItems, p.CopiedBytes,
		failed, result.DeleteFailuresAfterCut, outcome.Elapsed)
	metrics.RecordSnapshots(reporter.Forwarded(), reporter.Dropped())

	log.Info("operation finished",
		zap.Int("items", p.CopiedItems),
		zap.Int64("bytes", p.CopiedBytes),
		zap.Int("failed_items", failed),
		zap.Int("delete_failures_after_cut", result.DeleteFailuresAfterCut),
		zap.Duration("elapsed", outcome.Elapsed),
	)

	for _, hook := range hooks {
		guard(log, "hook", func() {
			hook(outcome)
		})
	}
	if r.cfg.OnComplete != nil {
		onComplete, final := r.cfg.OnComplete, outcome
		r.cfg.Dispatcher.Dispatch(func() {
			guard(log, "complete", func() {
				onComplete(final)
			})
		})
	}
}

// guard runs fn and reports false when it panicked. The panic is logged and
// goes no further.
func guard(log *zap.Logger, phase string, fn func()) (ok bool) {
	defer func() {
		if v := recover(); v != nil {
			log.Error("operation panicked",
				zap.String("phase", phase),
				zap.Any("panic", v),
				zap.Stack("stack"),
			)
			ok = false
		}
	}()
	fn()
	return true
}

// WaitContext waits for the handle or for ctx, whichever comes first.
func WaitContext(ctx context.Context, handle *Handle) (Outcome, error) {
	select {
	case <-handle.Done():
		return handle.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
