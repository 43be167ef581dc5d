package worker

import (
	"time"

	"github.com/studio1767/fileman/internal/ops"
	"github.com/studio1767/fileman/internal/progress"
)

// Outcome is what an operation did. For deletions the failures are in
// DeleteFailures and Result is zero.
type Outcome struct {
	ID             string
	Kind           Kind
	Label          string
	Totals         ops.Totals
	Result         ops.TransferResult
	DeleteFailures int
	Final          progress.Snapshot
	Elapsed        time.Duration
}

// Failures is every failure of the operation, whatever the phase.
func (o Outcome) Failures() int {
	return o.Result.Failed() + o.DeleteFailures
}

// addFailure counts a failure that no single item accounts for.
func (o *Outcome) addFailure() {
	if o.Kind == KindDelete {
		o.DeleteFailures++
		return
	}
	o.Result.FailedItems++
}

func (o Outcome) Succeeded() bool {
	return o.Failures() == 0
}

// Handle tracks one running operation.
type Handle struct {
	id      string
	done    chan struct{}
	outcome Outcome
}

func (h *Handle) ID() string {
	return h.id
}

// Done is closed once the outcome is available.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the operation has finished and its hooks have run.
func (h *Handle) Wait() Outcome {
	<-h.done
	return h.outcome
}
