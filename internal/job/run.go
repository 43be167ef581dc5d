package job

import (
	"gitlab.com/tozd/go/errors"

	"github.com/studio1767/fileman/internal/fsnode"
	"github.com/studio1767/fileman/internal/worker"
)

// Run executes the steps in order, waiting for each to finish before the
// next starts. Failed items don't stop the job; a step whose paths can't
// be resolved, or that the runner refuses, does.
func Run(runner *worker.Runner, root fsnode.Node, job *Job) ([]worker.Outcome, error) {
	outcomes := make([]worker.Outcome, 0, len(job.Steps))

	for i, step := range job.Steps {
		sources, err := fsnode.ResolveAll(root, step.Sources)
		if err != nil {
			return outcomes, errors.Errorf("step %d: %w", i+1, err)
		}

		var handle *worker.Handle
		switch step.Mode {
		case ModeDelete:
			handle, err = runner.Delete(sources)
		default:
			var dest fsnode.Node
			dest, err = fsnode.Resolve(root, step.Destination)
			if err != nil {
				return outcomes, errors.Errorf("step %d: %w", i+1, err)
			}
			if !dest.IsDirectory() {
				return outcomes, errors.Errorf("step %d: %w", i+1, fsnode.NewErrNotDirectory(step.Destination))
			}
			handle, err = runner.Transfer(sources, dest, step.Mode == ModeMove)
		}
		if err != nil {
			return outcomes, errors.Errorf("step %d: %w", i+1, err)
		}

		outcomes = append(outcomes, handle.Wait())
	}

	return outcomes, nil
}
