package worker

import "fmt"

type ErrBusy struct{}

func (e *ErrBusy) Error() string {
	return "another operation is in progress"
}

// ErrDestinationInsideSource is returned for a copy or move whose
// destination is one of its sources or lies below one.
type ErrDestinationInsideSource struct {
	name string
}

func (e *ErrDestinationInsideSource) Error() string {
	return fmt.Sprintf("cannot copy %q into itself", e.name)
}
