// Package progress turns the executors' per chunk ticks into a bounded
// stream of snapshots for whatever is showing them to the user.
package progress

import (
	"math"

	"github.com/studio1767/fileman/internal/ops"
)

// Operation labels.
const (
	LabelCopying  = "Copying"
	LabelMoving   = "Moving"
	LabelDeleting = "Deleting"
)

// Snapshot is an immutable copy of an operation's progress.
type Snapshot struct {
	CopiedItems   int
	TotalItems    int
	CopiedBytes   int64
	TotalBytes    int64
	CurrentName   string
	Label         string
	Indeterminate bool
}

// Take copies p. The snapshot is indeterminate until the totals are known.
func Take(label string, p *ops.Progress) Snapshot {
	return Snapshot{
		CopiedItems:   p.CopiedItems,
		TotalItems:    p.TotalItems,
		CopiedBytes:   p.CopiedBytes,
		TotalBytes:    p.TotalBytes,
		CurrentName:   p.CurrentName,
		Label:         label,
		Indeterminate: p.TotalItems <= 0,
	}
}

// Percent is the completion percentage, by bytes when there are any and by
// items otherwise. It reports false when there is nothing to measure.
func (s Snapshot) Percent() (int, bool) {
	if s.Indeterminate {
		return 0, false
	}

	var copied, total float64
	switch {
	case s.TotalBytes > 0:
		copied, total = float64(s.CopiedBytes), float64(s.TotalBytes)
	case s.TotalItems > 0:
		copied, total = float64(s.CopiedItems), float64(s.TotalItems)
	default:
		return 0, false
	}

	percent := int(math.Round(copied * 100 / total))
	if percent < 0 {
		return 0, true
	}
	if percent > 100 {
		return 100, true
	}
	return percent, true
}
