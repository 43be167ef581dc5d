package progress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studio1767/fileman/internal/ops"
	"github.com/studio1767/fileman/internal/progress"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name    string
		snap    progress.Snapshot
		percent int
		ok      bool
	}{
		{"indeterminate", progress.Snapshot{Indeterminate: true, TotalBytes: 10}, 0, false},
		{"bytes", progress.Snapshot{CopiedBytes: 50, TotalBytes: 200, CopiedItems: 3, TotalItems: 4}, 25, true},
		{"rounds", progress.Snapshot{CopiedBytes: 2, TotalBytes: 3, TotalItems: 1}, 67, true},
		{"items when no bytes", progress.Snapshot{CopiedItems: 1, TotalItems: 4}, 25, true},
		{"clamped", progress.Snapshot{CopiedBytes: 300, TotalBytes: 200, TotalItems: 1}, 100, true},
		{"nothing to measure", progress.Snapshot{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			percent, ok := tt.snap.Percent()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.percent, percent)
		})
	}
}

func TestTake(t *testing.T) {
	p := ops.NewProgress(ops.Totals{Items: 2, Bytes: 10})
	p.CopiedItems = 1
	p.CopiedBytes = 4
	p.CurrentName = "a"

	s := progress.Take(progress.LabelMoving, p)
	assert.Equal(t, progress.Snapshot{
		CopiedItems: 1,
		TotalItems:  2,
		CopiedBytes: 4,
		TotalBytes:  10,
		CurrentName: "a",
		Label:       progress.LabelMoving,
	}, s)

	p.CopiedItems = 2
	assert.Equal(t, 1, s.CopiedItems)

	assert.True(t, progress.Take("", ops.NewProgress(ops.Totals{})).Indeterminate)
}
