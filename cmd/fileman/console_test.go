package main

import (
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/require"

	"github.com/studio1767/fileman/internal/ops"
	"github.com/studio1767/fileman/internal/progress"
	"github.com/studio1767/fileman/internal/worker"
)

func TestReport(t *testing.T) {
	pterm.DisableOutput()
	defer pterm.EnableOutput()

	ok := worker.Outcome{Kind: worker.KindCopy, Totals: ops.Totals{Items: 2, Bytes: 150}}
	require.NoError(t, report(ok))

	moved := worker.Outcome{
		Kind:   worker.KindMove,
		Totals: ops.Totals{Items: 2, Bytes: 150},
		Result: ops.TransferResult{FailedItems: 1, DeleteFailuresAfterCut: 0},
	}
	err := report(moved)
	var failed *errFailures
	require.ErrorAs(t, err, &failed)
	require.Equal(t, 1, failed.count)

	deleted := worker.Outcome{Kind: worker.KindDelete, Totals: ops.Totals{Items: 4}, DeleteFailures: 3}
	require.ErrorAs(t, report(deleted), &failed)
	require.Equal(t, 3, failed.count)
}

func TestQuietConsoleIgnoresSnapshots(t *testing.T) {
	out := newConsole(true)
	defer out.Close()

	out.loop.Dispatch(func() {
		out.Sink(progress.Snapshot{Label: progress.LabelCopying})
		out.Sink(progress.Snapshot{Label: progress.LabelCopying, TotalItems: 2, CopiedItems: 1})
	})
	out.Reset()
	require.Nil(t, out.bar)
	require.Nil(t, out.spinner)
}
