package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studio1767/fileman/internal/fsnode"
	"github.com/studio1767/fileman/internal/ops"
)

func deleteAll(t *testing.T, targets []fsnode.Node) (int, *recorder) {
	t.Helper()
	rec := newRecorder(ops.ScanDeleteTotals(targets))
	failed := ops.NewExecutor().Delete(targets, rec.progress, rec.tick)
	return failed, rec
}

func TestDeleteTreeChildrenFirst(t *testing.T) {
	fs := sampleTree()

	failed, rec := deleteAll(t, []fsnode.Node{fs.Node("root")})

	require.Equal(t, 0, failed)
	require.Equal(t, []string{"root/a.txt", "root/sub/b.txt", "root/sub", "root"}, fs.Deletes())
	require.False(t, fs.Exists("root"))

	require.Equal(t, 4, rec.progress.TotalItems)
	require.True(t, rec.progress.Complete())
	require.Equal(t, int64(150), rec.progress.CopiedBytes)
	require.Equal(t, "root", rec.progress.CurrentName)
	rec.requireMonotonic(t)

	names := make([]string, 0, len(rec.seen))
	for _, p := range rec.seen {
		names = append(names, p.CurrentName)
	}
	require.Equal(t, []string{"a.txt", "b.txt", "sub", "root"}, names)
}

func TestDeleteContinuesPastFailures(t *testing.T) {
	fs := sampleTree()
	fs.AddFile("other.txt", []byte("o"), "")
	fs.FailDelete("root/sub/b.txt")

	failed, rec := deleteAll(t, []fsnode.Node{fs.Node("root"), fs.Node("other.txt")})

	// b.txt, then sub and root which still have children
	require.Equal(t, 3, failed)
	require.False(t, fs.Exists("root/a.txt"))
	require.True(t, fs.Exists("root/sub/b.txt"))
	require.False(t, fs.Exists("other.txt"))

	require.Equal(t, 5, rec.progress.CopiedItems)
	require.True(t, rec.progress.Complete())
	require.Equal(t, int64(151), rec.progress.CopiedBytes)
}

func TestDeleteSkipsMissingTargets(t *testing.T) {
	fs := sampleTree()

	failed, rec := deleteAll(t, []fsnode.Node{fs.Node("nope"), fs.Node("root/a.txt"), nil})

	require.Equal(t, 0, failed)
	require.Equal(t, []string{"root/a.txt"}, fs.Deletes())
	require.Len(t, rec.seen, 1)
	require.True(t, rec.progress.Complete())
}

func TestDeleteNothing(t *testing.T) {
	failed, rec := deleteAll(t, nil)

	require.Equal(t, 0, failed)
	require.Empty(t, rec.seen)
}
