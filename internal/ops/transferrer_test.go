package ops_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio1767/fileman/internal/fsnode"
	"github.com/studio1767/fileman/internal/fsnode/memfs"
	"github.com/studio1767/fileman/internal/ops"
)

// recorder keeps a copy of the progress at every tick.
type recorder struct {
	progress *ops.Progress
	seen     []ops.Progress
}

func newRecorder(totals ops.Totals) *recorder {
	return &recorder{progress: ops.NewProgress(totals)}
}

func (r *recorder) tick() {
	r.seen = append(r.seen, *r.progress)
}

func (r *recorder) requireMonotonic(t *testing.T) {
	t.Helper()
	var last ops.Progress
	for _, p := range r.seen {
		require.GreaterOrEqual(t, p.CopiedItems, last.CopiedItems)
		require.GreaterOrEqual(t, p.CopiedBytes, last.CopiedBytes)
		require.LessOrEqual(t, p.CopiedItems, p.TotalItems)
		require.LessOrEqual(t, p.CopiedBytes, p.TotalBytes)
		last = p
	}
}

func transfer(t *testing.T, ex *ops.Executor, sources []fsnode.Node, dest fsnode.Node, move bool) (ops.TransferResult, *recorder) {
	t.Helper()
	rec := newRecorder(ops.ScanTotals(sources))
	result := ex.Transfer(sources, dest, move, rec.progress, rec.tick)
	return result, rec
}

func TestCopyTree(t *testing.T) {
	src := sampleTree()
	dst := memfs.New("dest")

	result, rec := transfer(t, ops.NewExecutor(), []fsnode.Node{src.Node("root")}, dst.Root(), false)

	require.Equal(t, ops.TransferResult{}, result)
	require.Equal(t, 2, rec.progress.TotalItems)
	require.Equal(t, int64(150), rec.progress.TotalBytes)
	require.True(t, rec.progress.Complete())
	require.Equal(t, int64(150), rec.progress.CopiedBytes)
	require.Equal(t, "b.txt", rec.progress.CurrentName)
	rec.requireMonotonic(t)

	data, ok := dst.ReadFile("root/a.txt")
	require.True(t, ok)
	require.Equal(t, bytes.Repeat([]byte("a"), 100), data)
	data, ok = dst.ReadFile("root/sub/b.txt")
	require.True(t, ok)
	require.Equal(t, bytes.Repeat([]byte("b"), 50), data)
	require.Equal(t, "text/plain", dst.Node("root/a.txt").MimeType())

	require.True(t, src.Exists("root/a.txt"))
	require.True(t, src.Exists("root/sub/b.txt"))
	require.Empty(t, src.Deletes())
}

func TestMoveTree(t *testing.T) {
	src := sampleTree()
	dst := memfs.New("dest")

	result, rec := transfer(t, ops.NewExecutor(), []fsnode.Node{src.Node("root")}, dst.Root(), true)

	require.Equal(t, ops.TransferResult{}, result)
	require.True(t, rec.progress.Complete())
	require.False(t, src.Exists("root"))
	require.True(t, dst.Exists("root/a.txt"))
	require.True(t, dst.Exists("root/sub/b.txt"))
}

func TestMoveGateKeepsSourcesOnAnyFailure(t *testing.T) {
	src := sampleTree()
	src.AddFile("c.txt", []byte("c"), "")
	src.FailOpen("root/sub/b.txt")
	dst := memfs.New("dest")

	sources := []fsnode.Node{src.Node("c.txt"), src.Node("root")}
	result, _ := transfer(t, ops.NewExecutor(), sources, dst.Root(), true)

	require.Equal(t, ops.TransferResult{FailedItems: 1}, result)
	require.Empty(t, src.Deletes())
	require.True(t, src.Exists("c.txt"))
	require.True(t, src.Exists("root/a.txt"))
	require.True(t, dst.Exists("c.txt"))
}

func TestMoveCountsDeleteFailuresSeparately(t *testing.T) {
	src := sampleTree()
	src.AddFile("c.txt", []byte("c"), "")
	src.FailDelete("c.txt")
	dst := memfs.New("dest")

	sources := []fsnode.Node{src.Node("c.txt"), src.Node("root")}
	result, _ := transfer(t, ops.NewExecutor(), sources, dst.Root(), true)

	require.Equal(t, ops.TransferResult{FailedItems: 0, DeleteFailuresAfterCut: 1}, result)
	require.Equal(t, 1, result.Failed())
	require.True(t, src.Exists("c.txt"))
	require.False(t, src.Exists("root"))

	// each top level source is attempted exactly once
	deletes := src.Deletes()
	assert.Equal(t, 1, count(deletes, "c.txt"))
	assert.Equal(t, 1, count(deletes, "root"))
}

func count(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}

func TestDirectoryCreateFailureSkipsSubtree(t *testing.T) {
	src := memfs.New("src")
	src.AddFile("root/first.txt", []byte("1"), "")
	for _, name := range []string{"a", "b", "c", "d"} {
		src.AddFile("root/big/"+name+".txt", []byte(name), "")
	}
	src.AddFile("root/big/deeper/e.txt", []byte("e"), "")
	src.AddFile("root/last.txt", []byte("2"), "")

	dst := memfs.New("dest")
	dst.FailCreate("root/big")

	result, rec := transfer(t, ops.NewExecutor(), []fsnode.Node{src.Node("root")}, dst.Root(), true)

	require.Equal(t, ops.TransferResult{FailedItems: 5}, result)
	require.False(t, dst.Exists("root/big"))
	require.True(t, dst.Exists("root/first.txt"))
	require.True(t, dst.Exists("root/last.txt"))
	require.Equal(t, 2, rec.progress.CopiedItems)
	require.Equal(t, 7, rec.progress.TotalItems)

	// none of the subtree's files were read
	for _, p := range rec.seen {
		require.NotContains(t, []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"}, p.CurrentName)
	}
	require.Empty(t, src.Deletes())
}

func TestEmptySources(t *testing.T) {
	dst := memfs.New("dest")

	result, rec := transfer(t, ops.NewExecutor(), nil, dst.Root(), true)

	require.Equal(t, ops.TransferResult{}, result)
	require.Equal(t, 0, rec.progress.TotalItems)
	require.Empty(t, rec.seen)
}

func TestChunkedProgress(t *testing.T) {
	src := memfs.New("src")
	src.AddFile("big.bin", bytes.Repeat([]byte{7}, 20000), "")
	dst := memfs.New("dest")

	ex := ops.NewExecutor(ops.WithChunkSize(8192))
	result, rec := transfer(t, ex, []fsnode.Node{src.Node("big.bin")}, dst.Root(), false)

	require.Equal(t, ops.TransferResult{}, result)
	require.Len(t, rec.seen, 4)
	require.Equal(t, int64(8192), rec.seen[0].CopiedBytes)
	require.Equal(t, int64(16384), rec.seen[1].CopiedBytes)
	require.Equal(t, int64(20000), rec.seen[2].CopiedBytes)
	require.Equal(t, 0, rec.seen[2].CopiedItems)
	require.Equal(t, 1, rec.seen[3].CopiedItems)
	for _, p := range rec.seen {
		require.Equal(t, "big.bin", p.CurrentName)
	}
	rec.requireMonotonic(t)

	require.Equal(t, fsnode.DefaultMimeType, dst.Node("big.bin").MimeType())
}

// A failed copy keeps the bytes it already credited. This overstates the
// bytes actually copied and is kept deliberately.
func TestFailedCopyKeepsCreditedBytes(t *testing.T) {
	src := memfs.New("src")
	src.AddFile("big.bin", bytes.Repeat([]byte{7}, 20000), "")
	src.AddFile("small.txt", []byte("ok"), "")
	src.FailReadAfter("big.bin", 16384)
	dst := memfs.New("dest")

	ex := ops.NewExecutor(ops.WithChunkSize(8192))
	sources := []fsnode.Node{src.Node("big.bin"), src.Node("small.txt")}
	result, rec := transfer(t, ex, sources, dst.Root(), false)

	require.Equal(t, ops.TransferResult{FailedItems: 1}, result)
	require.Equal(t, 1, rec.progress.CopiedItems)
	require.Equal(t, int64(16384+2), rec.progress.CopiedBytes)
	rec.requireMonotonic(t)
}

func TestWriteFailureCountsOnce(t *testing.T) {
	src := sampleTree()
	dst := memfs.New("dest")
	dst.FailWriteAfter("root/a.txt", 10)

	result, rec := transfer(t, ops.NewExecutor(ops.WithChunkSize(16)), []fsnode.Node{src.Node("root")}, dst.Root(), false)

	require.Equal(t, ops.TransferResult{FailedItems: 1}, result)
	require.Equal(t, 1, rec.progress.CopiedItems)
	require.Equal(t, int64(50), rec.progress.CopiedBytes)
}

func TestNamelessSources(t *testing.T) {
	src := sampleTree()
	src.HideName("root/sub")
	src.HideName("root/a.txt")
	dst := memfs.New("dest")

	result, _ := transfer(t, ops.NewExecutor(), []fsnode.Node{src.Node("root")}, dst.Root(), false)

	require.Equal(t, ops.TransferResult{FailedItems: 1}, result)
	require.True(t, dst.Exists("root/"+ops.FallbackDirName+"/b.txt"))
	require.False(t, dst.Exists("root/a.txt"))
}

func TestListFailureBlocksMove(t *testing.T) {
	src := sampleTree()
	src.FailList("root/sub")
	dst := memfs.New("dest")

	result, _ := transfer(t, ops.NewExecutor(), []fsnode.Node{src.Node("root")}, dst.Root(), true)

	require.Equal(t, 1, result.FailedItems)
	require.True(t, src.Exists("root/sub/b.txt"))
	require.Empty(t, src.Deletes())
}

func TestVanishedSourcesAreSkipped(t *testing.T) {
	src := sampleTree()
	dst := memfs.New("dest")

	sources := []fsnode.Node{src.Node("gone.txt"), src.Node("root/a.txt")}
	result, rec := transfer(t, ops.NewExecutor(), sources, dst.Root(), true)

	require.Equal(t, ops.TransferResult{}, result)
	require.True(t, rec.progress.Complete())
	require.Equal(t, []string{"root/a.txt"}, src.Deletes())
}

func TestCopyIntoItselfIsRefused(t *testing.T) {
	for _, move := range []bool{false, true} {
		src := sampleTree()
		other := src.AddFile("other.txt", []byte("ok"), "")

		sources := []fsnode.Node{src.Node("root"), other}
		result, rec := transfer(t, ops.NewExecutor(), sources, src.Node("root/sub"), move)

		require.Equal(t, 2, result.FailedItems, "move=%v", move)
		require.False(t, src.Exists("root/sub/root"), "move=%v", move)
		require.True(t, src.Exists("root/sub/other.txt"), "move=%v", move)
		require.True(t, src.Exists("root/a.txt"), "move=%v", move)
		require.Equal(t, 1, rec.progress.CopiedItems, "move=%v", move)
		if move {
			require.Empty(t, src.Deletes())
		}
	}
}

func TestCopyOntoItselfIsRefused(t *testing.T) {
	src := sampleTree()

	result, _ := transfer(t, ops.NewExecutor(), []fsnode.Node{src.Node("root/sub")}, src.Node("root/sub"), false)

	require.Equal(t, 1, result.FailedItems)
	require.False(t, src.Exists("root/sub/sub"))
}

// abortingDir hands out files whose writers record being aborted.
type abortingDir struct {
	fsnode.Node
	aborted *[]error
	closed  *int
}

func (d abortingDir) CreateFile(mimeType, name string) (fsnode.Node, error) {
	n, err := d.Node.CreateFile(mimeType, name)
	if err != nil {
		return nil, err
	}
	return abortingFile{Node: n, dir: d}, nil
}

type abortingFile struct {
	fsnode.Node
	dir abortingDir
}

func (f abortingFile) OpenWrite() (io.WriteCloser, error) {
	w, err := f.Node.OpenWrite()
	if err != nil {
		return nil, err
	}
	return &abortingWriter{WriteCloser: w, dir: f.dir}, nil
}

type abortingWriter struct {
	io.WriteCloser
	dir abortingDir
}

func (w *abortingWriter) Close() error {
	*w.dir.closed++
	return w.WriteCloser.Close()
}

func (w *abortingWriter) Abort(err error) error {
	*w.dir.aborted = append(*w.dir.aborted, err)
	return nil
}

func TestFailedReadAbortsTheWrite(t *testing.T) {
	src := memfs.New("src")
	src.AddFile("big.bin", bytes.Repeat([]byte{7}, 20000), "")
	src.FailReadAfter("big.bin", 8192)
	src.AddFile("small.txt", []byte("ok"), "")
	dst := memfs.New("dest")

	var aborted []error
	closed := 0
	dest := abortingDir{Node: dst.Root(), aborted: &aborted, closed: &closed}

	sources := []fsnode.Node{src.Node("big.bin"), src.Node("small.txt")}
	result, _ := transfer(t, ops.NewExecutor(ops.WithChunkSize(4096)), sources, dest, false)

	require.Equal(t, ops.TransferResult{FailedItems: 1}, result)
	require.Len(t, aborted, 1)
	require.Error(t, aborted[0])
	require.Equal(t, 1, closed)
}
