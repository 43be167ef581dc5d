package ops

// Totals is the size of an operation, computed once before anything in the
// store is touched. For transfers Items counts files only; for deletions it
// counts every node since each one needs its own delete call.
type Totals struct {
	Items int
	Bytes int64
}

// Progress is the running state of an operation. The executor owns it and
// is the only writer; everyone else sees copies taken at tick time.
type Progress struct {
	TotalItems  int
	TotalBytes  int64
	CopiedItems int
	CopiedBytes int64
	CurrentName string
}

// NewProgress starts an operation's progress from its totals.
func NewProgress(totals Totals) *Progress {
	return &Progress{
		TotalItems: totals.Items,
		TotalBytes: totals.Bytes,
	}
}

// Complete reports whether every counted item has been processed.
func (p *Progress) Complete() bool {
	return p.CopiedItems == p.TotalItems
}

// TransferResult is the outcome of a copy or move. DeleteFailuresAfterCut
// only counts source deletions attempted after a clean copy pass of a move.
type TransferResult struct {
	FailedItems            int
	DeleteFailuresAfterCut int
}

// Failed is the total of both failure counters.
func (r TransferResult) Failed() int {
	return r.FailedItems + r.DeleteFailuresAfterCut
}

// Tick is called by the executors after every chunk and every item.
type Tick func()

func nopTick() {}

func clampSize(size int64) int64 {
	if size < 0 {
		return 0
	}
	return size
}
