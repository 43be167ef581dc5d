package main

import (
	"context"
	"fmt"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/studio1767/fileman/internal/progress"
	"github.com/studio1767/fileman/internal/worker"
)

// console draws operation progress. Snapshots arrive on the loop's
// goroutine, which is the only one touching the printers.
type console struct {
	loop    *progress.Loop
	quiet   bool
	bar     *pterm.ProgressbarPrinter
	spinner *pterm.SpinnerPrinter
}

func newConsole(quiet bool) *console {
	return &console{
		loop:  progress.NewLoop(context.Background(), 64),
		quiet: quiet,
	}
}

func (c *console) Sink(s progress.Snapshot) {
	if c.quiet {
		return
	}

	if s.Indeterminate {
		text := fmt.Sprintf("%s...", s.Label)
		if c.spinner == nil {
			c.spinner, _ = pterm.DefaultSpinner.Start(text)
		} else {
			c.spinner.UpdateText(text)
		}
		return
	}

	c.stopSpinner()
	if c.bar == nil {
		c.bar, _ = pterm.DefaultProgressbar.WithTotal(100).WithTitle(s.Label).Start()
		if c.bar == nil {
			return
		}
	}

	title := fmt.Sprintf("%s %d/%d", s.Label, s.CopiedItems, s.TotalItems)
	if s.TotalBytes > 0 {
		title += fmt.Sprintf(" %s/%s", humanize.Bytes(uint64(s.CopiedBytes)), humanize.Bytes(uint64(s.TotalBytes)))
	}
	if s.CurrentName != "" {
		title += " " + s.CurrentName
	}
	c.bar.UpdateTitle(title)

	if percent, ok := s.Percent(); ok && percent > c.bar.Current {
		c.bar.Add(percent - c.bar.Current)
	}
}

func (c *console) stopSpinner() {
	if c.spinner != nil {
		c.spinner.Stop()
		c.spinner = nil
	}
}

func (c *console) stopBar() {
	if c.bar != nil {
		c.bar.Stop()
		c.bar = nil
	}
}

// Finish takes an operation's progress off screen. The runner calls it
// through the loop, after the operation's last snapshot.
func (c *console) Finish(worker.Outcome) {
	c.stopSpinner()
	c.stopBar()
}

// Reset waits for the pending snapshots to be drawn, then takes the
// progress off screen, ready for the next operation.
func (c *console) Reset() {
	done := make(chan struct{})
	c.loop.Dispatch(func() {
		c.stopSpinner()
		c.stopBar()
		close(done)
	})
	<-done
}

func (c *console) Close() {
	c.Reset()
	c.loop.Close()
}

// errFailures is returned by commands whose operation finished with
// failures, after they have been reported.
type errFailures struct {
	count int
}

func (e *errFailures) Error() string {
	return fmt.Sprintf("%d failures", e.count)
}

var pastTense = map[worker.Kind]string{
	worker.KindCopy:   "Copied",
	worker.KindMove:   "Moved",
	worker.KindDelete: "Deleted",
}

// report prints an outcome and turns failures into an error.
func report(o worker.Outcome) error {
	final := o.Final
	summary := fmt.Sprintf("%s %d of %d items", pastTense[o.Kind], final.CopiedItems, o.Totals.Items)
	if o.Totals.Bytes > 0 {
		summary += fmt.Sprintf(", %s", humanize.Bytes(uint64(final.CopiedBytes)))
	}
	summary += fmt.Sprintf(" in %s", o.Elapsed.Round(time.Millisecond))

	if o.Succeeded() {
		pterm.Success.Println(summary)
		return nil
	}

	pterm.Warning.Println(summary)
	if o.Result.FailedItems > 0 {
		pterm.Error.Printfln("%d items could not be copied", o.Result.FailedItems)
		if o.Kind == worker.KindMove {
			pterm.Info.Println("Nothing was deleted from the source")
		}
	}
	if o.Result.DeleteFailuresAfterCut > 0 {
		pterm.Error.Printfln("Copied everything, but %d sources could not be deleted", o.Result.DeleteFailuresAfterCut)
	}
	if o.DeleteFailures > 0 {
		pterm.Error.Printfln("%d items could not be deleted", o.DeleteFailures)
	}
	return &errFailures{count: o.Failures()}
}
