package ops

import (
	"io"

	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"

	"github.com/studio1767/fileman/internal/fsnode"
)

// Transfer copies sources, in order, into destination. With move set the
// sources are deleted afterwards, but only if every copy succeeded; a
// single failure anywhere leaves all of them in place. A source that holds
// destination is not copied and counts its files as failed.
//
// Failures never stop the walk. Each file that could not be copied counts
// once, and a directory that could not be created counts every file
// beneath it.
func (ex *Executor) Transfer(sources []fsnode.Node, destination fsnode.Node, move bool, progress *Progress, tick Tick) TransferResult {
	if tick == nil {
		tick = nopTick
	}

	var result TransferResult
	var copied []fsnode.Node

	for _, source := range sources {
		if source == nil || !source.Exists() {
			continue
		}

		// copying into itself would keep finding its own copies
		if fsnode.Contains(source, destination) {
			failed := ScanTotals([]fsnode.Node{source}).Items
			if failed == 0 {
				failed = 1
			}
			ex.log.Debug("destination inside source",
				zap.String("name", source.Name()),
				zap.Int("skipped", failed),
			)
			result.FailedItems += failed
			continue
		}

		if source.IsDirectory() {
			result.FailedItems += ex.copyDirectory(source, destination, progress, tick)
		} else {
			result.FailedItems += ex.copyFile(source, destination, progress, tick)
		}
		copied = append(copied, source)
	}

	if !move || result.FailedItems != 0 {
		return result
	}

	for _, source := range copied {
		if err := removeTree(source); err != nil {
			ex.log.Debug("delete after move failed",
				zap.String("name", source.Name()),
				zap.Error(err),
			)
			result.DeleteFailuresAfterCut++
		}
	}

	return result
}

func (ex *Executor) copyDirectory(source, parent fsnode.Node, progress *Progress, tick Tick) int {
	name := source.Name()
	if name == "" {
		name = FallbackDirName
	}

	target, err := parent.CreateDirectory(name)
	if err != nil {
		failed := ScanTotals([]fsnode.Node{source}).Items
		ex.log.Debug("create directory failed",
			zap.String("name", name),
			zap.Int("skipped", failed),
			zap.Error(err),
		)
		return failed
	}

	children, err := source.ListChildren()
	if err != nil {
		// the files below can't be reached, and a move must not go on to
		// delete them
		ex.log.Debug("list directory failed", zap.String("name", name), zap.Error(err))
		return 1
	}

	failed := 0
	for _, child := range children {
		if !child.Exists() {
			continue
		}
		if child.IsDirectory() {
			failed += ex.copyDirectory(child, target, progress, tick)
		} else {
			failed += ex.copyFile(child, target, progress, tick)
		}
	}
	return failed
}

func (ex *Executor) copyFile(source, dir fsnode.Node, progress *Progress, tick Tick) int {
	if err := ex.streamFile(source, dir, progress, tick); err != nil {
		ex.log.Debug("copy failed",
			zap.String("name", source.Name()),
			zap.Error(err),
		)
		return 1
	}
	return 0
}

// streamFile copies one file a chunk at a time. Bytes credited to progress
// before a failure stay credited.
func (ex *Executor) streamFile(source, dir fsnode.Node, progress *Progress, tick Tick) error {
	name := source.Name()
	if name == "" {
		return errors.Errorf("source has no name")
	}

	mimeType := source.MimeType()
	if mimeType == "" {
		mimeType = fsnode.DefaultMimeType
	}

	target, err := dir.CreateFile(mimeType, name)
	if err != nil {
		return errors.Errorf("create %s: %w", name, err)
	}

	reader, err := source.OpenRead()
	if err != nil {
		return errors.Errorf("open %s for reading: %w", name, err)
	}
	defer reader.Close()

	writer, err := target.OpenWrite()
	if err != nil {
		return errors.Errorf("open %s for writing: %w", name, err)
	}

	buffer := make([]byte, ex.chunkSize)
	for {
		nr, rerr := reader.Read(buffer)
		if nr > 0 {
			if _, err := writer.Write(buffer[:nr]); err != nil {
				err = errors.Errorf("write %s: %w", name, err)
				fsnode.Abort(writer, err)
				return err
			}
			progress.CopiedBytes += int64(nr)
			progress.CurrentName = name
			tick()
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			err := errors.Errorf("read %s: %w", name, rerr)
			fsnode.Abort(writer, err)
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return errors.Errorf("close %s: %w", name, err)
	}

	progress.CopiedItems++
	progress.CurrentName = name
	tick()

	return nil
}

// removeTree deletes node and everything below it, children first. It
// keeps going past failures and returns the first one.
func removeTree(node fsnode.Node) error {
	var first error

	if node.IsDirectory() {
		children, err := node.ListChildren()
		if err != nil {
			first = err
		}
		for _, child := range children {
			if err := removeTree(child); err != nil && first == nil {
				first = err
			}
		}
	}

	if err := node.Delete(); err != nil && first == nil {
		first = err
	}
	return first
}
