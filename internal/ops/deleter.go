package ops

import (
	"go.uber.org/zap"

	"github.com/studio1767/fileman/internal/fsnode"
)

// Delete removes targets and everything below them, children before their
// parent, and returns how many delete calls failed. A failure never stops
// the walk; a directory whose children could not all be removed is still
// attempted, and fails on its own account.
func (ex *Executor) Delete(targets []fsnode.Node, progress *Progress, tick Tick) int {
	if tick == nil {
		tick = nopTick
	}

	failed := 0
	for _, target := range targets {
		if target == nil {
			continue
		}
		failed += ex.deleteNode(target, progress, tick)
	}
	return failed
}

func (ex *Executor) deleteNode(node fsnode.Node, progress *Progress, tick Tick) int {
	if !node.Exists() {
		return 0
	}

	failed := 0
	if node.IsDirectory() {
		children, err := node.ListChildren()
		if err != nil {
			ex.log.Debug("list directory failed", zap.String("name", node.Name()), zap.Error(err))
		}
		for _, child := range children {
			failed += ex.deleteNode(child, progress, tick)
		}
	} else {
		progress.CopiedBytes += clampSize(node.Size())
	}

	name := node.Name()
	if err := node.Delete(); err != nil {
		ex.log.Debug("delete failed", zap.String("name", name), zap.Error(err))
		failed++
	}

	progress.CopiedItems++
	progress.CurrentName = name
	tick()

	return failed
}
