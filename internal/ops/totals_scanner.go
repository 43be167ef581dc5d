package ops

import (
	"github.com/studio1767/fileman/internal/fsnode"
)

// ScanTotals counts the files below nodes and the sum of their sizes.
// Directories only contribute what they contain.
func ScanTotals(nodes []fsnode.Node) Totals {
	return scanTotals(nodes, false)
}

// ScanDeleteTotals is ScanTotals with every directory, the roots included,
// counted as an item of its own.
func ScanDeleteTotals(nodes []fsnode.Node) Totals {
	return scanTotals(nodes, true)
}

// scanTotals walks with an explicit stack so tree depth never turns into
// call depth. Nodes that vanish or can't be listed contribute nothing.
func scanTotals(nodes []fsnode.Node, countDirs bool) Totals {
	var totals Totals

	stack := make([]fsnode.Node, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, nodes[i])
	}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node == nil || !node.Exists() {
			continue
		}

		if !node.IsDirectory() {
			totals.Items++
			totals.Bytes += clampSize(node.Size())
			continue
		}

		if countDirs {
			totals.Items++
		}

		children, err := node.ListChildren()
		if err != nil {
			continue
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return totals
}
