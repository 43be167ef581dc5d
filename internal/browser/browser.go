// Package browser keeps the state of an interactive session: where the
// user is in the tree, what is on the clipboard, and which operation is
// running. Bulk work is handed to a worker.Runner.
package browser

import (
	"sort"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/studio1767/fileman/internal/fsnode"
	"github.com/studio1767/fileman/internal/worker"
)

type Mode int

const (
	ModeCopy Mode = iota
	ModeCut
)

func (m Mode) String() string {
	if m == ModeCut {
		return "cut"
	}
	return "copy"
}

// Clipboard holds nodes picked for a later paste.
type Clipboard struct {
	Nodes []fsnode.Node
	Mode  Mode
}

type Browser struct {
	mu     sync.Mutex
	runner *worker.Runner
	stack  []fsnode.Node
	clip   *Clipboard
}

// New starts a session at root.
func New(root fsnode.Node, runner *worker.Runner) *Browser {
	return &Browser{
		runner: runner,
		stack:  []fsnode.Node{root},
	}
}

// Current is the directory the session is in.
func (b *Browser) Current() fsnode.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stack[len(b.stack)-1]
}

// Path names every directory from the root down, separated by " / ".
func (b *Browser) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.stack))
	for _, dir := range b.stack {
		name := dir.Name()
		if name == "" {
			name = "?"
		}
		names = append(names, name)
	}
	return strings.Join(names, " / ")
}

// Open descends into dir.
func (b *Browser) Open(dir fsnode.Node) error {
	if dir == nil || !dir.IsDirectory() {
		return &ErrNoDirectory{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stack = append(b.stack, dir)
	return nil
}

// Up goes back to the parent. It reports false at the root.
func (b *Browser) Up() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.stack) == 1 {
		return false
	}
	b.stack = b.stack[:len(b.stack)-1]
	return true
}

// List returns the current directory's children, directories first and
// then by name ignoring case. Entries without a name are left out.
func (b *Browser) List() ([]fsnode.Node, error) {
	dir := b.Current()

	children, err := dir.ListChildren()
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", dir.Name(), err)
	}

	type entry struct {
		node  fsnode.Node
		dir   bool
		lower string
	}
	entries := make([]entry, 0, len(children))
	for _, child := range children {
		name := child.Name()
		if name == "" {
			continue
		}
		entries = append(entries, entry{node: child, dir: child.IsDirectory(), lower: strings.ToLower(name)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].dir != entries[j].dir {
			return entries[i].dir
		}
		return entries[i].lower < entries[j].lower
	})

	nodes := make([]fsnode.Node, len(entries))
	for i, e := range entries {
		nodes[i] = e.node
	}
	return nodes, nil
}

// Lookup finds a child of the current directory by name.
func (b *Browser) Lookup(name string) (fsnode.Node, error) {
	return fsnode.Resolve(b.Current(), name)
}

func (b *Browser) checkIdle() error {
	if b.runner.Busy() {
		return &worker.ErrBusy{}
	}
	return nil
}

func (b *Browser) setClipboard(nodes []fsnode.Node, mode Mode) error {
	if err := b.checkIdle(); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return &ErrNothingSelected{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.clip = &Clipboard{
		Nodes: append([]fsnode.Node(nil), nodes...),
		Mode:  mode,
	}
	return nil
}

// Copy replaces the clipboard with nodes, to be copied on paste.
func (b *Browser) Copy(nodes []fsnode.Node) error {
	return b.setClipboard(nodes, ModeCopy)
}

// Cut replaces the clipboard with nodes, to be moved on paste.
func (b *Browser) Cut(nodes []fsnode.Node) error {
	return b.setClipboard(nodes, ModeCut)
}

// Clipboard returns a copy of the clipboard and whether it holds anything.
func (b *Browser) Clipboard() (Clipboard, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.clip == nil {
		return Clipboard{}, false
	}
	return Clipboard{
		Nodes: append([]fsnode.Node(nil), b.clip.Nodes...),
		Mode:  b.clip.Mode,
	}, true
}

// Paste starts copying or moving the clipboard into the current
// directory. With an empty clipboard it does nothing and returns a nil
// handle. A cut clipboard is emptied once every file was copied.
func (b *Browser) Paste() (*worker.Handle, error) {
	if err := b.checkIdle(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	clip := b.clip
	dest := b.stack[len(b.stack)-1]
	b.mu.Unlock()

	if clip == nil || len(clip.Nodes) == 0 {
		return nil, nil
	}

	cut := clip.Mode == ModeCut
	return b.runner.Transfer(clip.Nodes, dest, cut, func(outcome worker.Outcome) {
		if !cut || outcome.Result.FailedItems != 0 {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.clip == clip {
			b.clip = nil
		}
	})
}

// Delete starts removing nodes and everything below them.
func (b *Browser) Delete(nodes []fsnode.Node) (*worker.Handle, error) {
	if err := b.checkIdle(); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, &ErrNothingSelected{}
	}
	return b.runner.Delete(nodes)
}

// Rename gives node a new name. Surrounding blanks are trimmed and a
// blank name leaves the node alone.
func (b *Browser) Rename(node fsnode.Node, name string) error {
	if err := b.checkIdle(); err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if err := node.Rename(name); err != nil {
		return errors.Errorf("renaming %s: %w", node.Name(), err)
	}
	return nil
}

// NewFolder creates a directory in the current one. Surrounding blanks
// are trimmed and a blank name creates nothing.
func (b *Browser) NewFolder(name string) (fsnode.Node, error) {
	if err := b.checkIdle(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	dir := b.Current()
	created, err := dir.CreateDirectory(name)
	if err != nil {
		return nil, errors.Errorf("creating %s in %s: %w", name, dir.Name(), err)
	}
	return created, nil
}
