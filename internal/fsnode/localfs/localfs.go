// Package localfs provides fsnode.Node handles over the local filesystem.
package localfs

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"gitlab.com/tozd/go/errors"

	"github.com/studio1767/fileman/internal/fsnode"
)

// Node is a handle to a path on the local filesystem. Nothing about the
// entry is cached; every query goes back to the filesystem.
type Node struct {
	path string
}

// Open returns a handle for path, which must already exist.
func Open(path string) (*Node, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Lstat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fsnode.NewErrNotFound(path)
		}
		return nil, errors.Errorf("stat %s: %w", path, err)
	}
	// a root given as a link is followed once; links below it never are
	if info.Mode()&os.ModeSymlink != 0 {
		if abs, err = filepath.EvalSymlinks(abs); err != nil {
			return nil, errors.Errorf("resolve %s: %w", path, err)
		}
	}
	return &Node{path: abs}, nil
}

// Path returns the absolute path of the node.
func (n *Node) Path() string {
	return n.path
}

// Contains reports whether other is the same path as n or lies below it.
func (n *Node) Contains(other fsnode.Node) bool {
	o, ok := other.(*Node)
	if !ok {
		return false
	}
	rel, err := filepath.Rel(n.path, o.path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (n *Node) Exists() bool {
	_, err := os.Lstat(n.path)
	return err == nil
}

func (n *Node) IsDirectory() bool {
	info, err := os.Lstat(n.path)
	return err == nil && info.IsDir()
}

func (n *Node) Name() string {
	name := filepath.Base(n.path)
	if name == string(filepath.Separator) || name == "." {
		return ""
	}
	return name
}

func (n *Node) MimeType() string {
	if n.IsDirectory() {
		return ""
	}
	mtype, err := mimetype.DetectFile(n.path)
	if err != nil {
		return ""
	}
	return mtype.String()
}

func (n *Node) Size() int64 {
	info, err := os.Lstat(n.path)
	if err != nil {
		return -1
	}
	if info.IsDir() {
		return 0
	}
	return info.Size()
}

func (n *Node) ListChildren() ([]fsnode.Node, error) {
	entries, err := os.ReadDir(n.path)
	if err != nil {
		return nil, errors.Errorf("read dir %s: %w", n.path, err)
	}

	children := make([]fsnode.Node, 0, len(entries))
	for _, entry := range entries {
		// only regular files and directories. Links are skipped so a walk
		// never leaves the tree it was started on.
		if !entry.Type().IsRegular() && !entry.IsDir() {
			continue
		}
		children = append(children, &Node{path: filepath.Join(n.path, entry.Name())})
	}
	return children, nil
}

func (n *Node) childPath(name string) (string, error) {
	if !fsnode.ValidName(name) {
		return "", fsnode.NewErrInvalidName(name)
	}
	if !n.IsDirectory() {
		return "", fsnode.NewErrNotDirectory(n.path)
	}
	return filepath.Join(n.path, name), nil
}

// CreateFile creates an empty file. An existing entry with the same name
// is never overwritten. The mime type is ignored: local files don't carry
// one, it is detected from content when asked for.
func (n *Node) CreateFile(mimeType, name string) (fsnode.Node, error) {
	fpath, err := n.childPath(name)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fsnode.NewErrExists(fpath)
		}
		return nil, errors.Errorf("create %s: %w", fpath, err)
	}
	if err := f.Close(); err != nil {
		return nil, errors.Errorf("close %s: %w", fpath, err)
	}

	return &Node{path: fpath}, nil
}

func (n *Node) CreateDirectory(name string) (fsnode.Node, error) {
	dpath, err := n.childPath(name)
	if err != nil {
		return nil, err
	}

	if err := os.Mkdir(dpath, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fsnode.NewErrExists(dpath)
		}
		return nil, errors.Errorf("mkdir %s: %w", dpath, err)
	}

	return &Node{path: dpath}, nil
}

// Delete removes a file or an empty directory.
func (n *Node) Delete() error {
	if err := os.Remove(n.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fsnode.NewErrNotFound(n.path)
		}
		return errors.Errorf("delete %s: %w", n.path, err)
	}
	return nil
}

// Rename renames the entry in place; it never moves it to another directory.
func (n *Node) Rename(name string) error {
	if !fsnode.ValidName(name) {
		return fsnode.NewErrInvalidName(name)
	}

	target := filepath.Join(filepath.Dir(n.path), name)
	if _, err := os.Lstat(target); err == nil {
		return fsnode.NewErrExists(target)
	}
	if err := os.Rename(n.path, target); err != nil {
		return errors.Errorf("rename %s: %w", n.path, err)
	}

	n.path = target
	return nil
}

func (n *Node) OpenRead() (io.ReadCloser, error) {
	f, err := os.Open(n.path)
	if err != nil {
		return nil, errors.Errorf("open %s: %w", n.path, err)
	}
	return f, nil
}

func (n *Node) OpenWrite() (io.WriteCloser, error) {
	f, err := os.OpenFile(n.path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return nil, errors.Errorf("open %s: %w", n.path, err)
	}
	return f, nil
}
