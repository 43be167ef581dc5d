// Package fsnode defines the capability interface the transfer engine uses
// to walk and mutate a hierarchical file store. Stores (local disk, S3
// buckets, in-memory trees) implement Node; the engine never looks past it.
package fsnode

import (
	"io"
	"strings"
)

// DefaultMimeType is used when a store can't tell what a file contains.
const DefaultMimeType = "application/octet-stream"

// Node is a handle to one entry in a store. Handles are cheap and must not
// be cached across operations: the entry behind one may disappear at any
// time, in which case Exists reports false and the mutators fail.
type Node interface {
	Exists() bool
	IsDirectory() bool

	// Name is the entry name; empty when the store can't resolve it.
	Name() string
	// MimeType is empty for directories and for files of unknown type.
	MimeType() string
	// Size is the file length in bytes, or a negative value when unknown.
	Size() int64

	ListChildren() ([]Node, error)

	CreateFile(mimeType, name string) (Node, error)
	CreateDirectory(name string) (Node, error)
	Delete() error
	Rename(name string) error

	OpenRead() (io.ReadCloser, error)
	OpenWrite() (io.WriteCloser, error)
}

// ValidName reports whether name can be used for a single path element.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// Resolve walks from root through the slash separated path by name. An
// empty path, "." or "/" resolves to root itself.
func Resolve(root Node, path string) (Node, error) {
	current := root
	for _, elem := range strings.Split(path, "/") {
		if elem == "" || elem == "." {
			continue
		}
		if !current.IsDirectory() {
			return nil, &ErrNotDirectory{name: current.Name()}
		}

		children, err := current.ListChildren()
		if err != nil {
			return nil, err
		}

		var next Node
		for _, child := range children {
			if child.Name() == elem {
				next = child
				break
			}
		}
		if next == nil {
			return nil, &ErrNotFound{name: path}
		}
		current = next
	}
	return current, nil
}

// ResolveAll resolves each path against root, stopping at the first error.
func ResolveAll(root Node, paths []string) ([]Node, error) {
	nodes := make([]Node, 0, len(paths))
	for _, p := range paths {
		n, err := Resolve(root, p)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Container is implemented by stores that can tell whether one of their
// nodes lies inside another.
type Container interface {
	// Contains reports whether other is this node or lies beneath it.
	Contains(other Node) bool
}

// Contains reports whether node is dir or lies beneath it. Stores that
// can't tell are assumed to keep them apart.
func Contains(dir, node Node) bool {
	if dir == nil || node == nil {
		return false
	}
	c, ok := dir.(Container)
	return ok && c.Contains(node)
}

// Aborter is implemented by writers that can give up on what has been
// written instead of committing it on Close.
type Aborter interface {
	Abort(err error) error
}

// Abort discards w when the store supports it and closes it otherwise.
func Abort(w io.WriteCloser, err error) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort(err)
	}
	return w.Close()
}
