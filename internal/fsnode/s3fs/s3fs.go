// Package s3fs presents a bucket as a directory tree. Keys are split on
// '/', a directory is a key prefix, and an empty object named after the
// prefix (trailing slash included) marks a directory that has no children
// yet.
package s3fs

import (
	"bytes"
	"io"
	"path"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/studio1767/fileman/internal/fsnode"
	"github.com/studio1767/fileman/internal/s3io"
)

const dirMimeType = "application/x-directory"

// Node is a handle to a key, or a key prefix, in a bucket.
type Node struct {
	client s3io.Client
	key    string
	dir    bool
	mime   string
	label  string
}

// NewRoot returns the directory node for prefix. The label names the root
// when prefix is empty.
func NewRoot(client s3io.Client, prefix, label string) *Node {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Node{client: client, key: prefix, dir: true, label: label}
}

// Key returns the object key, or the key prefix for directories.
func (n *Node) Key() string {
	return n.key
}

func (n *Node) child(key string, dir bool) *Node {
	return &Node{client: n.client, key: key, dir: dir, label: n.label}
}

func parentKey(key string) string {
	dir := path.Dir(strings.TrimSuffix(key, "/"))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir + "/"
}

// hasChildren reports whether anything other than the marker lives under
// the directory prefix.
func (n *Node) hasChildren() (bool, error) {
	objects, prefixes, err := n.client.List(n.key)
	if err != nil {
		return false, err
	}
	if len(prefixes) > 0 {
		return true, nil
	}
	for _, object := range objects {
		if object.Key != n.key {
			return true, nil
		}
	}
	return false, nil
}

// Contains reports whether other is n or, for directories, lies below it
// in the same bucket.
func (n *Node) Contains(other fsnode.Node) bool {
	o, ok := other.(*Node)
	if !ok || o.client != n.client {
		return false
	}
	if !n.dir {
		return o.key == n.key
	}
	return strings.HasPrefix(o.key, n.key)
}

func (n *Node) Exists() bool {
	if n.dir && n.key == "" {
		return true
	}

	exists, err := n.client.Exists(n.key)
	if err != nil {
		return false
	}
	if exists || !n.dir {
		return exists
	}

	children, err := n.hasChildren()
	return err == nil && children
}

func (n *Node) IsDirectory() bool {
	return n.dir
}

func (n *Node) Name() string {
	if n.key == "" {
		return n.label
	}
	return path.Base(strings.TrimSuffix(n.key, "/"))
}

func (n *Node) MimeType() string {
	if n.dir {
		return ""
	}
	if n.mime != "" {
		return n.mime
	}
	info, err := n.client.Head(n.key)
	if err != nil {
		return ""
	}
	return info.ContentType
}

func (n *Node) Size() int64 {
	if n.dir {
		return 0
	}
	info, err := n.client.Head(n.key)
	if err != nil {
		return -1
	}
	return info.Size
}

func (n *Node) ListChildren() ([]fsnode.Node, error) {
	if !n.dir {
		return nil, fsnode.NewErrNotDirectory(n.key)
	}

	objects, prefixes, err := n.client.List(n.key)
	if err != nil {
		return nil, errors.Errorf("list %s: %w", n.key, err)
	}

	children := make([]fsnode.Node, 0, len(objects)+len(prefixes))
	for _, prefix := range prefixes {
		children = append(children, n.child(prefix, true))
	}
	for _, object := range objects {
		if object.Key == n.key {
			continue
		}
		children = append(children, n.child(object.Key, false))
	}
	return children, nil
}

// taken reports whether name is already used by a file or a directory.
func (n *Node) taken(name string) (bool, error) {
	exists, err := n.client.Exists(n.key + name)
	if err != nil || exists {
		return exists, err
	}
	return n.child(n.key+name+"/", true).Exists(), nil
}

func (n *Node) create(name string) error {
	if !n.dir {
		return fsnode.NewErrNotDirectory(n.key)
	}
	if !fsnode.ValidName(name) {
		return fsnode.NewErrInvalidName(name)
	}
	taken, err := n.taken(name)
	if err != nil {
		return errors.Errorf("check %s%s: %w", n.key, name, err)
	}
	if taken {
		return fsnode.NewErrExists(n.key + name)
	}
	return nil
}

func (n *Node) CreateFile(mimeType, name string) (fsnode.Node, error) {
	if err := n.create(name); err != nil {
		return nil, err
	}

	file := n.child(n.key+name, false)
	file.mime = mimeType

	if _, err := n.client.Upload(file.key, mimeType, bytes.NewReader(nil)); err != nil {
		return nil, errors.Errorf("create %s: %w", file.key, err)
	}
	return file, nil
}

func (n *Node) CreateDirectory(name string) (fsnode.Node, error) {
	if err := n.create(name); err != nil {
		return nil, err
	}

	dir := n.child(n.key+name+"/", true)
	if _, err := n.client.Upload(dir.key, dirMimeType, bytes.NewReader(nil)); err != nil {
		return nil, errors.Errorf("create %s: %w", dir.key, err)
	}
	return dir, nil
}

// Delete removes a file, or the marker of a directory with no children.
// A directory with neither is already gone and deletes without error.
func (n *Node) Delete() error {
	if n.key == "" {
		return errors.Errorf("cannot delete the bucket root")
	}

	if n.dir {
		children, err := n.hasChildren()
		if err != nil {
			return errors.Errorf("list %s: %w", n.key, err)
		}
		if children {
			return fsnode.NewErrNotEmpty(n.key)
		}
	}

	exists, err := n.client.Exists(n.key)
	if err != nil {
		return errors.Errorf("check %s: %w", n.key, err)
	}
	if !exists {
		// a directory without a marker went away with its last child
		if n.dir {
			return nil
		}
		return fsnode.NewErrNotFound(n.key)
	}

	if err := n.client.Delete(n.key); err != nil {
		return errors.Errorf("delete %s: %w", n.key, err)
	}
	return nil
}

// Rename moves a file to a sibling key. Objects can't be renamed in
// place, so this is a server side copy followed by a delete. Directories
// are only renamed while they have no children.
func (n *Node) Rename(name string) error {
	if n.key == "" {
		return errors.Errorf("cannot rename the bucket root")
	}

	parent := n.child(parentKey(n.key), true)
	if err := parent.create(name); err != nil {
		return err
	}

	target := parent.key + name
	if n.dir {
		children, err := n.hasChildren()
		if err != nil {
			return errors.Errorf("list %s: %w", n.key, err)
		}
		if children {
			return fsnode.NewErrNotEmpty(n.key)
		}
		target += "/"
	}

	if err := n.client.Copy(n.key, target); err != nil {
		return errors.Errorf("copy %s to %s: %w", n.key, target, err)
	}
	if err := n.client.Delete(n.key); err != nil {
		return errors.Errorf("delete %s: %w", n.key, err)
	}

	n.key = target
	return nil
}

func (n *Node) OpenRead() (io.ReadCloser, error) {
	if n.dir {
		return nil, errors.Errorf("open %s: is a directory", n.key)
	}
	return n.client.Open(n.key)
}

// OpenWrite streams everything written into a single upload that
// completes on Close.
func (n *Node) OpenWrite() (io.WriteCloser, error) {
	if n.dir {
		return nil, errors.Errorf("open %s: is a directory", n.key)
	}

	mimeType := n.MimeType()
	reader, writer := io.Pipe()
	done := make(chan error, 1)

	go func() {
		_, err := n.client.Upload(n.key, mimeType, reader)
		reader.CloseWithError(err)
		done <- err
	}()

	return &uploadWriter{writer: writer, done: done}, nil
}

type uploadWriter struct {
	writer *io.PipeWriter
	done   chan error
}

func (uw *uploadWriter) Write(p []byte) (int, error) {
	return uw.writer.Write(p)
}

func (uw *uploadWriter) Close() error {
	uw.writer.Close()
	return <-uw.done
}

// Abort fails the upload, so nothing written so far is stored.
func (uw *uploadWriter) Abort(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	uw.writer.CloseWithError(err)
	<-uw.done
	return nil
}
