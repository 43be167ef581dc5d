// Package memfs is an in-memory fsnode store. Children list in name order
// so walks are deterministic, and every mutation can be made to fail on
// demand, which is what the engine tests lean on.
package memfs

import (
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/studio1767/fileman/internal/fsnode"
)

type entry struct {
	name     string
	dir      bool
	mime     string
	data     []byte
	children map[string]*entry
}

// FS is an in-memory tree. Paths are slash separated and relative to the
// root, with "" naming the root itself.
type FS struct {
	mu   sync.Mutex
	root *entry

	failCreate     map[string]bool
	failDelete     map[string]bool
	failOpen       map[string]bool
	failList       map[string]bool
	failReadAfter  map[string]int64
	failWriteAfter map[string]int64
	sizes          map[string]int64
	nameless       map[string]bool

	listHook func(p string)
	deletes  []string
}

// New creates an empty tree whose root directory is called name.
func New(name string) *FS {
	return &FS{
		root: &entry{
			name:     name,
			dir:      true,
			children: make(map[string]*entry),
		},
		failCreate:     make(map[string]bool),
		failDelete:     make(map[string]bool),
		failOpen:       make(map[string]bool),
		failList:       make(map[string]bool),
		failReadAfter:  make(map[string]int64),
		failWriteAfter: make(map[string]int64),
		sizes:          make(map[string]int64),
		nameless:       make(map[string]bool),
	}
}

func clean(p string) string {
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// lookup must be called with fs.mu held.
func (fs *FS) lookup(p string) *entry {
	p = clean(p)
	if p == "" {
		return fs.root
	}

	current := fs.root
	for _, elem := range strings.Split(p, "/") {
		if !current.dir {
			return nil
		}
		next, ok := current.children[elem]
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// insert must be called with fs.mu held.
func (fs *FS) insert(p string, e *entry) (*entry, error) {
	p = clean(p)
	parent := fs.root
	elems := strings.Split(p, "/")
	for _, elem := range elems[:len(elems)-1] {
		next, ok := parent.children[elem]
		if !ok {
			next = &entry{name: elem, dir: true, children: make(map[string]*entry)}
			parent.children[elem] = next
		}
		if !next.dir {
			return nil, fsnode.NewErrNotDirectory(elem)
		}
		parent = next
	}

	name := elems[len(elems)-1]
	if _, ok := parent.children[name]; ok {
		return nil, fsnode.NewErrExists(p)
	}
	e.name = name
	parent.children[name] = e
	return e, nil
}

// AddFile creates a file, and any missing parent directories.
func (fs *FS) AddFile(p string, data []byte, mimeType string) fsnode.Node {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	_, err := fs.insert(p, &entry{mime: mimeType, data: buf})
	if err != nil {
		panic(err)
	}
	return &Node{fs: fs, path: clean(p)}
}

// AddDir creates a directory, and any missing parents.
func (fs *FS) AddDir(p string) fsnode.Node {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, err := fs.insert(p, &entry{dir: true, children: make(map[string]*entry)})
	if err != nil {
		panic(err)
	}
	return &Node{fs: fs, path: clean(p)}
}

// Remove drops an entry and everything below it without going through the
// node interface, the way a concurrent writer would.
func (fs *FS) Remove(p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = clean(p)
	parent := fs.lookup(path.Dir("/" + p))
	if parent == nil || !parent.dir {
		return
	}
	delete(parent.children, path.Base(p))
}

// Root returns a handle to the root directory.
func (fs *FS) Root() fsnode.Node {
	return &Node{fs: fs, path: ""}
}

// Node returns a handle for p whether or not anything exists there.
func (fs *FS) Node(p string) fsnode.Node {
	return &Node{fs: fs, path: clean(p)}
}

// Exists reports whether anything is stored at p.
func (fs *FS) Exists(p string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.lookup(p) != nil
}

// ReadFile returns a copy of the file contents at p.
func (fs *FS) ReadFile(p string) ([]byte, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e := fs.lookup(p)
	if e == nil || e.dir {
		return nil, false
	}
	data := make([]byte, len(e.data))
	copy(data, e.data)
	return data, true
}

// Deletes returns the paths of every delete attempt, in call order.
func (fs *FS) Deletes() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.deletes...)
}

func (fs *FS) FailCreate(p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failCreate[clean(p)] = true
}

func (fs *FS) FailDelete(p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failDelete[clean(p)] = true
}

func (fs *FS) FailOpen(p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failOpen[clean(p)] = true
}

func (fs *FS) FailList(p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failList[clean(p)] = true
}

// FailReadAfter makes reads of p fail once n bytes have been returned.
func (fs *FS) FailReadAfter(p string, n int64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failReadAfter[clean(p)] = n
}

// FailWriteAfter makes writes to p fail once n bytes have been stored.
func (fs *FS) FailWriteAfter(p string, n int64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failWriteAfter[clean(p)] = n
}

// SetSize overrides the size reported for p, e.g. -1 for unknown.
func (fs *FS) SetSize(p string, size int64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.sizes[clean(p)] = size
}

// HideName makes the node at p report an empty name.
func (fs *FS) HideName(p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.nameless[clean(p)] = true
}

// OnList registers a hook that runs before every directory listing, with
// the lock released so the hook may mutate the tree.
func (fs *FS) OnList(hook func(p string)) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.listHook = hook
}

// Node is a handle to a path in an FS.
type Node struct {
	fs   *FS
	path string
}

// Path returns the slash separated path of the node inside its tree.
func (n *Node) Path() string {
	return n.path
}

// Contains reports whether other is n or lies below it in the same tree.
func (n *Node) Contains(other fsnode.Node) bool {
	o, ok := other.(*Node)
	if !ok || o.fs != n.fs {
		return false
	}
	return n.path == "" || o.path == n.path || strings.HasPrefix(o.path, n.path+"/")
}

func (n *Node) Exists() bool {
	return n.fs.Exists(n.path)
}

func (n *Node) IsDirectory() bool {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	e := n.fs.lookup(n.path)
	return e != nil && e.dir
}

func (n *Node) Name() string {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if n.fs.nameless[n.path] {
		return ""
	}
	if n.path == "" {
		return n.fs.root.name
	}
	return path.Base(n.path)
}

func (n *Node) MimeType() string {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	e := n.fs.lookup(n.path)
	if e == nil || e.dir {
		return ""
	}
	return e.mime
}

func (n *Node) Size() int64 {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if size, ok := n.fs.sizes[n.path]; ok {
		return size
	}
	e := n.fs.lookup(n.path)
	if e == nil || e.dir {
		return 0
	}
	return int64(len(e.data))
}

func (n *Node) ListChildren() ([]fsnode.Node, error) {
	n.fs.mu.Lock()
	hook := n.fs.listHook
	n.fs.mu.Unlock()

	if hook != nil {
		hook(n.path)
	}

	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if n.fs.failList[n.path] {
		return nil, errors.Errorf("list %s: injected failure", n.path)
	}
	e := n.fs.lookup(n.path)
	if e == nil {
		return nil, fsnode.NewErrNotFound(n.path)
	}
	if !e.dir {
		return nil, fsnode.NewErrNotDirectory(n.path)
	}

	names := make([]string, 0, len(e.children))
	for name := range e.children {
		names = append(names, name)
	}
	sort.Strings(names)

	children := make([]fsnode.Node, 0, len(names))
	for _, name := range names {
		children = append(children, &Node{fs: n.fs, path: n.child(name)})
	}
	return children, nil
}

func (n *Node) child(name string) string {
	if n.path == "" {
		return name
	}
	return n.path + "/" + name
}

func (n *Node) create(name string, e *entry) (fsnode.Node, error) {
	if !fsnode.ValidName(name) {
		return nil, fsnode.NewErrInvalidName(name)
	}

	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	parent := n.fs.lookup(n.path)
	if parent == nil {
		return nil, fsnode.NewErrNotFound(n.path)
	}
	if !parent.dir {
		return nil, fsnode.NewErrNotDirectory(n.path)
	}

	p := n.child(name)
	if n.fs.failCreate[p] {
		return nil, errors.Errorf("create %s: injected failure", p)
	}
	if _, err := n.fs.insert(p, e); err != nil {
		return nil, err
	}
	return &Node{fs: n.fs, path: p}, nil
}

func (n *Node) CreateFile(mimeType, name string) (fsnode.Node, error) {
	return n.create(name, &entry{mime: mimeType})
}

func (n *Node) CreateDirectory(name string) (fsnode.Node, error) {
	return n.create(name, &entry{dir: true, children: make(map[string]*entry)})
}

func (n *Node) Delete() error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	n.fs.deletes = append(n.fs.deletes, n.path)

	if n.fs.failDelete[n.path] {
		return errors.Errorf("delete %s: injected failure", n.path)
	}
	if n.path == "" {
		return errors.Errorf("cannot delete the root")
	}
	e := n.fs.lookup(n.path)
	if e == nil {
		return fsnode.NewErrNotFound(n.path)
	}
	if e.dir && len(e.children) > 0 {
		return fsnode.NewErrNotEmpty(n.path)
	}

	parent := n.fs.lookup(path.Dir("/" + n.path))
	delete(parent.children, e.name)
	return nil
}

func (n *Node) Rename(name string) error {
	if !fsnode.ValidName(name) {
		return fsnode.NewErrInvalidName(name)
	}

	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if n.path == "" {
		return errors.Errorf("cannot rename the root")
	}
	e := n.fs.lookup(n.path)
	if e == nil {
		return fsnode.NewErrNotFound(n.path)
	}
	parentPath := clean(path.Dir("/" + n.path))
	parent := n.fs.lookup(parentPath)
	if _, ok := parent.children[name]; ok {
		return fsnode.NewErrExists(name)
	}

	delete(parent.children, e.name)
	e.name = name
	parent.children[name] = e

	if parentPath == "" {
		n.path = name
	} else {
		n.path = parentPath + "/" + name
	}
	return nil
}

func (n *Node) OpenRead() (io.ReadCloser, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if n.fs.failOpen[n.path] {
		return nil, errors.Errorf("open %s: injected failure", n.path)
	}
	e := n.fs.lookup(n.path)
	if e == nil {
		return nil, fsnode.NewErrNotFound(n.path)
	}
	if e.dir {
		return nil, errors.Errorf("open %s: is a directory", n.path)
	}

	data := make([]byte, len(e.data))
	copy(data, e.data)

	limit := int64(-1)
	if after, ok := n.fs.failReadAfter[n.path]; ok {
		limit = after
	}
	return &reader{data: data, limit: limit}, nil
}

func (n *Node) OpenWrite() (io.WriteCloser, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if n.fs.failOpen[n.path] {
		return nil, errors.Errorf("open %s: injected failure", n.path)
	}
	e := n.fs.lookup(n.path)
	if e == nil {
		return nil, fsnode.NewErrNotFound(n.path)
	}
	if e.dir {
		return nil, errors.Errorf("open %s: is a directory", n.path)
	}
	e.data = e.data[:0]
	return &writer{fs: n.fs, path: n.path}, nil
}

type reader struct {
	data  []byte
	off   int64
	limit int64
}

func (r *reader) Read(p []byte) (int, error) {
	if r.limit >= 0 && r.off >= r.limit {
		return 0, errors.Errorf("read: injected failure")
	}
	if r.off >= int64(len(r.data)) {
		return 0, io.EOF
	}

	end := int64(len(r.data))
	if r.limit >= 0 && r.limit < end {
		end = r.limit
	}
	if max := r.off + int64(len(p)); max < end {
		end = max
	}

	n := copy(p, r.data[r.off:end])
	r.off += int64(n)
	return n, nil
}

func (r *reader) Close() error {
	return nil
}

type writer struct {
	fs      *FS
	path    string
	written int64
}

func (w *writer) Write(p []byte) (int, error) {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()

	e := w.fs.lookup(w.path)
	if e == nil || e.dir {
		return 0, fsnode.NewErrNotFound(w.path)
	}
	if after, ok := w.fs.failWriteAfter[w.path]; ok && w.written+int64(len(p)) > after {
		return 0, errors.Errorf("write %s: injected failure", w.path)
	}

	e.data = append(e.data, p...)
	w.written += int64(len(p))
	return len(p), nil
}

func (w *writer) Close() error {
	return nil
}
