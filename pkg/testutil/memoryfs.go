package testutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxLinkHops bounds symlink resolution so cycles fail instead of looping.
const maxLinkHops = 40

// Op names a MemoryFS operation for error injection.
type Op string

const (
	OpStat     Op = "stat"
	OpLstat    Op = "lstat"
	OpReadFile Op = "readfile"
	OpWrite    Op = "write"
	OpMkdir    Op = "mkdir"
	OpReadDir  Op = "readdir"
	OpSymlink  Op = "symlink"
	OpReadlink Op = "readlink"
	OpRename   Op = "rename"
	OpRemove   Op = "remove"
	// OpAny matches every operation on a path.
	OpAny Op = "*"
)

// MemoryFS implements types.FS with in-memory storage and real symlink
// semantics: Stat follows links, Lstat does not, and dangling links are
// visible to Lstat only.
type MemoryFS struct {
	mu   sync.RWMutex
	root *fileNode

	// Error injection, keyed by op then cleaned absolute path
	failures map[Op]map[string]error

	// Statistics
	calls map[Op]int
}

// fileNode represents a file, directory or symlink in memory
type fileNode struct {
	mode     os.FileMode
	modTime  time.Time
	content  []byte
	linkDest string
	children map[string]*fileNode
}

func (n *fileNode) isDir() bool  { return n.mode.IsDir() }
func (n *fileNode) isLink() bool { return n.mode&os.ModeSymlink != 0 }

// NewMemoryFS creates a new in-memory filesystem
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		root:     newDir(0755),
		failures: make(map[Op]map[string]error),
		calls:    make(map[Op]int),
	}
}

func newDir(perm os.FileMode) *fileNode {
	return &fileNode{
		mode:     perm | os.ModeDir,
		modTime:  time.Now(),
		children: make(map[string]*fileNode),
	}
}

// FailOn makes op on path return err. Use OpAny to fail every operation.
func (m *MemoryFS) FailOn(op Op, path string, err error) *MemoryFS {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = clean(path)
	if m.failures[op] == nil {
		m.failures[op] = make(map[string]error)
	}
	m.failures[op][path] = err
	return m
}

// WithError configures the filesystem to return an error for every operation on path
func (m *MemoryFS) WithError(path string, err error) *MemoryFS {
	return m.FailOn(OpAny, path, err)
}

// ClearFailures removes every injected error.
func (m *MemoryFS) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[Op]map[string]error)
}

// Calls returns how many times op was invoked.
func (m *MemoryFS) Calls(op Op) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// begin records a call and returns any injected failure. Caller holds the lock.
func (m *MemoryFS) begin(op Op, paths ...string) error {
	m.calls[op]++
	for _, p := range paths {
		p = clean(p)
		if err, ok := m.failures[op][p]; ok {
			return &fs.PathError{Op: string(op), Path: p, Err: err}
		}
		if err, ok := m.failures[OpAny][p]; ok {
			return &fs.PathError{Op: string(op), Path: p, Err: err}
		}
	}
	return nil
}

func clean(path string) string {
	if !filepath.IsAbs(path) {
		path = "/" + path
	}
	return filepath.Clean(path)
}

func split(path string) []string {
	path = clean(path)
	if path == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(filepath.ToSlash(path), "/"), "/")
}

// lookup walks path. Intermediate symlinks are always followed; the final
// component is followed only when follow is set.
func (m *MemoryFS) lookup(path string, follow bool) (*fileNode, string, error) {
	return m.walk(clean(path), follow, 0)
}

func (m *MemoryFS) walk(path string, follow bool, hops int) (*fileNode, string, error) {
	if hops > maxLinkHops {
		return nil, path, errors.New("too many levels of symbolic links")
	}

	node := m.root
	resolved := "/"
	parts := split(path)
	for i, part := range parts {
		if !node.isDir() {
			return nil, path, syscallNotDir
		}
		child, ok := node.children[part]
		if !ok {
			return nil, path, fs.ErrNotExist
		}
		next := filepath.Join(resolved, part)
		last := i == len(parts)-1
		if child.isLink() && (!last || follow) {
			target := child.linkDest
			if !filepath.IsAbs(target) {
				target = filepath.Join(resolved, target)
			}
			rest := filepath.Join(append([]string{target}, parts[i+1:]...)...)
			return m.walk(rest, follow, hops+1)
		}
		node = child
		resolved = next
	}
	return node, resolved, nil
}

var syscallNotDir = errors.New("not a directory")

// parent resolves the directory that holds path and the final name.
func (m *MemoryFS) parent(path string) (*fileNode, string, error) {
	path = clean(path)
	dir, _, err := m.lookup(filepath.Dir(path), true)
	if err != nil {
		return nil, "", err
	}
	if !dir.isDir() {
		return nil, "", syscallNotDir
	}
	return dir, filepath.Base(path), nil
}

func pathErr(op Op, path string, err error) error {
	return &fs.PathError{Op: string(op), Path: path, Err: err}
}

// Stat returns file info, following symlinks
func (m *MemoryFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpStat, name); err != nil {
		return nil, err
	}
	node, _, err := m.lookup(name, true)
	if err != nil {
		return nil, pathErr(OpStat, name, err)
	}
	return &fileInfo{node: node, name: filepath.Base(clean(name))}, nil
}

// Lstat returns file info without following a final symlink
func (m *MemoryFS) Lstat(name string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpLstat, name); err != nil {
		return nil, err
	}
	node, _, err := m.lookup(name, false)
	if err != nil {
		return nil, pathErr(OpLstat, name, err)
	}
	return &fileInfo{node: node, name: filepath.Base(clean(name))}, nil
}

// ReadFile reads the entire file content, following symlinks
func (m *MemoryFS) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpReadFile, name); err != nil {
		return nil, err
	}
	node, _, err := m.lookup(name, true)
	if err != nil {
		return nil, pathErr(OpReadFile, name, err)
	}
	if node.isDir() {
		return nil, pathErr(OpReadFile, name, errors.New("is a directory"))
	}

	// Return a copy to prevent mutation
	content := make([]byte, len(node.content))
	copy(content, node.content)
	return content, nil
}

// WriteFile writes data to a file. The parent directory must exist.
func (m *MemoryFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpWrite, name); err != nil {
		return err
	}
	dir, base, err := m.parent(name)
	if err != nil {
		return pathErr(OpWrite, name, err)
	}
	if existing, ok := dir.children[base]; ok && existing.isDir() {
		return pathErr(OpWrite, name, errors.New("is a directory"))
	}

	node := &fileNode{
		mode:    perm.Perm(),
		modTime: time.Now(),
		content: make([]byte, len(data)),
	}
	copy(node.content, data)
	dir.children[base] = node
	return nil
}

// MkdirAll creates a directory and all necessary parents
func (m *MemoryFS) MkdirAll(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpMkdir, path); err != nil {
		return err
	}

	current := "/"
	for _, part := range split(path) {
		current = filepath.Join(current, part)
		node, _, err := m.lookup(current, true)
		switch {
		case err == nil && node.isDir():
			continue
		case err == nil:
			return pathErr(OpMkdir, current, syscallNotDir)
		case !errors.Is(err, fs.ErrNotExist):
			return pathErr(OpMkdir, current, err)
		}
		dir, base, perr := m.parent(current)
		if perr != nil {
			return pathErr(OpMkdir, current, perr)
		}
		if existing, ok := dir.children[base]; ok && existing.isLink() {
			// dangling link in the way
			return pathErr(OpMkdir, current, fs.ErrExist)
		}
		dir.children[base] = newDir(perm.Perm())
	}
	return nil
}

// ReadDir returns directory entries sorted by name, like os.ReadDir
func (m *MemoryFS) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpReadDir, name); err != nil {
		return nil, err
	}
	node, _, err := m.lookup(name, true)
	if err != nil {
		return nil, pathErr(OpReadDir, name, err)
	}
	if !node.isDir() {
		return nil, pathErr(OpReadDir, name, syscallNotDir)
	}

	entries := make([]fs.DirEntry, 0, len(node.children))
	for childName, child := range node.children {
		entries = append(entries, fs.FileInfoToDirEntry(&fileInfo{node: child, name: childName}))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// Symlink creates newname as a symbolic link to oldname. The link target is
// stored verbatim and resolved relative to the link's directory.
func (m *MemoryFS) Symlink(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpSymlink, newname); err != nil {
		return err
	}
	dir, base, err := m.parent(newname)
	if err != nil {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: err}
	}
	if _, exists := dir.children[base]; exists {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: fs.ErrExist}
	}

	dir.children[base] = &fileNode{
		mode:     0777 | os.ModeSymlink,
		modTime:  time.Now(),
		linkDest: oldname,
	}
	return nil
}

// Readlink returns the destination of a symbolic link
func (m *MemoryFS) Readlink(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpReadlink, name); err != nil {
		return "", err
	}
	node, _, err := m.lookup(name, false)
	if err != nil {
		return "", pathErr(OpReadlink, name, err)
	}
	if !node.isLink() {
		return "", pathErr(OpReadlink, name, fs.ErrInvalid)
	}
	return node.linkDest, nil
}

// Rename moves oldpath to newpath, replacing a non-directory at newpath.
// Symlinks are moved as links.
func (m *MemoryFS) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpRename, oldpath, newpath); err != nil {
		return err
	}
	srcDir, srcBase, err := m.parent(oldpath)
	if err != nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: err}
	}
	node, ok := srcDir.children[srcBase]
	if !ok {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrNotExist}
	}
	dstDir, dstBase, err := m.parent(newpath)
	if err != nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: err}
	}
	if existing, ok := dstDir.children[dstBase]; ok && existing.isDir() {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrExist}
	}

	delete(srcDir.children, srcBase)
	dstDir.children[dstBase] = node
	return nil
}

// Remove removes a file, symlink or empty directory
func (m *MemoryFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpRemove, name); err != nil {
		return err
	}
	dir, base, err := m.parent(name)
	if err != nil {
		return pathErr(OpRemove, name, err)
	}
	node, ok := dir.children[base]
	if !ok {
		return pathErr(OpRemove, name, fs.ErrNotExist)
	}
	if node.isDir() && len(node.children) > 0 {
		return pathErr(OpRemove, name, errors.New("directory not empty"))
	}
	delete(dir.children, base)
	return nil
}

// fileInfo implements fs.FileInfo
type fileInfo struct {
	node *fileNode
	name string
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return int64(len(fi.node.content)) }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.node.mode }
func (fi *fileInfo) ModTime() time.Time { return fi.node.modTime }
func (fi *fileInfo) IsDir() bool        { return fi.node.isDir() }
func (fi *fileInfo) Sys() interface{}   { return nil }
