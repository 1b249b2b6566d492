package workspace

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/abdullathedruid/devbox/internal/backend"
	"github.com/go-errors/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrStaleNode is returned for operations on a node that is no longer in the tree.
	ErrStaleNode = errors.New("node is no longer in the tree")

	// ErrCanceled is returned when the user declines a confirmation.
	ErrCanceled = errors.New("canceled")

	// ErrInvalidName is returned for empty names or names containing a separator.
	ErrInvalidName = errors.New("invalid name")
)

// Kind selects what Create makes.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// FileOpened is emitted when a leaf is selected and its content has arrived.
type FileOpened struct {
	Path     string
	Content  string
	Language string
}

// Backend is the subset of the file API the tree needs.
type Backend interface {
	List(ctx context.Context, dir string) ([]backend.Entry, error)
	Read(ctx context.Context, path string) (string, error)
	CreateFile(ctx context.Context, path string) error
	CreateFolder(ctx context.Context, path string) error
	Rename(ctx context.Context, oldPath, newPath string) error
	Delete(ctx context.Context, path string) error
}

// Confirmer asks the user a yes/no question. It may block until answered.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Callbacks notify the owner of tree events. All are optional and are
// invoked without the manager's lock held.
type Callbacks struct {
	OnFileOpened  func(FileOpened)
	OnChange      func()
	OnPathMoved   func(oldPath, newPath string)
	OnPathRemoved func(path string)
}

// Manager owns the tree, the selection and the current directory. Callers
// address nodes by key and receive snapshots; nodes themselves never leave
// the manager.
type Manager struct {
	backend   Backend
	confirmer Confirmer
	cb        Callbacks

	// opMu serializes create, rename and delete including their refresh.
	opMu sync.Mutex

	mu            sync.Mutex
	root          *node
	selected      *node
	currentPath   string
	selectGen     uint64
	seq           uint64
	initialOpened bool
}

// NewManager creates a manager with an unloaded root.
func NewManager(b Backend, c Confirmer, cb Callbacks) *Manager {
	return &Manager{
		backend:   b,
		confirmer: c,
		cb:        cb,
		root:      &node{expanded: true},
	}
}

// newKey returns a key unique to this manager. Callers hold mu.
func (m *Manager) newKey(path string) string {
	m.seq++
	return NormalizePath(path) + "#" + strconv.FormatUint(m.seq, 10)
}

// resolve finds an attached node by key. Callers hold mu.
func (m *Manager) resolve(key string) (*node, error) {
	n := findByKey(m.root.children, key)
	if n == nil || !m.attached(n) {
		return nil, ErrStaleNode
	}
	return n, nil
}

// Mounted reports whether the root listing has resolved.
func (m *Manager) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.root.loaded
}

// Selected returns the selected node.
func (m *Manager) Selected() (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == nil {
		return Info{}, false
	}
	return m.selected.info(), true
}

// CurrentPath returns the directory new items are created relative to when a
// directory was last selected. The root is "".
func (m *Manager) CurrentPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentPath
}

// Rows returns the visible lines of the tree in display order.
func (m *Manager) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return flatten(m.root.children, 0, nil)
}

// Lookup returns the loaded node with key.
func (m *Manager) Lookup(key string) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.resolve(key)
	if err != nil {
		return Info{}, false
	}
	return n.info(), true
}

// ListDirectory fetches one level of dir. The tree is not touched.
func (m *Manager) ListDirectory(ctx context.Context, dir string) ([]backend.Entry, error) {
	return m.backend.List(ctx, dir)
}

// Mount loads the root listing. The first successful mount with nothing
// selected opens the first leaf found depth-first among loaded nodes.
func (m *Manager) Mount(ctx context.Context) error {
	entries, err := m.backend.List(ctx, "")
	if err != nil {
		log.Warn().Err(err).Msg("list root failed")
		return err
	}

	m.mu.Lock()
	setChildren(m.root, entries, m.newKey)
	var first, path string
	if !m.initialOpened && m.currentPath == "" && m.selected == nil {
		m.initialOpened = true
		if leaf := firstLeaf(m.root.children); leaf != nil {
			first, path = leaf.key, leaf.path
		}
	}
	m.mu.Unlock()
	m.changed()

	if first != "" {
		log.Debug().Str("path", path).Msg("opening first file")
		return m.Select(ctx, first)
	}
	return nil
}

// Expand loads an unloaded directory and marks it expanded. Leaves and
// already loaded directories cost no request.
func (m *Manager) Expand(ctx context.Context, key string) error {
	m.mu.Lock()
	n, err := m.resolve(key)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if n.isLeaf {
		m.mu.Unlock()
		return nil
	}
	wasExpanded := n.expanded
	n.expanded = true
	if n.loaded || n.loading {
		m.mu.Unlock()
		m.changed()
		return nil
	}
	n.loading = true
	path := n.path
	m.mu.Unlock()

	entries, err := m.backend.List(ctx, path)

	m.mu.Lock()
	n.loading = false
	if err != nil {
		n.expanded = wasExpanded
		m.mu.Unlock()
		log.Warn().Err(err).Str("path", path).Msg("expand failed")
		return err
	}
	if !m.attached(n) {
		m.mu.Unlock()
		return ErrStaleNode
	}
	setChildren(n, entries, m.newKey)
	m.mu.Unlock()
	m.changed()
	return nil
}

// Collapse hides a directory's children without discarding them.
func (m *Manager) Collapse(key string) error {
	m.mu.Lock()
	n, err := m.resolve(key)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	n.expanded = false
	m.mu.Unlock()
	m.changed()
	return nil
}

// Invalidate returns a directory to unloaded so the next Expand lists it
// again. Its loaded subtree is dropped; a selection inside it is cleared.
func (m *Manager) Invalidate(key string) error {
	m.mu.Lock()
	n, err := m.resolve(key)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if n.isLeaf {
		m.mu.Unlock()
		return nil
	}
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
	n.loaded = false
	n.expanded = false
	if m.selected != nil && !m.attached(m.selected) {
		m.selected = nil
	}
	path := n.path
	m.mu.Unlock()
	log.Debug().Str("path", path).Msg("invalidated")
	m.changed()
	return nil
}

// Select makes the node with key active. A leaf is read and announced through
// OnFileOpened; a directory is always re-listed and becomes the current path.
func (m *Manager) Select(ctx context.Context, key string) error {
	m.mu.Lock()
	n, err := m.resolve(key)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.selected = n
	m.selectGen++
	gen := m.selectGen
	path := n.path
	leaf := n.isLeaf
	if !leaf {
		m.currentPath = path
	}
	m.mu.Unlock()
	m.changed()

	if leaf {
		return m.open(ctx, n, path, gen)
	}
	return m.refresh(ctx, n, path)
}

func (m *Manager) open(ctx context.Context, n *node, path string, gen uint64) error {
	content, err := m.backend.Read(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("read failed")
		return err
	}

	m.mu.Lock()
	current := m.selectGen == gen && m.selected == n
	m.mu.Unlock()
	if !current {
		log.Debug().Str("path", path).Msg("discarding read for superseded selection")
		return nil
	}

	if m.cb.OnFileOpened != nil {
		m.cb.OnFileOpened(FileOpened{Path: path, Content: content, Language: LanguageHint(path)})
	}
	return nil
}

// refresh re-lists dir unconditionally and marks it expanded.
func (m *Manager) refresh(ctx context.Context, dir *node, path string) error {
	entries, err := m.backend.List(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("list failed")
		return err
	}

	m.mu.Lock()
	if dir != m.root && !m.attached(dir) {
		m.mu.Unlock()
		return ErrStaleNode
	}
	setChildren(dir, entries, m.newKey)
	dir.expanded = true
	if m.selected != nil && !m.attached(m.selected) {
		m.selected = nil
	}
	m.mu.Unlock()
	m.changed()
	return nil
}

// Refresh re-lists the root, keeping loaded subtrees that still exist.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.Mount(ctx)
}

// targetDir resolves where Create puts new items: beside a selected leaf,
// inside a selected directory, or at the root. Callers hold mu.
func (m *Manager) targetDir() *node {
	switch {
	case m.selected == nil || !m.attached(m.selected):
		return m.root
	case m.selected.isLeaf:
		return m.selected.parent
	default:
		return m.selected
	}
}

// TargetDir returns the directory path Create would use now.
func (m *Manager) TargetDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targetDir().path
}

// Create makes a file or folder named name in the target directory, then
// re-lists that directory. Nothing is inserted before the backend confirms.
func (m *Manager) Create(ctx context.Context, kind Kind, name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	dir := m.targetDir()
	dirPath := dir.path
	m.mu.Unlock()
	path := ChildPath(dirPath, name)

	var err error
	if kind == KindFolder {
		err = m.backend.CreateFolder(ctx, path)
	} else {
		err = m.backend.CreateFile(ctx, path)
	}
	if err != nil {
		log.Warn().Err(err).Str("path", path).Str("kind", kind.String()).Msg("create failed")
		return "", err
	}
	log.Info().Str("path", path).Str("kind", kind.String()).Msg("created")

	return path, m.refresh(ctx, dir, dirPath)
}

// Rename changes the final segment of the node's path and returns the new
// path. On success the node keeps its identity and key; name and paths of
// the node and its loaded descendants are updated in place.
func (m *Manager) Rename(ctx context.Context, key, newName string) (string, error) {
	if err := validName(newName); err != nil {
		return "", err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	n, err := m.resolve(key)
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	oldPath := n.path
	m.mu.Unlock()

	newPath := RenamedPath(oldPath, newName)
	if newPath == oldPath {
		return oldPath, nil
	}

	if err := m.backend.Rename(ctx, oldPath, newPath); err != nil {
		log.Warn().Err(err).Str("from", oldPath).Str("to", newPath).Msg("rename failed")
		return "", err
	}
	log.Info().Str("from", oldPath).Str("to", newPath).Msg("renamed")

	m.mu.Lock()
	n.name = newName
	n.path = newPath
	rebase(n, oldPath, newPath)
	if under(m.currentPath, oldPath) {
		m.currentPath = newPath + m.currentPath[len(oldPath):]
	}
	m.mu.Unlock()

	if m.cb.OnPathMoved != nil {
		m.cb.OnPathMoved(oldPath, newPath)
	}
	m.changed()
	return newPath, nil
}

// Delete removes the node after the confirmer agrees. The node leaves the
// tree only once the backend confirms; on failure the tree is unchanged.
func (m *Manager) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	n, err := m.resolve(key)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	prompt := "Delete " + n.name + "?"
	if !n.isLeaf {
		prompt = "Delete folder " + n.name + " and everything in it?"
	}
	m.mu.Unlock()

	if m.confirmer == nil || !m.confirmer.Confirm(ctx, prompt) {
		return ErrCanceled
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if !m.attached(n) {
		m.mu.Unlock()
		return ErrStaleNode
	}
	path := n.path
	m.mu.Unlock()

	if err := m.backend.Delete(ctx, path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("delete failed")
		return err
	}
	log.Info().Str("path", path).Msg("deleted")

	m.mu.Lock()
	parent := n.parent
	if parent != nil {
		removeChild(parent, n)
	}
	if m.selected != nil && contains(n, m.selected) {
		m.selected = nil
	}
	if under(m.currentPath, path) {
		m.currentPath = ""
		if parent != nil {
			m.currentPath = parent.path
		}
	}
	m.mu.Unlock()

	if m.cb.OnPathRemoved != nil {
		m.cb.OnPathRemoved(path)
	}
	m.changed()
	return nil
}

// under reports whether p is dir or lies inside it.
func under(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+"/") || strings.HasPrefix(p, dir+`\`)
}

// attached reports whether n is reachable from the root. Callers hold mu.
func (m *Manager) attached(n *node) bool {
	if n == nil {
		return false
	}
	top := n
	for top.parent != nil {
		top = top.parent
	}
	return top == m.root && n != m.root
}

func (m *Manager) changed() {
	if m.cb.OnChange != nil {
		m.cb.OnChange()
	}
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
