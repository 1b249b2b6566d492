package workspace

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abdullathedruid/devbox/internal/backend"
)

// fakeBackend is an in-memory filesystem keyed by slash paths.
type fakeBackend struct {
	mu      sync.Mutex
	dirs    map[string]bool
	files   map[string]string
	calls   map[string]int
	failOps map[string]error

	// readGate, when set for a path, blocks Read until closed.
	readGate map[string]chan struct{}
}

func newFakeBackend(paths ...string) *fakeBackend {
	f := &fakeBackend{
		dirs:     map[string]bool{},
		files:    map[string]string{},
		calls:    map[string]int{},
		failOps:  map[string]error{},
		readGate: map[string]chan struct{}{},
	}
	for _, p := range paths {
		if strings.HasSuffix(p, "/") {
			f.dirs[strings.TrimSuffix(p, "/")] = true
		} else {
			f.files[p] = "content of " + p
		}
	}
	return f
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) begin(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.failOps[op]
}

func (f *fakeBackend) List(ctx context.Context, dir string) ([]backend.Entry, error) {
	if err := f.begin("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []backend.Entry
	for d := range f.dirs {
		if ParentPath(d) == dir {
			out = append(out, backend.Entry{Name: d[strings.LastIndex(d, "/")+1:], IsDirectory: true, Path: d})
		}
	}
	for p := range f.files {
		if ParentPath(p) == dir {
			out = append(out, backend.Entry{Name: p[strings.LastIndex(p, "/")+1:], Path: p})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDirectory != out[j].IsDirectory {
			return out[i].IsDirectory
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (f *fakeBackend) Read(ctx context.Context, path string) (string, error) {
	if err := f.begin("read"); err != nil {
		return "", err
	}
	f.mu.Lock()
	gate := f.readGate[path]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[path], nil
}

func (f *fakeBackend) CreateFile(ctx context.Context, path string) error {
	if err := f.begin("createFile"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = ""
	return nil
}

func (f *fakeBackend) CreateFolder(ctx context.Context, path string) error {
	if err := f.begin("createFolder"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path] = true
	return nil
}

func (f *fakeBackend) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := f.begin("rename"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.files[oldPath]; ok {
		delete(f.files, oldPath)
		f.files[newPath] = c
	}
	if f.dirs[oldPath] {
		delete(f.dirs, oldPath)
		f.dirs[newPath] = true
	}
	return nil
}

func (f *fakeBackend) Delete(ctx context.Context, path string) error {
	if err := f.begin("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	delete(f.dirs, path)
	return nil
}

type recorder struct {
	mu      sync.Mutex
	opened  []FileOpened
	moved   [][2]string
	removed []string
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnFileOpened: func(e FileOpened) {
			r.mu.Lock()
			r.opened = append(r.opened, e)
			r.mu.Unlock()
		},
		OnPathMoved: func(o, n string) {
			r.mu.Lock()
			r.moved = append(r.moved, [2]string{o, n})
			r.mu.Unlock()
		},
		OnPathRemoved: func(p string) {
			r.mu.Lock()
			r.removed = append(r.removed, p)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) openedPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.opened {
		out = append(out, e.Path)
	}
	return out
}

func always(answer bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) bool { return answer })
}

func mounted(t *testing.T, fb *fakeBackend, c Confirmer) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := NewManager(fb, c, rec.callbacks())
	if err := m.Mount(context.Background()); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return m, rec
}

// keyOf returns the key of the loaded node currently at path.
func keyOf(t *testing.T, m *Manager, path string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	var walk func([]*node) *node
	walk = func(nodes []*node) *node {
		for _, n := range nodes {
			if n.path == path {
				return n
			}
			if found := walk(n.children); found != nil {
				return found
			}
		}
		return nil
	}
	n := walk(m.root.children)
	if n == nil {
		t.Fatalf("no node at %q", path)
	}
	return n.key
}

func lookup(t *testing.T, m *Manager, key string) Info {
	t.Helper()
	info, ok := m.Lookup(key)
	if !ok {
		t.Fatalf("Lookup(%q) found nothing", key)
	}
	return info
}

func childCount(m *Manager, key string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := findByKey(m.root.children, key)
	if n == nil || n.children == nil {
		return 0, false
	}
	return len(n.children), true
}

func hasPath(m *Manager, path string) bool {
	for _, r := range m.Rows() {
		if r.Path == path {
			return true
		}
	}
	return false
}

func TestMount_OpensFirstLeafOnce(t *testing.T) {
	fb := newFakeBackend("src/", "README.md", "main.go")
	m, rec := mounted(t, fb, nil)

	if got := rec.openedPaths(); len(got) != 1 || got[0] != "README.md" {
		t.Fatalf("opened = %v, want [README.md]", got)
	}
	if sel, ok := m.Selected(); !ok || sel.Path != "README.md" {
		t.Errorf("Selected() = %+v, %v", sel, ok)
	}

	// Remount: no second auto-open.
	if err := m.Mount(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := rec.openedPaths(); len(got) != 1 {
		t.Errorf("opened after remount = %v, want one entry", got)
	}
}

func TestMount_NoLeafAtRoot(t *testing.T) {
	fb := newFakeBackend("a/", "a/inner.go")
	_, rec := mounted(t, fb, nil)

	// a/ is not loaded yet, so nothing is found.
	if got := rec.openedPaths(); len(got) != 0 {
		t.Errorf("opened = %v, want none", got)
	}
}

func TestMount_SkipsAutoOpenWhenDirectoryChosen(t *testing.T) {
	fb := newFakeBackend("a/", "b.txt")
	rec := &recorder{}
	m := NewManager(fb, nil, rec.callbacks())

	m.mu.Lock()
	m.currentPath = "a"
	m.mu.Unlock()

	if err := m.Mount(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := rec.openedPaths(); len(got) != 0 {
		t.Errorf("opened = %v, want none when current path is set", got)
	}
}

func TestMount_FailureLeavesTreeEmpty(t *testing.T) {
	fb := newFakeBackend("a.txt")
	fb.failOps["list"] = errors.New("boom")
	m := NewManager(fb, nil, Callbacks{})

	if err := m.Mount(context.Background()); err == nil {
		t.Fatal("Mount() expected error")
	}
	if m.Mounted() || len(m.Rows()) != 0 {
		t.Error("root should stay unloaded after a failed listing")
	}

	// A later successful mount still performs the initial open.
	delete(fb.failOps, "list")
	rec := &recorder{}
	m.cb = rec.callbacks()
	if err := m.Mount(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := rec.openedPaths(); len(got) != 1 {
		t.Errorf("opened = %v after recovery", got)
	}
}

func TestExpand(t *testing.T) {
	fb := newFakeBackend("pkg/", "pkg/a.go", "pkg/b.go", "z.txt")
	m, _ := mounted(t, fb, nil)
	ctx := context.Background()

	before := fb.count("list")
	if err := m.Expand(ctx, keyOf(t, m, "z.txt")); err != nil {
		t.Fatal(err)
	}
	if fb.count("list") != before {
		t.Error("expanding a leaf issued a request")
	}

	dir := keyOf(t, m, "pkg")
	if lookup(t, m, dir).Loaded {
		t.Fatal("pkg should start unloaded")
	}
	if err := m.Expand(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if fb.count("list") != before+1 {
		t.Errorf("list calls = %d, want %d", fb.count("list"), before+1)
	}
	if n, loaded := childCount(m, dir); !loaded || n != 2 {
		t.Fatalf("pkg children = %d, loaded = %v", n, loaded)
	}

	if err := m.Expand(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if fb.count("list") != before+1 {
		t.Error("expanding a loaded directory issued a request")
	}
}

func TestExpand_EmptyDirectoryIsLoaded(t *testing.T) {
	fb := newFakeBackend("empty/", "x.txt")
	m, _ := mounted(t, fb, nil)

	dir := keyOf(t, m, "empty")
	if err := m.Expand(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	if n, loaded := childCount(m, dir); !loaded || n != 0 {
		t.Errorf("empty dir: loaded=%v children=%d", loaded, n)
	}
}

func TestExpand_FailureKeepsPriorState(t *testing.T) {
	ctx := context.Background()

	t.Run("collapsed stays collapsed", func(t *testing.T) {
		fb := newFakeBackend("pkg/", "pkg/a.go")
		m, _ := mounted(t, fb, nil)
		dir := keyOf(t, m, "pkg")

		fb.failOps["list"] = errors.New("offline")
		if err := m.Expand(ctx, dir); err == nil {
			t.Fatal("Expand() expected error")
		}
		if info := lookup(t, m, dir); info.Loaded || info.Expanded {
			t.Errorf("failed expand changed the directory: %+v", info)
		}
	})

	t.Run("expanded stays expanded", func(t *testing.T) {
		fb := newFakeBackend("pkg/", "pkg/a.go")
		m, _ := mounted(t, fb, nil)
		dir := keyOf(t, m, "pkg")
		if err := m.Expand(ctx, dir); err != nil {
			t.Fatal(err)
		}
		if err := m.Invalidate(dir); err != nil {
			t.Fatal(err)
		}
		// Expanded without children, as a failed reload would leave it.
		m.mu.Lock()
		findByKey(m.root.children, dir).expanded = true
		m.mu.Unlock()

		fb.failOps["list"] = errors.New("offline")
		if err := m.Expand(ctx, dir); err == nil {
			t.Fatal("Expand() expected error")
		}
		if info := lookup(t, m, dir); !info.Expanded || info.Loaded {
			t.Errorf("failed expand changed the directory: %+v", info)
		}
	})
}

func TestInvalidate(t *testing.T) {
	fb := newFakeBackend("pkg/", "pkg/a.go", "x.txt")
	m, _ := mounted(t, fb, nil)
	ctx := context.Background()

	dir := keyOf(t, m, "pkg")
	if err := m.Expand(ctx, dir); err != nil {
		t.Fatal(err)
	}
	child := keyOf(t, m, "pkg/a.go")
	if err := m.Select(ctx, child); err != nil {
		t.Fatal(err)
	}

	if err := m.Invalidate(dir); err != nil {
		t.Fatal(err)
	}
	if info := lookup(t, m, dir); info.Loaded || info.Expanded {
		t.Errorf("after Invalidate: %+v", info)
	}
	if _, ok := m.Selected(); ok {
		t.Error("selection inside an invalidated directory should clear")
	}
	if _, ok := m.Lookup(child); ok {
		t.Error("children of an invalidated directory still resolve")
	}

	before := fb.count("list")
	if err := m.Expand(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if got := fb.count("list") - before; got != 1 {
		t.Errorf("Expand after Invalidate issued %d lists, want 1", got)
	}
	if err := m.Expand(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if got := fb.count("list") - before; got != 1 {
		t.Errorf("second Expand issued %d lists in total, want 1", got)
	}

	if err := m.Invalidate(child); !errors.Is(err, ErrStaleNode) {
		t.Errorf("Invalidate(detached) = %v, want ErrStaleNode", err)
	}
}

func TestSelect_DirectoryAlwaysRelists(t *testing.T) {
	fb := newFakeBackend("pkg/", "pkg/a.go")
	m, _ := mounted(t, fb, nil)
	ctx := context.Background()
	dir := keyOf(t, m, "pkg")

	if err := m.Expand(ctx, dir); err != nil {
		t.Fatal(err)
	}
	fb.mu.Lock()
	fb.files["pkg/new.go"] = ""
	fb.mu.Unlock()

	before := fb.count("list")
	if err := m.Select(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if fb.count("list") != before+1 {
		t.Error("selecting a loaded directory should re-list it")
	}
	if n, _ := childCount(m, dir); n != 2 {
		t.Errorf("children = %d, want 2 after re-list", n)
	}
	if m.CurrentPath() != "pkg" {
		t.Errorf("CurrentPath() = %q, want pkg", m.CurrentPath())
	}
}

func TestSelect_LeafEmitsFileOpened(t *testing.T) {
	fb := newFakeBackend("a/", "a/Makefile", "a/main.rs", "b.txt")
	m, rec := mounted(t, fb, nil)
	ctx := context.Background()

	if err := m.Expand(ctx, keyOf(t, m, "a")); err != nil {
		t.Fatal(err)
	}
	if err := m.Select(ctx, keyOf(t, m, "a/main.rs")); err != nil {
		t.Fatal(err)
	}
	if err := m.Select(ctx, keyOf(t, m, "a/Makefile")); err != nil {
		t.Fatal(err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.opened) != 3 {
		t.Fatalf("opened %d files, want 3", len(rec.opened))
	}
	got := rec.opened[1]
	if got.Path != "a/main.rs" || got.Language != "rs" || got.Content != "content of a/main.rs" {
		t.Errorf("FileOpened = %+v", got)
	}
	if rec.opened[2].Language != "txt" {
		t.Errorf("Makefile language = %q, want txt", rec.opened[2].Language)
	}
}

func TestSelect_SupersededReadIsDropped(t *testing.T) {
	fb := newFakeBackend("dir/", "one.txt", "two.txt")
	m, rec := mounted(t, fb, nil)
	ctx := context.Background()

	gate := make(chan struct{})
	fb.mu.Lock()
	fb.readGate["one.txt"] = gate
	fb.mu.Unlock()

	one, two := keyOf(t, m, "one.txt"), keyOf(t, m, "two.txt")
	done := make(chan error, 1)
	go func() { done <- m.Select(ctx, one) }()

	// Wait until the slow read is in flight.
	deadline := time.Now().Add(2 * time.Second)
	for fb.count("read") < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := m.Select(ctx, two); err != nil {
		t.Fatal(err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	got := rec.openedPaths()
	if got[len(got)-1] != "two.txt" {
		t.Errorf("last opened = %v, want two.txt to win", got)
	}
	for _, p := range got[1:] {
		if p == "one.txt" {
			t.Errorf("superseded read was delivered: %v", got)
		}
	}
}

func TestCreate_TargetDirectory(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing selected goes to root", func(t *testing.T) {
		fb := newFakeBackend("src/")
		m, _ := mounted(t, fb, nil)
		if got := m.TargetDir(); got != "" {
			t.Errorf("TargetDir() = %q, want root", got)
		}
		path, err := m.Create(ctx, KindFile, "new.go")
		if err != nil {
			t.Fatal(err)
		}
		if path != "new.go" {
			t.Errorf("path = %q, want new.go", path)
		}
		if !hasPath(m, "new.go") {
			t.Error("new.go not in tree after re-list")
		}
	})

	t.Run("selected leaf uses its parent", func(t *testing.T) {
		fb := newFakeBackend("src/", "src/a.go")
		m, _ := mounted(t, fb, nil)
		if err := m.Expand(ctx, keyOf(t, m, "src")); err != nil {
			t.Fatal(err)
		}
		if err := m.Select(ctx, keyOf(t, m, "src/a.go")); err != nil {
			t.Fatal(err)
		}
		if got := m.TargetDir(); got != "src" {
			t.Errorf("TargetDir() = %q, want src", got)
		}
		path, err := m.Create(ctx, KindFolder, "sub")
		if err != nil {
			t.Fatal(err)
		}
		if path != "src/sub" {
			t.Errorf("path = %q, want src/sub", path)
		}
		if info := lookup(t, m, keyOf(t, m, "src/sub")); info.IsLeaf {
			t.Errorf("src/sub node = %+v", info)
		}
	})

	t.Run("selected directory is the target", func(t *testing.T) {
		fb := newFakeBackend("src/", "x.txt")
		m, _ := mounted(t, fb, nil)
		if err := m.Select(ctx, keyOf(t, m, "src")); err != nil {
			t.Fatal(err)
		}
		path, err := m.Create(ctx, KindFile, "b.go")
		if err != nil {
			t.Fatal(err)
		}
		if path != "src/b.go" || !hasPath(m, "src/b.go") {
			t.Errorf("path = %q, in tree = %v", path, hasPath(m, "src/b.go"))
		}
	})
}

func TestCreate_NotOptimistic(t *testing.T) {
	fb := newFakeBackend("src/")
	m, _ := mounted(t, fb, nil)
	fb.failOps["createFile"] = errors.New("disk full")

	before := len(m.Rows())
	if _, err := m.Create(context.Background(), KindFile, "new.go"); err == nil {
		t.Fatal("Create() expected error")
	}
	if len(m.Rows()) != before || hasPath(m, "new.go") {
		t.Error("failed create changed the tree")
	}
}

func TestCreate_InvalidName(t *testing.T) {
	fb := newFakeBackend()
	m, _ := mounted(t, fb, nil)
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := m.Create(context.Background(), KindFile, name)
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("Create(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
	if fb.count("createFile") != 0 {
		t.Error("invalid names reached the backend")
	}
}

func TestRename_TrailingSegmentOnly(t *testing.T) {
	fb := newFakeBackend("src/", "src/src.go", "src/lib/", "src/lib/x.go")
	m, rec := mounted(t, fb, nil)
	ctx := context.Background()

	src := keyOf(t, m, "src")
	if err := m.Expand(ctx, src); err != nil {
		t.Fatal(err)
	}
	file := keyOf(t, m, "src/src.go")
	newPath, err := m.Rename(ctx, file, "main.go")
	if err != nil {
		t.Fatal(err)
	}
	if newPath != "src/main.go" {
		t.Errorf("Rename() = %q, want src/main.go", newPath)
	}

	info := lookup(t, m, file)
	if info.Path != "src/main.go" || info.Name != "main.go" {
		t.Errorf("renamed node = %+v", info)
	}
	if info.Key != file {
		t.Errorf("Key changed to %q", info.Key)
	}
	fb.mu.Lock()
	_, onDisk := fb.files["src/main.go"]
	fb.mu.Unlock()
	if !onDisk {
		t.Error("backend did not receive the trailing-segment path")
	}
	rec.mu.Lock()
	if len(rec.moved) != 1 || rec.moved[0] != [2]string{"src/src.go", "src/main.go"} {
		t.Errorf("moved = %v", rec.moved)
	}
	rec.mu.Unlock()

	// A later re-list keeps the renamed node's identity.
	if err := m.Select(ctx, src); err != nil {
		t.Fatal(err)
	}
	if got := keyOf(t, m, "src/main.go"); got != file {
		t.Errorf("renamed node replaced after re-list: key %q, want %q", got, file)
	}
}

func TestRename_DirectoryRebasesDescendants(t *testing.T) {
	fb := newFakeBackend("lib/", "lib/a.go")
	m, _ := mounted(t, fb, nil)
	ctx := context.Background()

	dir := keyOf(t, m, "lib")
	if err := m.Select(ctx, dir); err != nil {
		t.Fatal(err)
	}
	child := keyOf(t, m, "lib/a.go")

	if _, err := m.Rename(ctx, dir, "pkg"); err != nil {
		t.Fatal(err)
	}
	if got := lookup(t, m, child).Path; got != "pkg/a.go" {
		t.Errorf("child path = %q, want pkg/a.go", got)
	}
	if m.CurrentPath() != "pkg" {
		t.Errorf("CurrentPath() = %q, want pkg", m.CurrentPath())
	}
}

func TestRename_FailureLeavesNode(t *testing.T) {
	fb := newFakeBackend("a.txt")
	m, _ := mounted(t, fb, nil)
	fb.failOps["rename"] = errors.New("denied")

	key := keyOf(t, m, "a.txt")
	if _, err := m.Rename(context.Background(), key, "b.txt"); err == nil {
		t.Fatal("Rename() expected error")
	}
	if info := lookup(t, m, key); info.Name != "a.txt" || info.Path != "a.txt" {
		t.Errorf("node changed after failed rename: %+v", info)
	}
}

func TestKeysStayUniqueAfterRename(t *testing.T) {
	fb := newFakeBackend("a.txt")
	m, _ := mounted(t, fb, nil)
	ctx := context.Background()

	renamed := keyOf(t, m, "a.txt")
	if _, err := m.Rename(ctx, renamed, "b.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create(ctx, KindFile, "a.txt"); err != nil {
		t.Fatal(err)
	}

	seen := map[string]string{}
	for _, r := range m.Rows() {
		if other, dup := seen[r.Key]; dup {
			t.Fatalf("key %q shared by %s and %s", r.Key, other, r.Path)
		}
		seen[r.Key] = r.Path
	}
	if got := lookup(t, m, renamed).Path; got != "b.txt" {
		t.Errorf("Lookup(renamed key) = %q, want b.txt", got)
	}
	if fresh := keyOf(t, m, "a.txt"); fresh == renamed {
		t.Error("new a.txt reused the renamed node's key")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("declined issues no request", func(t *testing.T) {
		fb := newFakeBackend("a.txt", "b.txt")
		m, _ := mounted(t, fb, always(false))
		err := m.Delete(ctx, keyOf(t, m, "b.txt"))
		if !errors.Is(err, ErrCanceled) {
			t.Errorf("Delete() error = %v, want ErrCanceled", err)
		}
		if fb.count("delete") != 0 {
			t.Error("declined delete reached the backend")
		}
		if !hasPath(m, "b.txt") {
			t.Error("declined delete removed the node")
		}
	})

	t.Run("confirmed removes by identity", func(t *testing.T) {
		fb := newFakeBackend("a.txt", "b.txt")
		m, rec := mounted(t, fb, always(true))
		key := keyOf(t, m, "a.txt")
		if err := m.Delete(ctx, key); err != nil {
			t.Fatal(err)
		}
		if _, ok := m.Lookup(key); ok || hasPath(m, "a.txt") {
			t.Error("node still present")
		}
		if _, ok := m.Selected(); ok {
			t.Error("selection should clear when the selected node is deleted")
		}
		rec.mu.Lock()
		defer rec.mu.Unlock()
		if len(rec.removed) != 1 || rec.removed[0] != "a.txt" {
			t.Errorf("removed = %v", rec.removed)
		}
	})

	t.Run("backend failure keeps the node", func(t *testing.T) {
		fb := newFakeBackend("a.txt")
		m, _ := mounted(t, fb, always(true))
		fb.failOps["delete"] = errors.New("busy")
		if err := m.Delete(ctx, keyOf(t, m, "a.txt")); err == nil {
			t.Fatal("Delete() expected error")
		}
		if !hasPath(m, "a.txt") {
			t.Error("failed delete removed the node")
		}
	})

	t.Run("nil confirmer refuses", func(t *testing.T) {
		fb := newFakeBackend("a.txt")
		m, _ := mounted(t, fb, nil)
		if err := m.Delete(ctx, keyOf(t, m, "a.txt")); !errors.Is(err, ErrCanceled) {
			t.Errorf("Delete() error = %v, want ErrCanceled", err)
		}
	})
}

func TestStaleNode(t *testing.T) {
	fb := newFakeBackend("a.txt", "dir/", "dir/x.go")
	m, _ := mounted(t, fb, always(true))
	ctx := context.Background()

	dir := keyOf(t, m, "dir")
	if err := m.Expand(ctx, dir); err != nil {
		t.Fatal(err)
	}
	child := keyOf(t, m, "dir/x.go")
	if err := m.Delete(ctx, dir); err != nil {
		t.Fatal(err)
	}

	calls := fb.count("rename") + fb.count("read") + fb.count("delete")
	if _, err := m.Rename(ctx, child, "y.go"); !errors.Is(err, ErrStaleNode) {
		t.Errorf("Rename(stale) = %v", err)
	}
	if err := m.Select(ctx, child); !errors.Is(err, ErrStaleNode) {
		t.Errorf("Select(stale) = %v", err)
	}
	if err := m.Delete(ctx, dir); !errors.Is(err, ErrStaleNode) {
		t.Errorf("Delete(stale) = %v", err)
	}
	if err := m.Expand(ctx, dir); !errors.Is(err, ErrStaleNode) {
		t.Errorf("Expand(stale) = %v", err)
	}
	if err := m.Collapse(dir); !errors.Is(err, ErrStaleNode) {
		t.Errorf("Collapse(stale) = %v", err)
	}
	if got := fb.count("rename") + fb.count("read") + fb.count("delete"); got != calls {
		t.Errorf("stale operations issued %d requests", got-calls)
	}
}

// TestSnapshotsDuringMutation reads snapshots while renames and re-lists
// run on other goroutines. Run with -race.
func TestSnapshotsDuringMutation(t *testing.T) {
	fb := newFakeBackend("a.txt", "dir/", "dir/x.go")
	m, _ := mounted(t, fb, nil)
	ctx := context.Background()
	key := keyOf(t, m, "a.txt")
	dir := keyOf(t, m, "dir")

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if sel, ok := m.Selected(); ok {
				_ = sel.Path + sel.Name
			}
			for _, r := range m.Rows() {
				_ = r.Path + r.Name + r.ParentKey
			}
			_ = m.TargetDir()
		}
	}()

	names := []string{"b.txt", "a.txt"}
	for i := 0; i < 20; i++ {
		if _, err := m.Rename(ctx, key, names[i%2]); err != nil {
			t.Fatal(err)
		}
		if err := m.Select(ctx, dir); err != nil {
			t.Fatal(err)
		}
		if err := m.Collapse(dir); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	<-readerDone

	if got := lookup(t, m, key).Path; got != "a.txt" {
		t.Errorf("final path = %q, want a.txt", got)
	}
}

// gatedBackend blocks CreateFile until released so overlap can be observed.
type gatedBackend struct {
	*fakeBackend
	release  chan struct{}
	inflight int
	maxSeen  int
	mu       sync.Mutex
}

func (g *gatedBackend) CreateFile(ctx context.Context, path string) error {
	g.mu.Lock()
	g.inflight++
	if g.inflight > g.maxSeen {
		g.maxSeen = g.inflight
	}
	g.mu.Unlock()
	<-g.release
	err := g.fakeBackend.CreateFile(ctx, path)
	g.mu.Lock()
	g.inflight--
	g.mu.Unlock()
	return err
}

func TestMutationsAreSerialized(t *testing.T) {
	gb := &gatedBackend{fakeBackend: newFakeBackend(), release: make(chan struct{})}
	m := NewManager(gb, nil, Callbacks{})
	if err := m.Mount(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for _, name := range []string{"a.go", "b.go", "c.go"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, err := m.Create(context.Background(), KindFile, name); err != nil {
				t.Errorf("Create(%s) = %v", name, err)
			}
		}(name)
	}
	for i := 0; i < 3; i++ {
		gb.release <- struct{}{}
	}
	wg.Wait()

	if gb.maxSeen != 1 {
		t.Errorf("max concurrent creates = %d, want 1", gb.maxSeen)
	}
	if len(m.Rows()) != 3 {
		t.Errorf("rows = %d, want 3", len(m.Rows()))
	}
}

func TestRowsFollowExpansion(t *testing.T) {
	fb := newFakeBackend("d/", "d/inner.txt", "top.txt")
	m, _ := mounted(t, fb, nil)
	ctx := context.Background()

	if got := len(m.Rows()); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}
	dir := keyOf(t, m, "d")
	if err := m.Expand(ctx, dir); err != nil {
		t.Fatal(err)
	}
	rows := m.Rows()
	if len(rows) != 3 || rows[1].Name != "inner.txt" || rows[1].Depth != 1 {
		t.Fatalf("rows after expand = %+v", rows)
	}
	if rows[1].ParentKey != dir || rows[0].ParentKey != "" {
		t.Errorf("parent keys = %q, %q", rows[0].ParentKey, rows[1].ParentKey)
	}

	if err := m.Collapse(dir); err != nil {
		t.Fatal(err)
	}
	if got := len(m.Rows()); got != 2 {
		t.Errorf("rows after collapse = %d, want 2", got)
	}
	if !lookup(t, m, dir).Loaded {
		t.Error("collapse discarded children")
	}
}
