// Package workspace mirrors the sandbox filesystem as a lazily loaded tree.
package workspace

import (
	"strings"

	"github.com/abdullathedruid/devbox/internal/backend"
)

// node is one file or directory in the tree. Nodes never leave the
// manager; every field is guarded by Manager.mu.
//
// A directory starts unloaded (children is nil) and becomes loaded when a
// listing for it resolves. A loaded directory always holds a materialized
// slice, possibly empty. The key never changes after creation, even on rename.
type node struct {
	key    string
	name   string
	path   string
	isLeaf bool

	children []*node
	expanded bool

	loaded  bool
	loading bool
	parent  *node
}

func (n *node) info() Info {
	i := Info{
		Key:      n.key,
		Name:     n.name,
		Path:     n.path,
		IsLeaf:   n.isLeaf,
		Expanded: n.expanded,
		Loaded:   n.loaded,
	}
	if n.parent != nil {
		i.ParentKey = n.parent.key
	}
	return i
}

// Info is a snapshot of one node, safe to keep after the tree changes.
type Info struct {
	Key       string
	ParentKey string // "" for top-level entries
	Name      string
	Path      string
	IsLeaf    bool
	Expanded  bool
	Loaded    bool
}

// NormalizePath turns backslashes into slashes.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// LanguageHint returns the extension of path without the dot, or "txt" when
// the final segment has none.
func LanguageHint(path string) string {
	base := NormalizePath(path)
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return "txt"
	}
	return base[i+1:]
}

// ParentPath returns path with its final segment removed. Either separator
// is accepted; the root's parent is "".
func ParentPath(path string) string {
	i := strings.LastIndexAny(path, `/\`)
	if i < 0 {
		return ""
	}
	return path[:i]
}

// ChildPath joins a directory path and a name, reusing the directory's
// separator style.
func ChildPath(dir, name string) string {
	if dir == "" {
		return name
	}
	sep := "/"
	if strings.Contains(dir, `\`) && !strings.Contains(dir, "/") {
		sep = `\`
	}
	if strings.HasSuffix(dir, sep) {
		return dir + name
	}
	return dir + sep + name
}

// RenamedPath replaces only the trailing segment of oldPath.
func RenamedPath(oldPath, newName string) string {
	i := strings.LastIndexAny(oldPath, `/\`)
	if i < 0 {
		return newName
	}
	return oldPath[:i+1] + newName
}

// setChildren replaces dir's children with a listing. Nodes whose current
// path survives keep their identity, key and loaded subtree; new entries get
// a key from newKey.
func setChildren(dir *node, entries []backend.Entry, newKey func(path string) string) {
	existing := make(map[string]*node, len(dir.children))
	for _, c := range dir.children {
		existing[NormalizePath(c.path)] = c
	}

	children := make([]*node, 0, len(entries))
	for _, e := range entries {
		norm := NormalizePath(e.Path)
		if old, ok := existing[norm]; ok && old.isLeaf == !e.IsDirectory {
			old.name = e.Name
			old.path = e.Path
			children = append(children, old)
			delete(existing, norm)
			continue
		}
		children = append(children, &node{
			key:    newKey(e.Path),
			name:   e.Name,
			path:   e.Path,
			isLeaf: !e.IsDirectory,
			parent: dir,
		})
	}
	for _, gone := range existing {
		gone.parent = nil
	}

	dir.children = children
	dir.loaded = true
}

// removeChild detaches child from parent by identity.
func removeChild(parent, child *node) bool {
	for i, c := range parent.children {
		if c == child {
			parent.children = append(parent.children[:i:i], parent.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// rebase rewrites the paths of n's loaded descendants after n moved.
func rebase(n *node, oldPrefix, newPrefix string) {
	for _, c := range n.children {
		if strings.HasPrefix(c.path, oldPrefix) {
			c.path = newPrefix + c.path[len(oldPrefix):]
		}
		rebase(c, oldPrefix, newPrefix)
	}
}

// contains reports whether n is ancestor-or-self of other.
func contains(n, other *node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// findByKey resolves a key in the loaded part of the tree.
func findByKey(nodes []*node, key string) *node {
	for _, n := range nodes {
		if n.key == key {
			return n
		}
		if found := findByKey(n.children, key); found != nil {
			return found
		}
	}
	return nil
}

// firstLeaf returns the first leaf of nodes in depth-first order, searching
// only loaded directories.
func firstLeaf(nodes []*node) *node {
	for _, n := range nodes {
		if n.isLeaf {
			return n
		}
		if leaf := firstLeaf(n.children); leaf != nil {
			return leaf
		}
	}
	return nil
}

// Row is one visible line of the tree.
type Row struct {
	Info
	Depth int
}

func flatten(nodes []*node, depth int, rows []Row) []Row {
	for _, n := range nodes {
		rows = append(rows, Row{Info: n.info(), Depth: depth})
		if !n.isLeaf && n.expanded {
			rows = flatten(n.children, depth+1, rows)
		}
	}
	return rows
}
