// Package tree indexes a scanned directory and derives the rows visible for
// a given set of expanded folders.
package tree

import (
	"errors"
	"strings"

	"github.com/kyaoi/sizetree/internal/scan"
	"github.com/kyaoi/sizetree/internal/store"
)

// ErrNotFound is returned when a path is not part of the tree.
var ErrNotFound = errors.New("path not in tree")

// Line is a single visible row of the tree.
type Line struct {
	Node     *scan.Node
	Depth    int
	Expanded bool
}

// Tree wraps a scan result with a path index and parent links.
type Tree struct {
	root    *scan.Node
	mode    SortMode
	index   map[string]*scan.Node
	parents map[string]*scan.Node
}

// New indexes root and sorts every directory according to mode.
func New(root *scan.Node, mode SortMode) *Tree {
	t := &Tree{
		root:    root,
		mode:    mode,
		index:   make(map[string]*scan.Node),
		parents: make(map[string]*scan.Node),
	}
	t.add(root, nil)
	sortRecursive(root, mode)
	return t
}

// Root returns the top node.
func (t *Tree) Root() *scan.Node {
	return t.root
}

// Mode returns the active sort mode.
func (t *Tree) Mode() SortMode {
	return t.mode
}

// Len returns the number of indexed nodes.
func (t *Tree) Len() int {
	return len(t.index)
}

// Find returns the node at path or nil.
func (t *Tree) Find(path string) *scan.Node {
	return t.index[path]
}

// Parent returns the parent directory's path, or "" for the root and for
// unknown paths.
func (t *Tree) Parent(path string) string {
	if p := t.parents[path]; p != nil {
		return p.Path
	}
	return ""
}

// Ancestors returns the directories enclosing path, root first.
func (t *Tree) Ancestors(path string) []string {
	var out []string
	for p := t.parents[path]; p != nil; p = t.parents[p.Path] {
		out = append(out, p.Path)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Sort reorders every directory.
func (t *Tree) Sort(mode SortMode) {
	t.mode = mode
	sortRecursive(t.root, mode)
}

// Flatten returns the visible rows. The root is always visible; a
// directory's children are visible when it is expanded and it is itself
// visible.
func (t *Tree) Flatten(expanded store.PathSet) []Line {
	if t.root == nil {
		return nil
	}
	var lines []Line
	var walk func(*scan.Node, int)
	walk = func(node *scan.Node, depth int) {
		open := node.IsDir && expanded.Has(node.Path)
		lines = append(lines, Line{Node: node, Depth: depth, Expanded: open})
		if !open {
			return
		}
		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}
	walk(t.root, 0)
	return lines
}

// Search returns the paths of nodes whose name contains query, ignoring
// case, in display order.
func (t *Tree) Search(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || t.root == nil {
		return nil
	}
	var matches []string
	var walk func(*scan.Node)
	walk = func(node *scan.Node) {
		if strings.Contains(strings.ToLower(node.Name), query) {
			matches = append(matches, node.Path)
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(t.root)
	return matches
}

// Replace swaps the subtree at path for node, which must describe the same
// path, and refreshes the totals of every ancestor.
func (t *Tree) Replace(path string, node *scan.Node) error {
	old := t.index[path]
	if old == nil {
		return ErrNotFound
	}
	parent := t.parents[path]

	t.remove(old)
	t.add(node, parent)
	sortRecursive(node, t.mode)

	if parent == nil {
		t.root = node
		return nil
	}
	for i, child := range parent.Children {
		if child == old {
			parent.Children[i] = node
			break
		}
	}
	for p := parent; p != nil; p = t.parents[p.Path] {
		p.Recompute()
		sortChildren(p, t.mode)
	}
	return nil
}

func (t *Tree) add(node, parent *scan.Node) {
	t.index[node.Path] = node
	if parent != nil {
		t.parents[node.Path] = parent
	}
	for _, child := range node.Children {
		t.add(child, node)
	}
}

func (t *Tree) remove(node *scan.Node) {
	delete(t.index, node.Path)
	delete(t.parents, node.Path)
	for _, child := range node.Children {
		t.remove(child)
	}
}
