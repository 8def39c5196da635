package tree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kyaoi/sizetree/internal/scan"
)

// SortMode selects the order of siblings.
type SortMode int

const (
	// SortBySize puts the largest entries first.
	SortBySize SortMode = iota
	// SortByName lists directories before files, alphabetically.
	SortByName
)

// ParseSortMode parses "size" or "name".
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "size":
		return SortBySize, nil
	case "name":
		return SortByName, nil
	default:
		return SortBySize, fmt.Errorf("unknown sort mode %q", s)
	}
}

func (m SortMode) String() string {
	if m == SortByName {
		return "name"
	}
	return "size"
}

// Next cycles to the other mode.
func (m SortMode) Next() SortMode {
	if m == SortBySize {
		return SortByName
	}
	return SortBySize
}

func sortRecursive(node *scan.Node, mode SortMode) {
	if node == nil || len(node.Children) == 0 {
		return
	}
	sortChildren(node, mode)
	for _, child := range node.Children {
		sortRecursive(child, mode)
	}
}

func sortChildren(node *scan.Node, mode SortMode) {
	sort.SliceStable(node.Children, func(i, j int) bool {
		ci, cj := node.Children[i], node.Children[j]
		if mode == SortBySize && ci.Size != cj.Size {
			return ci.Size > cj.Size
		}
		switch {
		case ci.IsDir == cj.IsDir:
			return strings.ToLower(ci.Name) < strings.ToLower(cj.Name)
		case ci.IsDir:
			return true
		default:
			return false
		}
	})
}
