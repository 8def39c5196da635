package scan

// Node is a file or directory with its aggregated size.
type Node struct {
	Name      string
	Path      string
	Size      int64
	FileCount int
	IsDir     bool
	Err       string
	Children  []*Node
}

// Recompute refreshes Size and FileCount of a directory from its direct
// children. Files are left untouched.
func (n *Node) Recompute() {
	if !n.IsDir {
		return
	}
	var size int64
	var files int
	for _, child := range n.Children {
		size += child.Size
		files += child.FileCount
	}
	n.Size = size
	n.FileCount = files
}
