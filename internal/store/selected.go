package store

// SelectedPath is the currently selected file or folder. The empty string
// means nothing is selected.
type SelectedPath struct {
	cell *Cell[string]
}

// NewSelectedPath returns a SelectedPath with no selection.
func NewSelectedPath() *SelectedPath {
	return &SelectedPath{cell: NewCell("")}
}

// Get returns the selected path and whether there is one.
func (s *SelectedPath) Get() (string, bool) {
	path := s.cell.Get()
	return path, path != ""
}

// Set selects path. Passing "" clears the selection.
func (s *SelectedPath) Set(path string) {
	s.cell.Set(path)
}

// Clear removes the selection.
func (s *SelectedPath) Clear() {
	s.cell.Set("")
}

// Subscribe calls fn with the current selection now and after every change.
func (s *SelectedPath) Subscribe(fn func(path string)) func() {
	return s.cell.Subscribe(fn)
}
