package store

// ExpandedPaths is the set of folders currently expanded in the tree.
// Every mutation publishes a fresh PathSet, even when the membership does
// not change.
type ExpandedPaths struct {
	cell *Cell[PathSet]
}

// NewExpandedPaths returns an empty ExpandedPaths.
func NewExpandedPaths() *ExpandedPaths {
	return &ExpandedPaths{cell: NewCell(NewPathSet())}
}

// Get returns the current snapshot.
func (e *ExpandedPaths) Get() PathSet {
	return e.cell.Get()
}

// Add expands path.
func (e *ExpandedPaths) Add(path string) {
	e.cell.Update(func(s PathSet) PathSet { return s.With(path) })
}

// AddAll expands every path in a single update.
func (e *ExpandedPaths) AddAll(paths ...string) {
	e.cell.Update(func(s PathSet) PathSet { return s.With(paths...) })
}

// Delete collapses path.
func (e *ExpandedPaths) Delete(path string) {
	e.cell.Update(func(s PathSet) PathSet { return s.Without(path) })
}

// Toggle collapses path if it is expanded and expands it otherwise.
func (e *ExpandedPaths) Toggle(path string) {
	e.cell.Update(func(s PathSet) PathSet {
		if s.Has(path) {
			return s.Without(path)
		}
		return s.With(path)
	})
}

// Has reports whether path is expanded right now. It does not notify
// subscribers and does not track later changes.
func (e *ExpandedPaths) Has(path string) bool {
	return e.cell.Get().Has(path)
}

// Clear collapses everything.
func (e *ExpandedPaths) Clear() {
	e.cell.Set(NewPathSet())
}

// Subscribe calls fn with the current snapshot now and after every change.
func (e *ExpandedPaths) Subscribe(fn func(PathSet)) func() {
	return e.cell.Subscribe(fn)
}
