package store

// Store bundles the tree state shared by the UI and its collaborators.
type Store struct {
	Selected *SelectedPath
	Expanded *ExpandedPaths
}

// New returns a Store with no selection and nothing expanded.
func New() *Store {
	return &Store{
		Selected: NewSelectedPath(),
		Expanded: NewExpandedPaths(),
	}
}
