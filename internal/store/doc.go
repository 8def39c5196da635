// Package store holds the shared, observable state of the file tree: which
// path is selected and which folders are expanded.
//
// Values are replaced wholesale on every change and pushed synchronously to
// subscribers. Nothing here is safe for concurrent use; every call is expected
// to come from the goroutine that drives the UI.
package store
