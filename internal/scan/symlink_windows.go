//go:build windows

package scan

import (
	"io/fs"
	"os"

	"golang.org/x/sys/windows"
)

// isSymlink also treats junctions and mount points as links so they are
// never followed.
func isSymlink(path string, entry fs.DirEntry) bool {
	if entry.Type()&(os.ModeSymlink|os.ModeIrregular) != 0 {
		return true
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false
	}
	return attrs&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0
}
