//go:build !windows

package scan

import (
	"io/fs"
	"os"
)

func isSymlink(_ string, entry fs.DirEntry) bool {
	return entry.Type()&os.ModeSymlink != 0
}
