//go:build !windows

package scan

import (
	"io/fs"
	"syscall"
)

// physicalSize returns the blocks allocated to the file. Blocks are always
// 512-byte units on POSIX systems.
func physicalSize(_ string, info fs.FileInfo) int64 {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.Size()
	}
	return int64(stat.Blocks) * 512
}
