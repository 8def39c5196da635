//go:build windows

package scan

import (
	"io/fs"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                  = windows.NewLazySystemDLL("kernel32.dll")
	procGetCompressedFileSize = kernel32.NewProc("GetCompressedFileSizeW")
)

const invalidFileSize = 0xFFFFFFFF

// physicalSize asks NTFS for the on-disk size, which accounts for
// compression and sparse files.
func physicalSize(path string, info fs.FileInfo) int64 {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return info.Size()
	}

	var high uint32
	low, _, callErr := procGetCompressedFileSize.Call(
		uintptr(unsafe.Pointer(p)),
		uintptr(unsafe.Pointer(&high)),
	)
	if low == invalidFileSize && callErr != windows.ERROR_SUCCESS {
		return info.Size()
	}
	return int64(high)<<32 | int64(low)
}
