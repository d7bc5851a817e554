// Package localfs provides the filesystem handle the pool is built
// against: open/read/write/fallocate/rename/fsync/stat/list/mkdir/
// statfs, plus the RENAME_NOREPLACE and FALLOC_FL_ZERO_RANGE flags the
// pool needs. The pool never touches os.* directly — it only ever
// borrows a Handle, so callers can inject a different filesystem
// implementation (or a fake one in tests) without changing the pool.
package localfs

import "os"

// FileInfo is the subset of stat(2) results the pool consults.
type FileInfo struct {
	Size  int64
	IsDir bool
}

// DiskUsage is the subset of statfs(2) results the pool consults.
type DiskUsage struct {
	TotalBytes     uint64
	AvailableBytes uint64
}

// Handle is the filesystem primitive set consumed by pkg/filepool. It
// is intentionally small and POSIX-shaped so a single implementation
// can back it with raw syscalls.
type Handle interface {
	Open(path string, flags int) (fd int, err error)
	Close(fd int) error

	Read(fd int, buf []byte, off int64) (int, error)
	Write(fd int, buf []byte, off int64) (int, error)
	Fsync(fd int) error
	Fstat(fd int) (FileInfo, error)

	// Fallocate reserves or zeroes [off, off+length). mode is 0 to
	// reserve extents, or FallocZeroRange to zero the range in place.
	// It returns an error when the filesystem does not support the
	// requested mode; there is no write-based fallback.
	Fallocate(fd int, mode uint32, off, length int64) error

	// Rename moves oldpath to newpath. When noReplace is true it must
	// fail with ErrExist if newpath already exists, atomically: no
	// caller may ever observe newpath in a half-written state.
	Rename(oldpath, newpath string, noReplace bool) error

	Delete(path string) error
	Mkdir(path string, perm os.FileMode) error
	DirExists(path string) bool
	FileExists(path string) bool
	List(dir string) ([]string, error)
	Statfs(path string) (DiskUsage, error)
}

// FallocZeroRange is FALLOC_FL_ZERO_RANGE, exposed so callers outside
// this package (tests, cleaner) can name it without importing
// golang.org/x/sys/unix themselves.
const FallocZeroRange uint32 = 1 << 4
