//go:build linux

package localfs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// unixHandle implements Handle directly over Linux syscalls via
// golang.org/x/sys/unix rather than anything os.* exposes portably,
// since Fallocate and Renameat2's noReplace flag have no os.* analog.
// Only List goes through os.ReadDir.
type unixHandle struct{}

// New returns the production Handle for Linux.
func New() Handle {
	return unixHandle{}
}

func (unixHandle) Open(path string, flags int) (int, error) {
	fd, err := unix.Open(path, flags, 0644)
	if err != nil {
		return -1, errors.Wrapf(err, "open %s", path)
	}
	return fd, nil
}

func (unixHandle) Close(fd int) error {
	if err := unix.Close(fd); err != nil {
		return errors.Wrap(err, "close")
	}
	return nil
}

func (unixHandle) Read(fd int, buf []byte, off int64) (int, error) {
	n, err := unix.Pread(fd, buf, off)
	if err != nil {
		return n, errors.Wrap(err, "pread")
	}
	return n, nil
}

func (unixHandle) Write(fd int, buf []byte, off int64) (int, error) {
	n, err := unix.Pwrite(fd, buf, off)
	if err != nil {
		return n, errors.Wrap(err, "pwrite")
	}
	return n, nil
}

func (unixHandle) Fsync(fd int) error {
	if err := unix.Fsync(fd); err != nil {
		return errors.Wrap(err, "fsync")
	}
	return nil
}

func (unixHandle) Fstat(fd int) (FileInfo, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return FileInfo{}, errors.Wrap(err, "fstat")
	}
	return FileInfo{
		Size:  st.Size,
		IsDir: st.Mode&unix.S_IFMT == unix.S_IFDIR,
	}, nil
}

func (unixHandle) Fallocate(fd int, mode uint32, off, length int64) error {
	if err := unix.Fallocate(fd, mode, off, length); err != nil {
		return errors.Wrap(err, "fallocate")
	}
	return nil
}

func (unixHandle) Rename(oldpath, newpath string, noReplace bool) error {
	var flags uint
	if noReplace {
		flags = unix.RENAME_NOREPLACE
	}
	if err := unix.Renameat2(unix.AT_FDCWD, oldpath, unix.AT_FDCWD, newpath, flags); err != nil {
		if err == unix.EEXIST {
			return os.ErrExist
		}
		return errors.Wrapf(err, "rename %s -> %s", oldpath, newpath)
	}
	return nil
}

func (unixHandle) Delete(path string) error {
	if err := unix.Unlink(path); err != nil {
		return errors.Wrapf(err, "unlink %s", path)
	}
	return nil
}

func (unixHandle) Mkdir(path string, perm os.FileMode) error {
	if err := unix.Mkdir(path, uint32(perm)); err != nil {
		return errors.Wrapf(err, "mkdir %s", path)
	}
	return nil
}

func (unixHandle) DirExists(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFDIR
}

func (unixHandle) FileExists(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFREG
}

func (unixHandle) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, filepath.Base(e.Name()))
	}
	return names, nil
}

func (unixHandle) Statfs(path string) (DiskUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DiskUsage{}, errors.Wrapf(err, "statfs %s", path)
	}
	return DiskUsage{
		TotalBytes:     st.Blocks * uint64(st.Bsize),
		AvailableBytes: st.Bavail * uint64(st.Bsize),
	}, nil
}
