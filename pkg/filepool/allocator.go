package filepool

import (
	"os"

	"github.com/pkg/errors"

	"github.com/nimbusfs/filepool/pkg/localfs"
)

// allocateChunk is the slow path the pool exists to keep off the
// write critical section: open-create, fallocate the full extent,
// zero-fill it, fsync, close. Every exit path closes the fd.
func allocateChunk(fs localfs.Handle, path string, chunkLen uint64) error {
	fd, err := fs.Open(path, os.O_RDWR|os.O_CREATE)
	if err != nil {
		return errors.Wrapf(err, "allocate %s: open", path)
	}

	if err := fs.Fallocate(fd, 0, 0, int64(chunkLen)); err != nil {
		fs.Close(fd)
		return errors.Wrapf(err, "allocate %s: fallocate", path)
	}

	zero := make([]byte, minInt(int(chunkLen), 1<<20))
	var written uint64
	for written < chunkLen {
		n := uint64(len(zero))
		if remain := chunkLen - written; remain < n {
			n = remain
		}
		wrote, err := fs.Write(fd, zero[:n], int64(written))
		if err != nil {
			fs.Close(fd)
			return errors.Wrapf(err, "allocate %s: write", path)
		}
		written += uint64(wrote)
	}

	if err := fs.Fsync(fd); err != nil {
		fs.Close(fd)
		return errors.Wrapf(err, "allocate %s: fsync", path)
	}

	if err := fs.Close(fd); err != nil {
		return errors.Wrapf(err, "allocate %s: close", path)
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
