package filepool

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// RecycleFile takes a deleted chunk back into the pool, validating its
// size against the configured chunk length before re-queuing it as
// dirty.
func (p *Pool) RecycleFile(path string) error {
	if !p.opt.GetFileFromPool {
		if err := p.fs.Delete(path); err != nil {
			return errors.Wrapf(err, "recycle %s: delete", path)
		}
		return nil
	}

	fd, err := p.fs.Open(path, os.O_RDWR)
	if err != nil {
		log.Errorf("open %s failed, deleting directly: %v", path, err)
		return p.fs.Delete(path)
	}

	info, err := p.fs.Fstat(fd)
	p.fs.Close(fd)
	if err != nil {
		log.Errorf("fstat %s failed, deleting directly: %v", path, err)
		return p.fs.Delete(path)
	}

	chunkLen := p.chunkLen()
	if uint64(info.Size) != chunkLen {
		log.Errorf("file size illegal for %s: want %d, got %d, deleting directly",
			path, chunkLen, info.Size)
		return p.fs.Delete(path)
	}

	p.mu.Lock()
	p.maxFileNum++
	newID := p.maxFileNum
	p.mu.Unlock()

	targetPath := p.currentDir + "/" + strconv.FormatUint(newID, 10)
	if err := p.fs.Rename(path, targetPath, false); err != nil {
		return errors.Wrapf(err, "recycle %s: rename", path)
	}

	p.mu.Lock()
	p.dirty.push(newID)
	p.state.DirtyLeft++
	p.state.PreallocatedLeft++
	p.mu.Unlock()
	p.cond.Broadcast()

	log.Infof("recycled %s as %s, pool size now %d", path, targetPath, p.Size())
	return nil
}
