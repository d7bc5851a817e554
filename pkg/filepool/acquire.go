package filepool

import (
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// getChunk waits for either formatting to finish or a queue to become
// non-empty, then atomically pops an id.
//
// Once formatAllocateNum == formatPreAllocateNum the wait condition is
// permanently satisfied, so a pool drained after formatting finishes
// returns ErrEmpty immediately instead of blocking forever on chunks
// that will never arrive.
func (p *Pool) getChunk(needClean bool) (id uint64, fromClean bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	wakeable := func() bool {
		return p.formatAllocateNum.Load() == p.formatPreAllocateNum.Load() ||
			!(p.dirty.len() == 0 && p.clean.len() == 0)
	}
	for !wakeable() {
		p.cond.Wait()
	}

	pop := func(s *idStack, left *uint64, isClean bool) (uint64, bool, bool) {
		id, ok := s.pop()
		if !ok {
			return 0, false, false
		}
		*left--
		p.state.PreallocatedLeft--
		return id, isClean, true
	}

	if !needClean {
		if id, fromClean, ok := pop(&p.dirty, &p.state.DirtyLeft, false); ok {
			return id, fromClean, nil
		}
		if id, fromClean, ok := pop(&p.clean, &p.state.CleanLeft, true); ok {
			return id, fromClean, nil
		}
		return 0, false, ErrEmpty
	}

	if id, fromClean, ok := pop(&p.clean, &p.state.CleanLeft, true); ok {
		return id, fromClean, nil
	}
	if id, fromClean, ok := pop(&p.dirty, &p.state.DirtyLeft, false); ok {
		return id, fromClean, nil
	}
	return 0, false, ErrEmpty
}

// writeMetaPage writes the caller-supplied header to offset 0 of path
// and fsyncs it.
func (p *Pool) writeMetaPage(path string, metaPage []byte) error {
	fd, err := p.fs.Open(path, os.O_RDWR)
	if err != nil {
		return errors.Wrapf(err, "write meta page %s: open", path)
	}
	defer p.fs.Close(fd)

	n, err := p.fs.Write(fd, metaPage, 0)
	if err != nil {
		return errors.Wrapf(err, "write meta page %s: write", path)
	}
	if uint64(n) != p.opt.MetaPageSize {
		return errors.Errorf("short meta page write to %s: %d of %d", path, n, p.opt.MetaPageSize)
	}
	if err := p.fs.Fsync(fd); err != nil {
		return errors.Wrapf(err, "write meta page %s: fsync", path)
	}
	return nil
}

// GetFile hands out a chunk as targetPath, retrying up to RetryTimes.
func (p *Pool) GetFile(targetPath string, metaPage []byte, needClean bool) error {
	var lastErr error

	for retry := 0; retry < p.opt.RetryTimes; retry++ {
		var srcPath string

		if p.opt.GetFileFromPool {
			id, fromClean, err := p.getChunk(needClean)
			if err != nil {
				log.Errorf("no available chunk: %v", err)
				return err
			}
			srcPath = p.currentDir + "/" + strconv.FormatUint(id, 10)
			isClean := fromClean
			if !fromClean && needClean {
				if err := p.cleanChunk(id, true); err != nil {
					return errors.Wrap(err, "clean on demand")
				}
				isClean = true
			}
			if isClean {
				srcPath += cleanChunkSuffix
			}
		} else {
			id := p.synthCounter.Add(1)
			synth := uuid.NewString()
			srcPath = p.currentDir + "/" + strconv.FormatUint(id, 10) + "-" + synth
			if err := allocateChunk(p.fs, srcPath, p.chunkLen()); err != nil {
				log.Errorf("file allocate failed, %s: %v", srcPath, err)
				lastErr = err
				continue
			}
		}

		if err := p.writeMetaPage(srcPath, metaPage); err != nil {
			log.Errorf("write metapage failed, %s: %v", srcPath, err)
			lastErr = err
			continue
		}

		err := p.fs.Rename(srcPath, targetPath, true)
		if err == nil {
			log.Infof("get file %s success, pool size now %d", targetPath, p.Size())
			return nil
		}
		if errors.Is(err, os.ErrExist) {
			log.Errorf("%s already exists, src = %s", targetPath, srcPath)
			return ErrAlreadyExists
		}
		log.Errorf("file rename failed, %s: %v", srcPath, err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = ErrEmpty
	}
	return lastErr
}
