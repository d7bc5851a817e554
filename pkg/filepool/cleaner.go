package filepool

import (
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/nimbusfs/filepool/pkg/localfs"
)

// cleanChunk reclaims one chunk back to all-zero form and retags its
// filename with the clean suffix. onlyMarked zeroes the whole extent
// with one FALLOC_FL_ZERO_RANGE fallocate, and fails if the filesystem
// does not support it; otherwise zeroes are written in BytesPerWrite
// segments, each fsynced and throttled.
func (p *Pool) cleanChunk(id uint64, onlyMarked bool) error {
	chunkPath := p.currentDir + "/" + strconv.FormatUint(id, 10)

	fd, err := p.fs.Open(chunkPath, os.O_RDWR)
	if err != nil {
		return errors.Wrapf(err, "clean %s: open", chunkPath)
	}
	defer p.fs.Close(fd)

	chunkLen := int64(p.chunkLen())
	if onlyMarked {
		if err := p.fs.Fallocate(fd, localfs.FallocZeroRange, 0, chunkLen); err != nil {
			return errors.Wrapf(err, "clean %s: fallocate zero range", chunkPath)
		}
	} else {
		var written int64
		for written < chunkLen {
			n := int64(len(p.cleanBuf))
			if remain := chunkLen - written; remain < n {
				n = remain
			}
			wrote, err := p.fs.Write(fd, p.cleanBuf[:n], written)
			if err != nil {
				return errors.Wrapf(err, "clean %s: write", chunkPath)
			}
			if err := p.fs.Fsync(fd); err != nil {
				return errors.Wrapf(err, "clean %s: fsync", chunkPath)
			}
			p.cleanLimiter.Add(int64(len(p.cleanBuf)))
			written += int64(wrote)
		}
	}

	targetPath := chunkPath + cleanChunkSuffix
	if err := p.fs.Rename(chunkPath, targetPath, false); err != nil {
		return errors.Wrapf(err, "clean %s: rename", chunkPath)
	}
	return nil
}

// cleanOne pops one dirty chunk, re-zeroes it, and pushes it onto
// clean. It reports whether it did useful work, used by cleanWorker
// to decide how long to sleep next.
func (p *Pool) cleanOne() bool {
	p.mu.Lock()
	id, ok := p.dirty.pop()
	if !ok {
		p.mu.Unlock()
		return false
	}
	p.state.DirtyLeft--
	p.state.PreallocatedLeft--
	p.mu.Unlock()

	if err := p.cleanChunk(id, false); err != nil {
		log.Errorf("failed to clean chunk %d: %v", id, err)
		p.mu.Lock()
		p.dirty.push(id)
		p.state.DirtyLeft++
		p.state.PreallocatedLeft++
		p.mu.Unlock()
		return false
	}

	log.Infof("clean chunk %d success", id)
	p.mu.Lock()
	p.clean.push(id)
	p.state.CleanLeft++
	p.state.PreallocatedLeft++
	p.mu.Unlock()
	p.cond.Broadcast()
	return true
}

// cleanWorker is the single cleaner goroutine: sleep kSuccessSleepMsec
// after a reclaim, kFailSleepMsec after a failure or an empty dirty
// queue, exit when interrupted.
func (p *Pool) cleanWorker() {
	interval := kSuccessSleepMsec
	for p.cleanSleeper.Sleep(interval) {
		if p.cleanOne() {
			interval = kSuccessSleepMsec
		} else {
			interval = kFailSleepMsec
		}
	}
}
