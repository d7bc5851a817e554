package filepool

import (
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"
)

// prepareFormat sizes the formatting target from statfs and the
// configured pool size.
func (p *Pool) prepareFormat() error {
	usage, err := p.fs.Statfs(p.currentDir)
	if err != nil {
		return errors.Wrap(err, "statfs pool dir")
	}

	if p.opt.AllocatedByPercent {
		p.opt.FilePoolSize = usage.TotalBytes * p.opt.AllocatedPercent / 100
	}

	// bytesPerPage uses MetaFileSize (the on-disk pool-meta record
	// size), not MetaPageSize (the per-chunk header) — the two happen
	// to be the same constant today, but this sizing has always used
	// the meta-file constant, not the chunk geometry one.
	bytesPerPage := p.opt.FileSize + uint64(p.opt.MetaFileSize)

	p.mu.Lock()
	chunkNum := p.state.ChunkNum
	p.mu.Unlock()

	if p.opt.FilePoolSize/bytesPerPage <= chunkNum {
		log.Infof("no need to format chunks")
		p.formatPreAllocateNum.Store(0)
		p.formatAllocateNum.Store(0)
		return nil
	}

	needSpace := p.opt.FilePoolSize - chunkNum*bytesPerPage
	log.Infof("free space = %d, total space = %d, need space = %d",
		usage.AvailableBytes, usage.TotalBytes, needSpace)

	if usage.AvailableBytes < needSpace {
		return errors.New("disk free space not enough to format pool")
	}

	p.formatPreAllocateNum.Store(needSpace / bytesPerPage)
	p.formatAllocateNum.Store(0)
	log.Infof("preAllocateNum = %d", p.formatPreAllocateNum.Load())
	return nil
}

// formatTask is one format worker. Workers share idx via fetch-add, a
// work-stealing pattern: whichever worker's fetch-add exceeds the
// target backs the counter off by one and exits, keeping idx equal to
// the number of chunks actually claimed.
func (p *Pool) formatTask(offset uint64, idx *atomic.Uint32) {
	target := p.formatPreAllocateNum.Load()
	for !p.formatIsWrong.Load() && p.formatAlive.Load() {
		i := idx.Add(1) - 1
		if uint64(i) >= target {
			idx.Add(^uint32(0)) // fetch_sub(1)
			return
		}

		if !p.formatSleeper.Sleep(p.formatInterval()) {
			return
		}

		id := offset + uint64(i)
		path := p.currentDir + "/" + strconv.FormatUint(id, 10) + cleanChunkSuffix
		if err := allocateChunk(p.fs, path, p.chunkLen()); err != nil {
			log.Errorf("format error: %v", err)
			p.formatIsWrong.Store(true)
			return
		}

		p.mu.Lock()
		p.clean.push(id)
		p.state.CleanLeft++
		p.state.PreallocatedLeft++
		p.state.ChunkNum++
		p.formatAllocateNum.Add(1)
		p.mu.Unlock()
		p.cond.Broadcast()
	}
}
