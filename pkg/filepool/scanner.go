package filepool

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// scanInternal enumerates the pool directory, validates every entry,
// and seeds the dirty/clean queues from disk.
func (p *Pool) scanInternal() error {
	log.Infof("scanning pool dir %s", p.currentDir)

	if !p.fs.DirExists(p.currentDir) {
		if err := p.fs.Mkdir(p.currentDir, 0755); err != nil {
			return errors.Wrapf(err, "mkdir %s", p.currentDir)
		}
	}

	entries, err := p.fs.List(p.currentDir)
	if err != nil {
		return errors.Wrapf(err, "list %s", p.currentDir)
	}
	log.Infof("listed pool dir, %d entries", len(entries))

	chunkLen := p.chunkLen()
	var dirty, clean idStack
	var maxNum uint64

	for _, name := range entries {
		isClean := strings.HasSuffix(name, cleanChunkSuffix)
		numPart := name
		if isClean {
			numPart = strings.TrimSuffix(name, cleanChunkSuffix)
		}

		if numPart == "" || strings.IndexFunc(numPart, func(r rune) bool {
			return r < '0' || r > '9'
		}) != -1 {
			return errors.Wrapf(ErrInconsistentPool, "illegal file name %q", name)
		}

		filePath := p.currentDir + "/" + name
		if !p.fs.FileExists(filePath) {
			return errors.Wrapf(ErrInconsistentPool, "pool dir has non-regular entry %q", name)
		}

		fd, err := p.fs.Open(filePath, os.O_RDWR)
		if err != nil {
			return errors.Wrapf(ErrInconsistentPool, "open %s: %v", filePath, err)
		}
		info, err := p.fs.Fstat(fd)
		p.fs.Close(fd)
		if err != nil {
			return errors.Wrapf(ErrInconsistentPool, "fstat %s: %v", filePath, err)
		}
		if uint64(info.Size) != chunkLen {
			return errors.Wrapf(ErrInconsistentPool,
				"file %s has size %d, want %d", filePath, info.Size, chunkLen)
		}

		fileNum, err := strconv.ParseUint(numPart, 10, 64)
		if err != nil {
			return errors.Wrapf(ErrInconsistentPool, "illegal file name %q", name)
		}

		// id 0 is reserved and silently skipped from the queues; it
		// still counts toward chunkNum below via len(entries).
		if fileNum != 0 {
			if isClean {
				clean.push(fileNum)
			} else {
				dirty.push(fileNum)
			}
			if fileNum > maxNum {
				maxNum = fileNum
			}
		}
	}

	chunkNum := uint64(len(entries))
	chunkNum += p.countAllocated(p.opt.CopysetDir)
	chunkNum += p.countAllocated(p.opt.RecycleDir)

	p.mu.Lock()
	p.dirty = dirty
	p.clean = clean
	p.maxFileNum = maxNum + 1
	p.state.DirtyLeft = uint64(dirty.len())
	p.state.CleanLeft = uint64(clean.len())
	p.state.PreallocatedLeft = p.state.DirtyLeft + p.state.CleanLeft
	p.state.ChunkNum = chunkNum
	p.mu.Unlock()

	log.Infof("scan done, pool size = %d", p.state.PreallocatedLeft)
	return nil
}

// countAllocated recursively walks dir, counting files that satisfy
// p.opt.IsAllocated. An empty or unlistable dir contributes 0 rather
// than erroring, since CopysetDir and RecycleDir are optional.
func (p *Pool) countAllocated(dir string) uint64 {
	if dir == "" {
		return 0
	}
	names, err := p.fs.List(dir)
	if err != nil {
		log.Errorf("failed to list %s: %v", dir, err)
		return 0
	}

	var n uint64
	for _, name := range names {
		path := dir + "/" + name
		if p.fs.DirExists(path) {
			n += p.countAllocated(path)
			continue
		}
		if p.opt.IsAllocated(name) {
			n++
		}
	}
	return n
}
