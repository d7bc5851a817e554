// Package filepool implements the pre-allocated chunk file pool: a
// local reservoir of fixed-size chunk files handed out atomically to
// a block-storage chunkserver's write path, refilled by a background
// formatter and re-zeroed by a background cleaner.
package filepool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nimbusfs/filepool/pkg/localfs"
	"github.com/nimbusfs/filepool/pkg/throttle"
	"github.com/nimbusfs/filepool/pkg/xlog"
)

var log = xlog.GetLogger("filepool")

// Pool is the pre-allocated chunk file pool. The zero value is not
// usable; construct with New.
type Pool struct {
	fs  localfs.Handle
	opt PoolOptions

	// mu guards everything below except the atomics: the dirty/clean
	// queues, maxFileNum, currentDir, and state are all serialized by
	// a single pool mutex, with cond signaling waiters when either
	// queue gains an entry or formatting finishes.
	mu         sync.Mutex
	cond       *sync.Cond
	dirty      idStack
	clean      idStack
	maxFileNum uint64
	currentDir string
	state      PoolState

	// Formatter progress is read far more often than it's written
	// (every GetFile call checks it), so it lives in atomics instead
	// of behind mu.
	formatPreAllocateNum atomic.Uint64
	formatAllocateNum    atomic.Uint64
	formatIsWrong        atomic.Bool
	formatAlive          atomic.Bool
	cleanAlive           atomic.Bool

	formatIntervalNanos atomic.Int64

	formatSleeper *throttle.Sleeper
	cleanSleeper  *throttle.Sleeper
	cleanLimiter  *throttle.Limiter

	cleanBuf []byte

	formatWG sync.WaitGroup
	cleanWG  sync.WaitGroup

	synthCounter atomic.Uint64 // synth-path id counter when GetFileFromPool is false
}

// New constructs a Pool bound to fs. The pool does not own fs, only
// borrows it for its lifetime; callers may share one Handle across
// multiple pools.
func New(fs localfs.Handle) *Pool {
	p := &Pool{fs: fs}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Init validates meta, scans the pool directory, and starts
// formatting if configured.
func (p *Pool) Init(opt PoolOptions) error {
	if err := opt.Validate(); err != nil {
		return err
	}
	p.opt = opt
	p.formatIntervalNanos.Store(int64(opt.FormatInterval))
	p.cleanLimiter = throttle.NewLimiter(opt.Iops4Clean, int64(opt.BytesPerWrite))
	if opt.BytesPerWrite > 0 {
		p.cleanBuf = make([]byte, opt.BytesPerWrite)
	}

	if !opt.GetFileFromPool {
		p.currentDir = opt.FilePoolDir
		if !p.fs.DirExists(p.currentDir) {
			return p.fs.Mkdir(p.currentDir, 0755)
		}
		return nil
	}

	if err := p.checkValid(); err != nil {
		return err
	}
	if err := p.scanInternal(); err != nil {
		return err
	}
	if err := p.prepareFormat(); err != nil {
		return err
	}

	p.formatAlive.Store(true)
	p.formatSleeper = throttle.NewSleeper()
	offset := p.maxFileNum
	p.maxFileNum += p.formatPreAllocateNum.Load()

	var idx atomic.Uint32
	for i := uint32(0); i < p.opt.FormatThreadNum; i++ {
		p.formatWG.Add(1)
		go func() {
			defer p.formatWG.Done()
			p.formatTask(offset, &idx)
		}()
	}
	return nil
}

// checkValid resolves chunk geometry from the persisted meta file, if
// present. Fields read from the meta file take precedence over
// caller-provided configuration; mismatches are logged and the
// caller's values are overwritten.
func (p *Pool) checkValid() error {
	p.currentDir = p.opt.FilePoolDir
	if !p.fs.FileExists(p.opt.MetaPath) {
		log.Infof("meta file %s not found, first initialization", p.opt.MetaPath)
		if p.opt.BlockSize == 0 {
			p.opt.BlockSize = DefaultBlockSize
		}
		p.state.ChunkSize = p.opt.FileSize
		p.state.MetaPageSize = p.opt.MetaPageSize
		p.state.BlockSize = p.opt.BlockSize
		return nil
	}

	meta, err := DecodeMeta(p.fs, p.opt.MetaPath, p.opt.MetaFileSize)
	if err != nil {
		return err
	}

	if p.opt.FileSize != meta.ChunkSize {
		log.Warnf("reset file size from %d to %d", p.opt.FileSize, meta.ChunkSize)
		p.opt.FileSize = meta.ChunkSize
	}
	if p.opt.MetaPageSize != meta.MetaPageSize {
		log.Warnf("reset meta page size from %d to %d", p.opt.MetaPageSize, meta.MetaPageSize)
		p.opt.MetaPageSize = meta.MetaPageSize
	}
	if p.opt.BlockSize != meta.BlockSize {
		log.Warnf("reset block size from %d to %d", p.opt.BlockSize, meta.BlockSize)
		p.opt.BlockSize = meta.BlockSize
	}
	p.opt.HasBlockSize = meta.HasBlockSize

	p.currentDir = meta.FilePoolPath
	p.state.ChunkSize = meta.ChunkSize
	p.state.MetaPageSize = meta.MetaPageSize
	p.state.BlockSize = meta.BlockSize
	return nil
}

func (p *Pool) chunkLen() uint64 {
	return p.opt.FileSize + p.opt.MetaPageSize
}

// WaitFormatDone blocks until formatting has produced every chunk it
// set out to, then waits for the format workers to exit. Intended for
// tests and CLI tools that need the pool fully warmed before
// proceeding.
func (p *Pool) WaitFormatDone() {
	p.mu.Lock()
	for p.formatAllocateNum.Load() != p.formatPreAllocateNum.Load() {
		p.cond.Wait()
	}
	p.mu.Unlock()
	p.formatWG.Wait()
}

// StopFormatting stops the background formatter promptly and waits
// for its workers to exit.
func (p *Pool) StopFormatting() {
	if p.formatAlive.CompareAndSwap(true, false) {
		if p.formatSleeper != nil {
			p.formatSleeper.Stop()
		}
		p.formatWG.Wait()
	}
}

// StartCleaning enables the background cleaner, a no-op if NeedClean
// is false or cleaning is already running.
func (p *Pool) StartCleaning() {
	if !p.opt.NeedClean {
		return
	}
	if p.cleanAlive.CompareAndSwap(false, true) {
		p.cleanSleeper = throttle.NewSleeper()
		p.cleanWG.Add(1)
		go func() {
			defer p.cleanWG.Done()
			p.cleanWorker()
		}()
	}
}

// StopCleaning stops the background cleaner and waits for it to exit.
func (p *Pool) StopCleaning() {
	if p.cleanAlive.CompareAndSwap(true, false) {
		p.cleanSleeper.Stop()
		p.cleanWG.Wait()
	}
}

// UnInitialize stops formatting and cleaning and clears the in-memory
// queues. The Pool is not usable again until Init is called.
func (p *Pool) UnInitialize() {
	p.StopCleaning()
	p.StopFormatting()

	p.mu.Lock()
	p.currentDir = ""
	p.dirty = nil
	p.clean = nil
	p.mu.Unlock()
}

// Size returns the current preallocated-chunks-left count.
func (p *Pool) Size() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.PreallocatedLeft
}

// EnoughChunk reports whether the pool holds at least ChunkReserved
// preallocated chunks.
func (p *Pool) EnoughChunk() bool {
	return p.Size() >= p.opt.ChunkReserved
}

// State returns a value-copy snapshot of the pool's counters.
func (p *Pool) State() PoolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// FormatStat returns a value-copy snapshot of the formatter's
// progress.
func (p *Pool) FormatStat() FormatStat {
	return FormatStat{
		PreAllocateNum:   p.formatPreAllocateNum.Load(),
		AllocateChunkNum: p.formatAllocateNum.Load(),
		IsWrong:          p.formatIsWrong.Load(),
	}
}

// SetFormatInterval overrides the pacing between format-worker
// allocations at runtime.
func (p *Pool) SetFormatInterval(d time.Duration) error {
	if err := validateFormatInterval(d); err != nil {
		return err
	}
	p.formatIntervalNanos.Store(int64(d))
	return nil
}

func (p *Pool) formatInterval() time.Duration {
	return time.Duration(p.formatIntervalNanos.Load())
}
