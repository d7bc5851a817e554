package filepool

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultBlockSize is used when a meta record omits blockSize.
	DefaultBlockSize = 4096

	// MetaPersistSize is the fixed, padded-or-truncated size of the
	// on-disk pool-meta record.
	MetaPersistSize = 4096

	cleanChunkSuffix  = ".clean"
	kSuccessSleepMsec = 10 * time.Millisecond
	kFailSleepMsec    = 500 * time.Millisecond
)

// IsAllocatedFunc tells the scanner whether a file name in the
// copyset/recycle directories counts as an allocated chunk.
type IsAllocatedFunc func(name string) bool

// PoolOptions configures a Pool.
type PoolOptions struct {
	// FilePoolDir holds the reserve files.
	FilePoolDir string
	// MetaPath is the persisted pool-meta file.
	MetaPath string
	// MetaFileSize must be MetaPersistSize.
	MetaFileSize uint32

	// FileSize is the chunk's data-region size in bytes.
	FileSize uint64
	// MetaPageSize is the header size prepended to each chunk.
	MetaPageSize uint64
	// BlockSize is the device block alignment; 0 means "unset",
	// resolved to DefaultBlockSize.
	BlockSize uint64
	HasBlockSize bool

	// GetFileFromPool, when false, makes every acquire synthesize a
	// brand new file on the spot: no scan, no format, no clean.
	GetFileFromPool bool

	// FilePoolSize, AllocatedByPercent, AllocatedPercent size the
	// formatting target.
	FilePoolSize       uint64
	AllocatedByPercent bool
	AllocatedPercent   uint64

	// FormatThreadNum is the parallelism used for initial formatting.
	FormatThreadNum uint32
	// FormatInterval paces each format worker between allocations.
	FormatInterval time.Duration

	// NeedClean enables the background cleaner.
	NeedClean bool
	// BytesPerWrite must be in [1, 1<<20] and a multiple of 4096.
	BytesPerWrite uint32
	// Iops4Clean bounds the cleaner's writes/sec (token bucket rate).
	Iops4Clean int64

	// RetryTimes bounds GetFile's internal retry loop.
	RetryTimes int
	// ChunkReserved is the threshold EnoughChunk compares Size against.
	ChunkReserved uint64

	// CopysetDir and RecycleDir are scanned recursively at startup to
	// inflate chunkNum.
	CopysetDir string
	RecycleDir string
	// IsAllocated decides whether a file counts toward chunkNum.
	IsAllocated IsAllocatedFunc
}

// Validate checks the fatal-at-startup configuration constraints,
// wrapping every violation in ErrConfig.
func (o *PoolOptions) Validate() error {
	if o.FilePoolDir == "" {
		return errors.Wrap(ErrConfig, "filePoolDir is required")
	}
	if o.GetFileFromPool {
		if o.FileSize == 0 {
			return errors.Wrap(ErrConfig, "fileSize must be positive")
		}
		if o.MetaPath == "" {
			return errors.Wrap(ErrConfig, "metaPath is required")
		}
		if o.MetaFileSize != MetaPersistSize {
			return errors.Wrapf(ErrConfig, "metaFileSize must be %d", MetaPersistSize)
		}
		if o.FormatThreadNum == 0 {
			return errors.Wrap(ErrConfig, "formatThreadNum must be positive")
		}
		if o.RetryTimes <= 0 {
			return errors.Wrap(ErrConfig, "retryTimes must be positive")
		}
	}
	if o.NeedClean {
		if o.BytesPerWrite == 0 || o.BytesPerWrite > 1<<20 {
			return errors.Wrap(ErrConfig, "bytesPerWrite must be in [1, 1048576]")
		}
		if o.BytesPerWrite%4096 != 0 {
			return errors.Wrap(ErrConfig, "bytesPerWrite must be 4K-aligned")
		}
	}
	if o.AllocatedByPercent && o.AllocatedPercent > 100 {
		return errors.Wrap(ErrConfig, "allocatedPercent must be <= 100")
	}
	if o.IsAllocated == nil {
		o.IsAllocated = func(string) bool { return true }
	}
	return nil
}

func validateFormatInterval(d time.Duration) error {
	if d <= 0 {
		return errors.Wrap(ErrConfig, "formatInterval must be positive")
	}
	return nil
}
