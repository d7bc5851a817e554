package filepool

import "github.com/pkg/errors"

// Sentinel errors for the pool's fatal-at-startup and retryable
// failure kinds. IO failures are not sentinels: they are whatever
// pkg/localfs wrapped, propagated unchanged so the caller sees the
// underlying syscall error.
var (
	// ErrConfig is returned by PoolOptions.Validate for a fatal
	// configuration problem (unaligned bytesPerWrite, zero chunk
	// size, ...). Fatal at startup.
	ErrConfig = errors.New("invalid pool configuration")

	// ErrCorruptMeta is returned when the persisted pool-meta record
	// fails its checksum or is missing a required field. Fatal at
	// init.
	ErrCorruptMeta = errors.New("corrupt pool meta")

	// ErrInconsistentPool is returned when the scanner finds a
	// non-numeric name, a wrongly sized file, or a non-regular entry
	// in the pool directory. Fatal at init.
	ErrInconsistentPool = errors.New("inconsistent pool directory")

	// ErrEmpty is returned by GetFile when both queues are empty
	// after formatting has finished. Not retried internally.
	ErrEmpty = errors.New("pool is empty")

	// ErrAlreadyExists is returned by GetFile when RENAME_NOREPLACE
	// observes the target path already exists. Not retried.
	ErrAlreadyExists = errors.New("target file already exists")

	// ErrStopped names the "raced a shutdown" failure kind. No function
	// in this package returns it: format and clean workers that see a
	// shutdown exit without an error.
	ErrStopped = errors.New("pool is stopped")
)
