package throttle

import (
	"github.com/juju/ratelimit"
)

// Limiter paces bytes written by the cleaner so re-zeroing dirty
// chunks never saturates the device's IOPS budget. It wraps a
// juju/ratelimit token bucket sized in bytes rather than raw IOPS,
// since the cleaner's unit of work is a fixed-size write.
type Limiter struct {
	bucket *ratelimit.Bucket
}

// NewLimiter builds a Limiter that admits iops tokens of bytesPerOp
// bytes each per second, i.e. a byte rate of iops*bytesPerOp/s. A
// non-positive iops disables limiting.
func NewLimiter(iops int64, bytesPerOp int64) *Limiter {
	if iops <= 0 {
		return &Limiter{}
	}
	rate := float64(iops) * float64(bytesPerOp)
	capacity := bytesPerOp
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{bucket: ratelimit.NewBucketWithRate(rate, capacity)}
}

// Add consumes n bytes of budget, blocking until they are available.
// It is a no-op when the limiter was built disabled.
func (l *Limiter) Add(n int64) {
	if l == nil || l.bucket == nil || n <= 0 {
		return
	}
	l.bucket.Wait(n)
}
