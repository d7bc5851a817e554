package diag

import "time"

var started = time.Now()

// Uptime returns how long this process has been running.
func Uptime() time.Duration {
	return time.Since(started)
}
