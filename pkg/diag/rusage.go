// Package diag exposes small process-diagnostics helpers for the CLI's
// status output: resource usage and uptime.
package diag

import "syscall"

// Rusage wraps the process's self resource usage.
type Rusage struct {
	syscall.Rusage
}

// UserSeconds returns accumulated user CPU time in seconds.
func (ru *Rusage) UserSeconds() float64 {
	return float64(ru.Utime.Sec) + float64(ru.Utime.Usec)/1e6
}

// SystemSeconds returns accumulated system CPU time in seconds.
func (ru *Rusage) SystemSeconds() float64 {
	return float64(ru.Stime.Sec) + float64(ru.Stime.Usec)/1e6
}

// GetRusage samples the current process's resource usage.
func GetRusage() *Rusage {
	var ru syscall.Rusage
	_ = syscall.Getrusage(syscall.RUSAGE_SELF, &ru)
	return &Rusage{ru}
}
