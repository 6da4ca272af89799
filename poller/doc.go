// File: poller/doc.go
// Author: momentics <momentics@gmail.com>

// Package poller implements the readiness-poll primitive used by backend
// workers: a fixed-capacity poll set of parallel descriptor/owner arrays
// with swap-remove compaction, polled through poll(2) on Unix platforms.
package poller
