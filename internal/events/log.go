// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package events

import (
	"sync"

	"github.com/tomtom215/tidegate/internal/tier"
)

// DefaultLogSize is the number of attempts kept for /debug/attempts.
const DefaultLogSize = 500

// AttemptLog keeps the most recent attempts in a fixed ring.
type AttemptLog struct {
	mu    sync.RWMutex
	buf   []tier.Attempt
	next  int
	full  bool
	total uint64
}

// NewAttemptLog creates a log holding up to size attempts.
func NewAttemptLog(size int) *AttemptLog {
	if size <= 0 {
		size = DefaultLogSize
	}
	return &AttemptLog{buf: make([]tier.Attempt, size)}
}

// Add appends a, evicting the oldest entry when full.
func (l *AttemptLog) Add(a tier.Attempt) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = a
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
	l.total++
}

// Recent returns up to n attempts, newest first. n <= 0 returns all.
func (l *AttemptLog) Recent(n int) []tier.Attempt {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.next
	if l.full {
		size = len(l.buf)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]tier.Attempt, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}

// Total returns the number of attempts ever added.
func (l *AttemptLog) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
