// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package volatile

// ring is a fixed-capacity circular buffer. Push overwrites the oldest
// entry when full; the store never errors on overflow.
type ring[T any] struct {
	buf   []T
	head  int // index of the oldest entry
	count int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{buf: make([]T, capacity)}
}

// push appends an entry, overwriting the oldest when the buffer is full.
// Returns true when an entry was dropped.
func (r *ring[T]) push(v T) bool {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		return false
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	return true
}

// items returns entries oldest to newest in a fresh slice.
func (r *ring[T]) items() []T {
	out := make([]T, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

// newest returns the most recent entry.
func (r *ring[T]) newest() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.buf[(r.head+r.count-1)%len(r.buf)], true
}

// len returns the number of entries held.
func (r *ring[T]) len() int {
	return r.count
}

// replace rebuilds the buffer from kept entries (oldest to newest),
// used by the sweep after dropping expired records.
func (r *ring[T]) replace(kept []T) int {
	dropped := r.count - len(kept)
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head = 0
	r.count = 0
	for _, v := range kept {
		r.push(v)
	}
	if dropped < 0 {
		return 0
	}
	return dropped
}

// dropOldest removes the n oldest entries.
func (r *ring[T]) dropOldest(n int) int {
	if n > r.count {
		n = r.count
	}
	var zero T
	for i := 0; i < n; i++ {
		r.buf[r.head] = zero
		r.head = (r.head + 1) % len(r.buf)
		r.count--
	}
	return n
}
