package logic

import "time"

// IntervalBuffer is a fixed-capacity, append-only list of touch intervals.
// Storage is allocated once; Drain resets the count without freeing it.
type IntervalBuffer struct {
	buf   []time.Duration
	count int
}

// NewIntervalBuffer creates a buffer holding at most capacity intervals.
func NewIntervalBuffer(capacity int) *IntervalBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &IntervalBuffer{buf: make([]time.Duration, capacity)}
}

// Append records an interval. Returns ErrBufferFull and records nothing
// when the buffer is already at capacity.
func (b *IntervalBuffer) Append(d time.Duration) error {
	if b.count == len(b.buf) {
		return ErrBufferFull
	}
	b.buf[b.count] = d
	b.count++
	return nil
}

// Len returns the number of recorded intervals.
func (b *IntervalBuffer) Len() int {
	return b.count
}

// Cap returns the buffer capacity.
func (b *IntervalBuffer) Cap() int {
	return len(b.buf)
}

// Full reports whether another Append would fail.
func (b *IntervalBuffer) Full() bool {
	return b.count == len(b.buf)
}

// Drain returns a copy of the recorded intervals in order and resets the
// count to zero. Returns nil when nothing was recorded.
func (b *IntervalBuffer) Drain() []time.Duration {
	if b.count == 0 {
		return nil
	}
	out := make([]time.Duration, b.count)
	copy(out, b.buf[:b.count])
	b.count = 0
	return out
}
