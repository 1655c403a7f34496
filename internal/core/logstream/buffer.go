package logstream

import "sync"

// Buffer retains log events in arrival order. With a positive capacity it
// keeps only the newest capacity events; it never reorders what it keeps.
// Safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	events   []Event
	dropped  uint64
}

// NewBuffer creates a buffer. A capacity of zero or less is unbounded.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{capacity: capacity}
}

// AppendLog implements Sink.
func (b *Buffer) AppendLog(ev Event) { b.Append(ev) }

// Append adds ev after every retained event.
func (b *Buffer) Append(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, ev)
	if b.capacity > 0 && len(b.events) > b.capacity {
		over := len(b.events) - b.capacity
		b.dropped += uint64(over)
		b.events = append(b.events[:0], b.events[over:]...)
	}
}

// Events returns a copy of the retained events, oldest first.
func (b *Buffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Len returns the number of retained events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Dropped returns how many events were evicted to honor the capacity.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
