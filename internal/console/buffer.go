package console

import "github.com/tinytelemetry/craftpanel/internal/model"

// LineBuffer holds the most recent console lines, oldest first.
// It is not safe for concurrent use; the supervisor loop owns it.
type LineBuffer struct {
	ring  []string
	head  int // index of the oldest line
	count int
}

// NewLineBuffer creates a buffer that keeps at most capacity lines.
// A non-positive capacity falls back to model.DefaultLogLines.
func NewLineBuffer(capacity int) *LineBuffer {
	return &LineBuffer{ring: make([]string, normalizeCapacity(capacity))}
}

func normalizeCapacity(n int) int {
	if n <= 0 {
		return model.DefaultLogLines
	}
	return n
}

// Append adds a line, evicting the oldest one when the buffer is full.
func (b *LineBuffer) Append(line string) {
	capacity := len(b.ring)
	if b.count < capacity {
		b.ring[(b.head+b.count)%capacity] = line
		b.count++
		return
	}
	b.ring[b.head] = line
	b.head = (b.head + 1) % capacity
}

// Lines returns a copy of the buffered lines in production order.
func (b *LineBuffer) Lines() []string {
	out := make([]string, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.ring[(b.head+i)%len(b.ring)]
	}
	return out
}

// Len returns the number of buffered lines.
func (b *LineBuffer) Len() int { return b.count }

// Cap returns the configured capacity.
func (b *LineBuffer) Cap() int { return len(b.ring) }

// SetCapacity changes the capacity, keeping the most recent lines that fit.
func (b *LineBuffer) SetCapacity(capacity int) {
	capacity = normalizeCapacity(capacity)
	if capacity == len(b.ring) {
		return
	}
	lines := b.Lines()
	if len(lines) > capacity {
		lines = lines[len(lines)-capacity:]
	}
	b.ring = make([]string, capacity)
	b.head = 0
	b.count = copy(b.ring, lines)
}

// Reset drops every buffered line.
func (b *LineBuffer) Reset() {
	clear(b.ring)
	b.head = 0
	b.count = 0
}

// Replace discards the current contents and loads lines, keeping the most
// recent ones that fit.
func (b *LineBuffer) Replace(lines []string) {
	b.Reset()
	if len(lines) > len(b.ring) {
		lines = lines[len(lines)-len(b.ring):]
	}
	b.count = copy(b.ring, lines)
}
