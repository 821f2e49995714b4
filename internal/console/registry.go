package console

import (
	"errors"
	"sort"
)

// ErrSinkFull is returned by a ChanSink whose reader is not keeping up.
var ErrSinkFull = errors.New("console: subscriber buffer full")

// Event is the self-describing record delivered to live subscribers.
type Event struct {
	Line string `json:"line"`
}

// Sink is an opaque live-output channel. Deliver must not block.
type Sink interface {
	Deliver(ev Event) error
}

// Registry tracks attached sinks. It is owned by a single goroutine.
type Registry struct {
	sinks  map[uint64]Sink
	nextID uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[uint64]Sink)}
}

// Attach adds a sink and returns the id used to detach it.
func (r *Registry) Attach(s Sink) uint64 {
	r.nextID++
	r.sinks[r.nextID] = s
	return r.nextID
}

// Detach removes a sink. It reports whether the id was attached.
func (r *Registry) Detach(id uint64) bool {
	if _, ok := r.sinks[id]; !ok {
		return false
	}
	delete(r.sinks, id)
	return true
}

// Len returns the number of attached sinks.
func (r *Registry) Len() int { return len(r.sinks) }

// IDs returns the attached ids in attach order.
func (r *Registry) IDs() []uint64 {
	ids := make([]uint64, 0, len(r.sinks))
	for id := range r.sinks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// snapshot copies the current membership so a detach during delivery cannot
// disturb iteration.
func (r *Registry) snapshot() []Sink {
	out := make([]Sink, 0, len(r.sinks))
	for _, id := range r.IDs() {
		out = append(out, r.sinks[id])
	}
	return out
}

// ChanSink delivers events into a buffered channel and drops them when the
// channel is full.
type ChanSink struct {
	ch chan Event
}

// NewChanSink creates a channel sink with the given buffer size.
func NewChanSink(size int) *ChanSink {
	if size <= 0 {
		size = 256
	}
	return &ChanSink{ch: make(chan Event, size)}
}

func (s *ChanSink) Deliver(ev Event) error {
	select {
	case s.ch <- ev:
		return nil
	default:
		return ErrSinkFull
	}
}

// Events returns the receive side of the sink.
func (s *ChanSink) Events() <-chan Event { return s.ch }

// Close closes the channel. The owner must detach the sink first.
func (s *ChanSink) Close() { close(s.ch) }

// Stream is a live feed of console events owned by one reader. Events is
// closed after Close or when the producer shuts down.
type Stream interface {
	Events() <-chan Event
	Close()
}
