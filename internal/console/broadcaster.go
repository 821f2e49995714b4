package console

// Broadcaster is the single ingestion point for console output. Every line
// goes to the buffer and then to each attached sink, in ingest order.
type Broadcaster struct {
	buffer   *LineBuffer
	registry *Registry
	failures uint64
}

// NewBroadcaster wires a buffer and a registry together.
func NewBroadcaster(buffer *LineBuffer, registry *Registry) *Broadcaster {
	return &Broadcaster{buffer: buffer, registry: registry}
}

// Ingest records line and fans it out. Empty lines are ignored. A sink whose
// delivery fails misses this line only.
func (b *Broadcaster) Ingest(line string) {
	if line == "" {
		return
	}
	b.buffer.Append(line)
	ev := Event{Line: line}
	for _, s := range b.registry.snapshot() {
		if err := s.Deliver(ev); err != nil {
			b.failures++
		}
	}
}

// Buffer returns the backing line buffer.
func (b *Broadcaster) Buffer() *LineBuffer { return b.buffer }

// Registry returns the subscriber registry.
func (b *Broadcaster) Registry() *Registry { return b.registry }

// Failures returns how many per-sink deliveries have failed so far.
func (b *Broadcaster) Failures() uint64 { return b.failures }
