package supervisor

import (
	"context"
	"sync"

	"github.com/tinytelemetry/craftpanel/internal/logsource"
	"github.com/tinytelemetry/craftpanel/internal/model"
)

// DefaultMuxBuffer is the default channel buffer size for the output multiplexer.
const DefaultMuxBuffer = 1024

// outputMux merges a child's stdout and stderr into one stream in arrival
// order. Lines closes once every source has closed.
type outputMux struct {
	ctx    context.Context
	cancel context.CancelFunc

	sources []logsource.LogSource
	lines   chan model.IngestEnvelope

	startOnce sync.Once
	stopOnce  sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newOutputMux(parent context.Context, sources []logsource.LogSource, buffer int) *outputMux {
	if buffer <= 0 {
		buffer = DefaultMuxBuffer
	}
	ctx, cancel := context.WithCancel(parent)
	return &outputMux{
		ctx:     ctx,
		cancel:  cancel,
		sources: sources,
		lines:   make(chan model.IngestEnvelope, buffer),
	}
}

func (m *outputMux) Start() {
	m.startOnce.Do(func() {
		if len(m.sources) == 0 {
			m.closeOutput()
			return
		}

		for _, src := range m.sources {
			m.wg.Add(1)
			go m.forward(src)
		}

		go func() {
			m.wg.Wait()
			m.closeOutput()
		}()
	})
}

func (m *outputMux) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		for _, src := range m.sources {
			src.Stop()
		}
		m.wg.Wait()
		m.closeOutput()
	})
}

// Drain hands every line to fn until all sources have closed, then stops
// the mux so its contexts are released.
func (m *outputMux) Drain(fn func(model.IngestEnvelope)) {
	for env := range m.lines {
		fn(env)
	}
	m.Stop()
}

func (m *outputMux) Lines() <-chan model.IngestEnvelope {
	return m.lines
}

func (m *outputMux) forward(src logsource.LogSource) {
	defer m.wg.Done()

	sourceLines := src.Lines()
	for {
		select {
		case <-m.ctx.Done():
			return
		case line, ok := <-sourceLines:
			if !ok {
				return
			}
			if line.Line == "" {
				continue
			}
			select {
			case m.lines <- line:
			case <-m.ctx.Done():
				return
			}
		}
	}
}

func (m *outputMux) closeOutput() {
	m.closeOnce.Do(func() {
		close(m.lines)
	})
}
