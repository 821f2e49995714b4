package logsource

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log"
	"regexp"

	"github.com/tinytelemetry/craftpanel/internal/model"
)

const (
	// DefaultPipeBuffer is the default channel buffer size for pipe lines.
	DefaultPipeBuffer = 4096

	// DefaultMaxLineSize is the longest line emitted as one unit. Longer
	// output is split into several lines instead of stalling the pipe.
	DefaultMaxLineSize = 64 * 1024
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)

// PipeConfig holds tunable parameters for a pipe source.
type PipeConfig struct {
	BufferSize  int
	MaxLineSize int
}

// PipeSource reads newline-delimited text from an io.Reader, typically one of
// the child's output streams. The Lines channel closes when the reader hits
// EOF or fails, or after Stop.
type PipeSource struct {
	name   string
	ch     chan model.IngestEnvelope
	cancel context.CancelFunc
}

// NewPipeSource starts reading r in a background goroutine.
func NewPipeSource(ctx context.Context, name string, r io.Reader, conf ...PipeConfig) *PipeSource {
	bufferSize := DefaultPipeBuffer
	maxLineSize := DefaultMaxLineSize
	if len(conf) > 0 {
		if conf[0].BufferSize > 0 {
			bufferSize = conf[0].BufferSize
		}
		if conf[0].MaxLineSize > 0 {
			maxLineSize = conf[0].MaxLineSize
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &PipeSource{
		name:   name,
		ch:     make(chan model.IngestEnvelope, bufferSize),
		cancel: cancel,
	}
	go s.read(ctx, r, maxLineSize)
	return s
}

func (s *PipeSource) read(ctx context.Context, r io.Reader, maxLineSize int) {
	defer close(s.ch)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	scanner.Split(splitLines(maxLineSize))

	for scanner.Scan() {
		line := CleanLine(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case s.ch <- model.IngestEnvelope{Source: s.name, Line: line}:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("logsource: %s read error: %v", s.name, err)
	}
}

// splitLines behaves like bufio.ScanLines but emits a full buffer as a line
// instead of failing with bufio.ErrTooLong.
func splitLines(maxLineSize int) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			return i + 1, data[:i], nil
		}
		if len(data) >= maxLineSize {
			return maxLineSize, data[:maxLineSize], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}

// CleanLine strips terminal escape sequences and carriage returns.
func CleanLine(line string) string {
	line = ansiEscape.ReplaceAllString(line, "")
	return string(bytes.TrimRight([]byte(line), "\r"))
}

func (s *PipeSource) Lines() <-chan model.IngestEnvelope { return s.ch }
func (s *PipeSource) Stop()                              { s.cancel() }
func (s *PipeSource) Name() string                       { return s.name }
