package supervisor

import (
	"errors"
	"io"
	"sync"
)

// DefaultStdinQueue is the default number of lines queued for a child's
// standard input.
const DefaultStdinQueue = 64

var errStdinFull = errors.New("stdin queue full")

// stdinWriter feeds one run's standard input from its own goroutine, so a
// child that stops reading never stalls the loop.
type stdinWriter struct {
	w     io.WriteCloser
	queue chan string
	quit  chan struct{}

	mu  sync.Mutex
	err error

	stopOnce sync.Once
}

// newStdinWriter starts the writer. onErr is called at most once, from the
// writer goroutine, with the first write error seen before stop.
func newStdinWriter(w io.WriteCloser, size int, onErr func(error)) *stdinWriter {
	if size <= 0 {
		size = DefaultStdinQueue
	}
	sw := &stdinWriter{
		w:     w,
		queue: make(chan string, size),
		quit:  make(chan struct{}),
	}
	go sw.run(onErr)
	return sw
}

// enqueue never blocks. It fails once a write has failed or when the queue
// is full.
func (sw *stdinWriter) enqueue(line string) error {
	if err := sw.failure(); err != nil {
		return err
	}
	select {
	case <-sw.quit:
		return io.ErrClosedPipe
	default:
	}
	select {
	case sw.queue <- line:
		return nil
	default:
		return errStdinFull
	}
}

func (sw *stdinWriter) failure() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.err
}

func (sw *stdinWriter) run(onErr func(error)) {
	for {
		select {
		case <-sw.quit:
			return
		case line := <-sw.queue:
			if _, err := io.WriteString(sw.w, line); err != nil {
				sw.mu.Lock()
				sw.err = err
				sw.mu.Unlock()
				select {
				case <-sw.quit:
				default:
					onErr(err)
				}
				return
			}
		}
	}
}

// stop closes the pipe, which also releases a write blocked on a full pipe.
func (sw *stdinWriter) stop() {
	sw.stopOnce.Do(func() {
		close(sw.quit)
		_ = sw.w.Close()
	})
}
