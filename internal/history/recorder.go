package history

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinytelemetry/craftpanel/internal/model"
)

// DefaultQueueSize is the number of lifecycle events that can wait for the
// writer before new ones are dropped.
const DefaultQueueSize = 256

// Writer is the persistence side of the recorder.
type Writer interface {
	InsertRun(run model.RunRecord) error
	FinishRun(runID string, stoppedAt time.Time, exitCode int, forced bool) error
	InsertCommands(cmds []model.CommandRecord) error
}

type opKind int

const (
	opStart opKind = iota
	opExit
	opCommand
)

type op struct {
	kind     opKind
	run      model.RunRecord
	runID    string
	at       time.Time
	exitCode int
	forced   bool
	cmd      model.CommandRecord
}

// Recorder persists supervisor lifecycle events on a background goroutine.
// The RunRecorder methods never block: when the queue is full the event is
// dropped and a throttled warning is logged.
type Recorder struct {
	writer   Writer
	queue    chan op
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  atomic.Bool

	dropped  atomic.Int64
	lastDrop atomic.Int64 // unix timestamp of last drop log
}

// RecorderConfig holds tunable parameters for the recorder.
type RecorderConfig struct {
	QueueSize int
}

// NewRecorder starts a recorder writing to w.
func NewRecorder(w Writer, conf ...RecorderConfig) *Recorder {
	size := DefaultQueueSize
	if len(conf) > 0 && conf[0].QueueSize > 0 {
		size = conf[0].QueueSize
	}
	r := &Recorder{
		writer: w,
		queue:  make(chan op, size),
		done:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// RunStarted implements model.RunRecorder.
func (r *Recorder) RunStarted(run model.RunRecord) {
	r.enqueue(op{kind: opStart, run: run})
}

// RunExited implements model.RunRecorder.
func (r *Recorder) RunExited(runID string, exitCode int, forced bool) {
	r.enqueue(op{kind: opExit, runID: runID, at: time.Now(), exitCode: exitCode, forced: forced})
}

// CommandSent implements model.RunRecorder.
func (r *Recorder) CommandSent(cmd model.CommandRecord) {
	r.enqueue(op{kind: opCommand, cmd: cmd})
}

// Dropped returns how many events were discarded because the queue was full.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

func (r *Recorder) enqueue(o op) {
	if r.stopped.Load() {
		return
	}
	select {
	case r.queue <- o:
	default:
		r.logDrop()
	}
}

// logDrop emits a throttled warning (at most once per 10 seconds).
func (r *Recorder) logDrop() {
	count := r.dropped.Add(1)
	now := time.Now().Unix()
	last := r.lastDrop.Load()
	if now-last >= 10 && r.lastDrop.CompareAndSwap(last, now) {
		log.Printf("history: queue full, %d events dropped", count)
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for {
		select {
		case o := <-r.queue:
			r.apply(o)
		case <-r.done:
			// final drain
			for {
				select {
				case o := <-r.queue:
					r.apply(o)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) apply(o op) {
	var (
		err  error
		next *op
	)
	switch o.kind {
	case opStart:
		err = r.writer.InsertRun(o.run)
	case opExit:
		err = r.writer.FinishRun(o.runID, o.at, o.exitCode, o.forced)
	case opCommand:
		var batch []model.CommandRecord
		batch, next = r.collectCommands(o.cmd)
		err = r.writer.InsertCommands(batch)
	}
	if err != nil {
		log.Printf("history: write error: %v", err)
	}
	if next != nil {
		r.apply(*next)
	}
}

// collectCommands pulls queued commands that directly follow first so they
// share a transaction. A non-command event ends the batch and is returned to
// be applied after it.
func (r *Recorder) collectCommands(first model.CommandRecord) ([]model.CommandRecord, *op) {
	batch := []model.CommandRecord{first}
	for {
		select {
		case o := <-r.queue:
			if o.kind != opCommand {
				return batch, &o
			}
			batch = append(batch, o.cmd)
		default:
			return batch, nil
		}
	}
}

// Stop drains queued events and waits for the writer to finish.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		close(r.done)
		r.wg.Wait()
	})
}

var _ model.RunRecorder = (*Recorder)(nil)
