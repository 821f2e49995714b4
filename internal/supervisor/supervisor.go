package supervisor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tinytelemetry/craftpanel/internal/console"
	"github.com/tinytelemetry/craftpanel/internal/model"
)

// DefaultEventBuffer is the default mailbox size of the supervisor loop.
const DefaultEventBuffer = 1024

// LogTail reads the last n lines of the child's own persistent log file.
type LogTail interface {
	TailLines(n int) ([]string, error)
}

// LogTailFunc adapts a function to LogTail.
type LogTailFunc func(n int) ([]string, error)

func (f LogTailFunc) TailLines(n int) ([]string, error) { return f(n) }

// Options configures a Supervisor. Only Spawner is required for Launch;
// Start additionally needs a Planner.
type Options struct {
	Spawner Spawner
	Planner Planner

	// Capacity returns the line buffer capacity. It is read before each
	// start and again when the child exits.
	Capacity func() int
	// Tail rehydrates the buffer after the child exits.
	Tail LogTail
	// Recorder receives run lifecycle events.
	Recorder model.RunRecorder

	StopCommand string
	EventBuffer int
	// StdinQueue bounds the lines waiting to be written to the child.
	StdinQueue int
}

// Supervisor owns at most one child process. Every mutation of the process
// slot, the line buffer and the subscriber set happens on a single loop
// goroutine; the exported methods post requests to it and wait for the
// answer.
type Supervisor struct {
	opts   Options
	events chan event
	quit   chan struct{}
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	// Loop-owned state.
	broadcaster *console.Broadcaster
	current     *run
	generation  uint64
	subs        map[uint64]*console.ChanSink
	exitWaiters []chan struct{}
}

// New creates a supervisor and starts its event loop.
func New(opts Options) *Supervisor {
	if opts.Spawner == nil {
		opts.Spawner = ExecSpawner{}
	}
	if opts.Capacity == nil {
		opts.Capacity = func() int { return model.DefaultLogLines }
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.StopCommand == "" {
		opts.StopCommand = model.StopCommand
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		opts:        opts,
		events:      make(chan event, opts.EventBuffer),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		broadcaster: console.NewBroadcaster(console.NewLineBuffer(opts.Capacity()), console.NewRegistry()),
		subs:        make(map[uint64]*console.ChanSink),
	}
	go s.loop()
	return s
}

type event interface{}

type callEvent struct {
	fn   func()
	done chan struct{}
}

type lineEvent struct {
	line string
}

type exitEvent struct {
	generation uint64
	code       int
	err        error
}

type killEvent struct {
	generation uint64
}

type stdinErrEvent struct {
	generation uint64
	err        error
}

func (s *Supervisor) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			s.shutdown()
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *Supervisor) handle(ev event) {
	switch ev := ev.(type) {
	case callEvent:
		ev.fn()
		close(ev.done)
	case lineEvent:
		s.broadcaster.Ingest(ev.line)
	case exitEvent:
		s.handleExit(ev)
	case killEvent:
		s.handleKill(ev)
	case stdinErrEvent:
		s.handleStdinErr(ev)
	}
}

func (s *Supervisor) shutdown() {
	s.cancel()
	if s.current != nil {
		s.current.stdin.stop()
	}
	for id, sink := range s.subs {
		s.broadcaster.Registry().Detach(id)
		sink.Close()
	}
	clear(s.subs)
	for _, w := range s.exitWaiters {
		close(w)
	}
	s.exitWaiters = nil
}

// post hands an internal event to the loop. It reports false once the
// supervisor has shut down.
func (s *Supervisor) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// call runs fn on the loop and waits for it to finish. ctx only bounds the
// enqueue; once accepted, fn always runs to completion before call returns.
func (s *Supervisor) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.events <- callEvent{fn: fn, done: done}:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-s.done:
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Start plans the next launch and spawns it. A running child makes Start a
// no-op that reports AlreadyRunning.
func (s *Supervisor) Start(ctx context.Context) (model.StartResult, error) {
	var (
		res model.StartResult
		err error
	)
	if cerr := s.call(ctx, func() {
		if s.current != nil {
			res = model.StartResult{AlreadyRunning: true, PID: s.current.pid}
			return
		}
		if s.opts.Planner == nil {
			err = ErrExecutableMissing
			return
		}
		var spec LaunchSpec
		spec, err = s.opts.Planner.Plan(ctx)
		if err != nil {
			return
		}
		res, err = s.launch(spec)
	}); cerr != nil {
		return model.StartResult{}, cerr
	}
	return res, err
}

// Launch spawns spec directly, bypassing the planner.
func (s *Supervisor) Launch(ctx context.Context, spec LaunchSpec) (model.StartResult, error) {
	var (
		res model.StartResult
		err error
	)
	if cerr := s.call(ctx, func() {
		if s.current != nil {
			res = model.StartResult{AlreadyRunning: true, PID: s.current.pid}
			return
		}
		res, err = s.launch(spec)
	}); cerr != nil {
		return model.StartResult{}, cerr
	}
	return res, err
}

// IsRunning reports whether a child exists that has not been observed to exit.
func (s *Supervisor) IsRunning(ctx context.Context) (bool, error) {
	var running bool
	err := s.call(ctx, func() { running = s.current != nil })
	return running, err
}

// Status returns liveness and pid of the current child.
func (s *Supervisor) Status(ctx context.Context) (model.Status, error) {
	var st model.Status
	err := s.call(ctx, func() {
		if s.current != nil {
			st = model.Status{Running: true, PID: s.current.pid, StartedAt: s.current.startedAt}
		}
	})
	return st, err
}

// SendLine queues text and a newline for the child's standard input. It
// does not wait for the write; ErrCommandFailed is returned when the queue
// is full or an earlier write to this child failed.
func (s *Supervisor) SendLine(ctx context.Context, text string) error {
	var err error
	if cerr := s.call(ctx, func() { err = s.sendLine(text) }); cerr != nil {
		return cerr
	}
	return err
}

// RequestGracefulStop sends the stop command. It does not wait for exit and
// is a no-op when nothing is running.
func (s *Supervisor) RequestGracefulStop(ctx context.Context) error {
	var err error
	if cerr := s.call(ctx, func() {
		if s.current == nil {
			return
		}
		err = s.sendLine(s.opts.StopCommand)
	}); cerr != nil {
		return cerr
	}
	return err
}

// ForceKillAfter schedules a hard kill of the current child after d. The
// kill is skipped if that child has exited by the time the timer fires.
func (s *Supervisor) ForceKillAfter(ctx context.Context, d time.Duration) error {
	return s.call(ctx, func() {
		if s.current == nil {
			return
		}
		gen := s.current.generation
		time.AfterFunc(d, func() { s.post(killEvent{generation: gen}) })
	})
}

// Announce ingests a system line.
func (s *Supervisor) Announce(ctx context.Context, text string) error {
	return s.call(ctx, func() { s.broadcaster.Ingest(SystemLine(text)) })
}

// RecentLines returns a snapshot of the line buffer, oldest first.
func (s *Supervisor) RecentLines(ctx context.Context) ([]string, error) {
	var lines []string
	err := s.call(ctx, func() { lines = s.broadcaster.Buffer().Lines() })
	return lines, err
}

// Attach registers a live sink. The sink receives only lines ingested after
// it was attached.
func (s *Supervisor) Attach(ctx context.Context, sink console.Sink) (uint64, error) {
	var id uint64
	err := s.call(ctx, func() { id = s.broadcaster.Registry().Attach(sink) })
	return id, err
}

// Detach removes a sink registered with Attach.
func (s *Supervisor) Detach(ctx context.Context, id uint64) error {
	return s.call(ctx, func() { s.detach(id) })
}

func (s *Supervisor) detach(id uint64) {
	s.broadcaster.Registry().Detach(id)
	if sink, ok := s.subs[id]; ok {
		delete(s.subs, id)
		sink.Close()
	}
}

// Subscription is a channel-backed live subscriber.
type Subscription struct {
	C <-chan console.Event

	id   uint64
	sup  *Supervisor
	once sync.Once
}

// Subscribe attaches a buffered channel sink. Lines that arrive while the
// buffer is full are dropped for this subscriber only. C is closed by
// Close or when the supervisor shuts down.
func (s *Supervisor) Subscribe(ctx context.Context, size int) (*Subscription, error) {
	sink := console.NewChanSink(size)
	var id uint64
	if err := s.call(ctx, func() {
		id = s.broadcaster.Registry().Attach(sink)
		s.subs[id] = sink
	}); err != nil {
		return nil, err
	}
	return &Subscription{C: sink.Events(), id: id, sup: s}, nil
}

// Events implements console.Stream.
func (sub *Subscription) Events() <-chan console.Event { return sub.C }

// Close detaches the subscription.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		_ = sub.sup.call(context.Background(), func() { sub.sup.detach(sub.id) })
	})
}

// SubscriberCount returns the number of attached sinks.
func (s *Supervisor) SubscriberCount(ctx context.Context) (int, error) {
	var n int
	err := s.call(ctx, func() { n = s.broadcaster.Registry().Len() })
	return n, err
}

// WaitExit blocks until the current child exits. It returns immediately
// when nothing is running.
func (s *Supervisor) WaitExit(ctx context.Context) error {
	var ch chan struct{}
	if err := s.call(ctx, func() {
		if s.current == nil {
			return
		}
		ch = make(chan struct{})
		s.exitWaiters = append(s.exitWaiters, ch)
	}); err != nil {
		return err
	}
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops a running child and shuts the loop down. The child is asked
// to stop gracefully and killed if ctx expires first.
func (s *Supervisor) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if running, _ := s.IsRunning(ctx); running {
			_ = s.RequestGracefulStop(ctx)
			if werr := s.WaitExit(ctx); werr != nil {
				log.Printf("supervisor: child did not stop in time, killing")
				_ = s.call(context.Background(), s.killCurrent)
				killCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				if kerr := s.WaitExit(killCtx); kerr != nil {
					err = kerr
				}
				cancel()
			}
		}
		close(s.quit)
		<-s.done
	})
	return err
}

type nopRecorder struct{}

func (nopRecorder) RunStarted(model.RunRecord)      {}
func (nopRecorder) RunExited(string, int, bool)     {}
func (nopRecorder) CommandSent(model.CommandRecord) {}
