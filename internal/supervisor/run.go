package supervisor

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tinytelemetry/craftpanel/internal/logsource"
	"github.com/tinytelemetry/craftpanel/internal/model"
)

// run is the process slot. Only the loop goroutine touches it.
type run struct {
	id         string
	generation uint64
	pid        int
	proc       Process
	stdin      *stdinWriter
	startedAt  time.Time
	forced     bool
}

// SystemLine marks text as synthesized by the panel.
func SystemLine(text string) string {
	return model.SystemLinePrefix + text
}

func (s *Supervisor) launch(spec LaunchSpec) (model.StartResult, error) {
	proc, err := s.opts.Spawner.Spawn(spec)
	if err != nil {
		s.broadcaster.Ingest(SystemLine("Spawn failed: " + err.Error()))
		log.Printf("supervisor: spawn failed: %v", err)
		if errors.Is(err, ErrExecutableMissing) || errors.Is(err, ErrLicenseRequired) {
			return model.StartResult{}, err
		}
		return model.StartResult{}, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	s.generation++
	r := &run{
		id:         uuid.NewString(),
		generation: s.generation,
		pid:        proc.Pid(),
		proc:       proc,
		startedAt:  time.Now().UTC(),
	}
	r.stdin = newStdinWriter(proc.Stdin(), s.opts.StdinQueue, func(err error) {
		s.post(stdinErrEvent{generation: r.generation, err: err})
	})
	s.current = r

	buf := s.broadcaster.Buffer()
	buf.SetCapacity(s.opts.Capacity())
	buf.Reset()
	s.broadcaster.Ingest(SystemLine("Server starting..."))

	s.opts.Recorder.RunStarted(model.RunRecord{
		ID:            r.id,
		PID:           r.pid,
		ServerType:    spec.ServerType,
		ServerVersion: spec.ServerVersion,
		StartedAt:     r.startedAt,
	})
	log.Printf("supervisor: started pid %d (run %s)", r.pid, r.id)

	go s.pump(r)
	return model.StartResult{PID: r.pid}, nil
}

// pump forwards the child's output to the loop, then reaps it. The exit
// event is posted only after both streams have closed, so the stopped line
// always follows the last output line.
func (s *Supervisor) pump(r *run) {
	sources := []logsource.LogSource{
		logsource.NewPipeSource(s.ctx, "stdout", r.proc.Stdout()),
		logsource.NewPipeSource(s.ctx, "stderr", r.proc.Stderr()),
	}
	mux := newOutputMux(s.ctx, sources, 0)
	mux.Start()

	open := true
	mux.Drain(func(env model.IngestEnvelope) {
		if open {
			open = s.post(lineEvent{line: env.Line})
		}
	})

	code, err := r.proc.Wait()
	s.post(exitEvent{generation: r.generation, code: code, err: err})
}

func (s *Supervisor) sendLine(text string) error {
	if s.current == nil {
		return ErrNotRunning
	}
	if err := s.current.stdin.enqueue(text + "\n"); err != nil {
		s.broadcaster.Ingest(SystemLine("Command failed: " + err.Error()))
		return fmt.Errorf("%w: %v", ErrCommandFailed, err)
	}
	s.opts.Recorder.CommandSent(model.CommandRecord{
		RunID:   s.current.id,
		At:      time.Now().UTC(),
		Command: text,
	})
	return nil
}

func (s *Supervisor) handleExit(ev exitEvent) {
	r := s.current
	if r == nil || r.generation != ev.generation {
		return
	}
	s.current = nil
	r.stdin.stop()

	if ev.err != nil {
		log.Printf("supervisor: wait pid %d: %v", r.pid, ev.err)
	}
	log.Printf("supervisor: pid %d exited with code %d", r.pid, ev.code)

	s.broadcaster.Ingest(SystemLine(fmt.Sprintf("Server stopped (code %d).", ev.code)))
	s.opts.Recorder.RunExited(r.id, ev.code, r.forced)
	s.rehydrate()

	for _, w := range s.exitWaiters {
		close(w)
	}
	s.exitWaiters = nil
}

// rehydrate replaces the buffer with the tail of the child's log file. A
// failed or empty read leaves the buffer as it is.
func (s *Supervisor) rehydrate() {
	n := s.opts.Capacity()
	buf := s.broadcaster.Buffer()
	buf.SetCapacity(n)
	if s.opts.Tail == nil {
		return
	}
	lines, err := s.opts.Tail.TailLines(buf.Cap())
	if err != nil {
		log.Printf("supervisor: rehydrate from log file: %v", err)
		return
	}
	if len(lines) == 0 {
		return
	}
	buf.Replace(lines)
}

// handleStdinErr reports a failed background write. Errors from a run that
// has already exited are only logged.
func (s *Supervisor) handleStdinErr(ev stdinErrEvent) {
	log.Printf("supervisor: stdin write (generation %d): %v", ev.generation, ev.err)
	if s.current == nil || s.current.generation != ev.generation {
		return
	}
	s.broadcaster.Ingest(SystemLine("Command failed: " + ev.err.Error()))
}

func (s *Supervisor) handleKill(ev killEvent) {
	if s.current == nil || s.current.generation != ev.generation {
		return
	}
	s.killCurrent()
}

func (s *Supervisor) killCurrent() {
	r := s.current
	if r == nil {
		return
	}
	r.forced = true
	log.Printf("supervisor: force killing pid %d", r.pid)
	if err := r.proc.Kill(); err != nil {
		log.Printf("supervisor: kill pid %d: %v", r.pid, err)
	}
}
