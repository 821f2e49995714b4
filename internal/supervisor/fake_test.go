package supervisor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tinytelemetry/craftpanel/internal/model"
)

type fakeProcess struct {
	pid int

	stdinR *io.PipeReader
	stdinW *io.PipeWriter
	outR   *io.PipeReader
	outW   *io.PipeWriter
	errR   *io.PipeReader
	errW   *io.PipeWriter

	input    chan string
	exitCode chan int
	exitOnce sync.Once
	kills    atomic.Int32
}

// newFakeProcess returns a fake child. A fake created with readStdin false
// never drains its standard input.
func newFakeProcess(pid int, readStdin bool) *fakeProcess {
	p := &fakeProcess{
		pid:      pid,
		input:    make(chan string, 64),
		exitCode: make(chan int, 1),
	}
	p.stdinR, p.stdinW = io.Pipe()
	p.outR, p.outW = io.Pipe()
	p.errR, p.errW = io.Pipe()
	if !readStdin {
		return p
	}
	go func() {
		sc := bufio.NewScanner(p.stdinR)
		for sc.Scan() {
			p.input <- sc.Text()
		}
	}()
	return p
}

func (p *fakeProcess) Pid() int              { return p.pid }
func (p *fakeProcess) Stdin() io.WriteCloser { return p.stdinW }
func (p *fakeProcess) Stdout() io.Reader     { return p.outR }
func (p *fakeProcess) Stderr() io.Reader     { return p.errR }

func (p *fakeProcess) Wait() (int, error) {
	return <-p.exitCode, nil
}

func (p *fakeProcess) Kill() error {
	p.kills.Add(1)
	p.exit(-1)
	return nil
}

// print writes lines to stdout without waiting for them to be consumed.
func (p *fakeProcess) print(lines ...string) {
	_, _ = io.WriteString(p.outW, strings.Join(lines, "\n")+"\n")
}

func (p *fakeProcess) printErr(line string) {
	_, _ = io.WriteString(p.errW, line+"\n")
}

func (p *fakeProcess) exit(code int) {
	p.exitOnce.Do(func() {
		_ = p.outW.Close()
		_ = p.errW.Close()
		_ = p.stdinR.Close()
		p.exitCode <- code
	})
}

type fakeSpawner struct {
	mu      sync.Mutex
	nextPID int
	err     error
	// stuckStdin makes spawned children ignore their standard input.
	stuckStdin bool
	procs   []*fakeProcess
	specs   []LaunchSpec
}

func (s *fakeSpawner) Spawn(spec LaunchSpec) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = append(s.specs, spec)
	if s.err != nil {
		return nil, s.err
	}
	s.nextPID++
	p := newFakeProcess(1000+s.nextPID, !s.stuckStdin)
	s.procs = append(s.procs, p)
	return p, nil
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

func (s *fakeSpawner) last() *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.procs) == 0 {
		return nil
	}
	return s.procs[len(s.procs)-1]
}

type fakeRecorder struct {
	mu       sync.Mutex
	started  []model.RunRecord
	exited   []string
	forced   []bool
	codes    []int
	commands []model.CommandRecord
}

func (r *fakeRecorder) RunStarted(run model.RunRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, run)
}

func (r *fakeRecorder) RunExited(runID string, exitCode int, forced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exited = append(r.exited, runID)
	r.codes = append(r.codes, exitCode)
	r.forced = append(r.forced, forced)
}

func (r *fakeRecorder) CommandSent(cmd model.CommandRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

var errBoom = errors.New("boom")

func staticPlan(spec LaunchSpec) Planner {
	return PlannerFunc(func(context.Context) (LaunchSpec, error) { return spec, nil })
}

func newTestSupervisor(t *testing.T, opts Options) (*Supervisor, *fakeSpawner) {
	t.Helper()
	sp := &fakeSpawner{}
	opts.Spawner = sp
	if opts.Planner == nil {
		opts.Planner = staticPlan(LaunchSpec{Path: "java", Args: []string{"-jar", "server.jar"}})
	}
	s := New(opts)
	t.Cleanup(func() {
		if p := sp.last(); p != nil {
			p.exit(0)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s, sp
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func recentLines(t *testing.T, s *Supervisor) []string {
	t.Helper()
	lines, err := s.RecentLines(context.Background())
	if err != nil {
		t.Fatalf("RecentLines: %v", err)
	}
	return lines
}

func waitLines(t *testing.T, s *Supervisor, n int) []string {
	t.Helper()
	var lines []string
	waitFor(t, "buffered lines", func() bool {
		lines = recentLines(t, s)
		return len(lines) >= n
	})
	return lines
}

func waitInput(t *testing.T, p *fakeProcess) string {
	t.Helper()
	select {
	case line := <-p.input:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stdin line")
		return ""
	}
}
