package panel

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tinytelemetry/craftpanel/internal/distribution"
	"github.com/tinytelemetry/craftpanel/internal/model"
	"github.com/tinytelemetry/craftpanel/internal/settings"
	"github.com/tinytelemetry/craftpanel/internal/supervisor"
)

type fakeProcess struct {
	stdinR *io.PipeReader
	stdinW *io.PipeWriter
	outR   *io.PipeReader
	outW   *io.PipeWriter
	errR   *io.PipeReader
	errW   *io.PipeWriter

	input    chan string
	exitCode chan int
	once     sync.Once
	// exitOnStop makes the process exit when it reads "stop".
	exitOnStop bool
}

func newFakeProcess(exitOnStop bool) *fakeProcess {
	p := &fakeProcess{input: make(chan string, 64), exitCode: make(chan int, 1), exitOnStop: exitOnStop}
	p.stdinR, p.stdinW = io.Pipe()
	p.outR, p.outW = io.Pipe()
	p.errR, p.errW = io.Pipe()
	go func() {
		sc := bufio.NewScanner(p.stdinR)
		for sc.Scan() {
			line := sc.Text()
			p.input <- line
			if line == "stop" && p.exitOnStop {
				p.exit(0)
				return
			}
		}
	}()
	return p
}

func (p *fakeProcess) Pid() int              { return 4242 }
func (p *fakeProcess) Stdin() io.WriteCloser { return p.stdinW }
func (p *fakeProcess) Stdout() io.Reader     { return p.outR }
func (p *fakeProcess) Stderr() io.Reader     { return p.errR }
func (p *fakeProcess) Wait() (int, error)    { return <-p.exitCode, nil }

func (p *fakeProcess) Kill() error {
	p.exit(-1)
	return nil
}

func (p *fakeProcess) exit(code int) {
	p.once.Do(func() {
		_ = p.outW.Close()
		_ = p.errW.Close()
		_ = p.stdinR.Close()
		p.exitCode <- code
	})
}

type fakeSpawner struct {
	mu         sync.Mutex
	exitOnStop bool
	specs      []supervisor.LaunchSpec
	procs      []*fakeProcess
}

func (s *fakeSpawner) Spawn(spec supervisor.LaunchSpec) (supervisor.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := newFakeProcess(s.exitOnStop)
	s.specs = append(s.specs, spec)
	s.procs = append(s.procs, p)
	return p, nil
}

func (s *fakeSpawner) last() (*fakeProcess, supervisor.LaunchSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.procs) == 0 {
		return nil, supervisor.LaunchSpec{}
	}
	return s.procs[len(s.procs)-1], s.specs[len(s.specs)-1]
}

type fakeDistribution struct {
	mu        sync.Mutex
	url       string
	build     string
	body      []byte
	err       error
	downloads []string
}

func (d *fakeDistribution) Versions(context.Context, string) (distribution.VersionList, error) {
	return distribution.VersionList{Versions: []string{"1.21.1"}, Latest: "1.21.1"}, nil
}

func (d *fakeDistribution) Builds(context.Context, string, string) ([]int, error) {
	return []int{1, 2}, nil
}

func (d *fakeDistribution) Resolve(_ context.Context, _, _, build string) (string, string, error) {
	if d.err != nil {
		return "", "", d.err
	}
	if build == "" {
		build = d.build
	}
	return d.url, build, nil
}

func (d *fakeDistribution) Download(_ context.Context, url, dest string) error {
	d.mu.Lock()
	d.downloads = append(d.downloads, url)
	d.mu.Unlock()
	return os.WriteFile(dest, d.body, 0o644)
}

type fakeLookup struct{ ip string }

func (l fakeLookup) UUID(_ context.Context, name string) (string, error) {
	return "uuid-" + name, nil
}

func (l fakeLookup) ExternalIP(context.Context) string { return l.ip }

type fakeHistory struct{ runs []model.RunRecord }

func (h fakeHistory) RecentRuns(int) ([]model.RunRecord, error) { return h.runs, nil }
func (h fakeHistory) RunCommands(string, int) ([]model.CommandRecord, error) {
	return []model.CommandRecord{}, nil
}

type testEnv struct {
	root    string
	store   *settings.Store
	spawner *fakeSpawner
	dist    *fakeDistribution
	svc     *Service
	sleeps  []time.Duration
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		root:    root,
		store:   settings.NewStore(filepath.Join(root, "data", "app-config.json")),
		spawner: &fakeSpawner{},
		dist:    &fakeDistribution{url: "https://example.invalid/server.jar", build: "7", body: []byte("jar")},
	}
	opts := Options{
		Root:         root,
		Settings:     env.store,
		Spawner:      env.spawner,
		Distribution: env.dist,
		Lookup:       fakeLookup{ip: "203.0.113.9"},
		LocalIPs:     func() []string { return []string{"192.168.1.5"} },
		Host:         "127.0.0.1",
		Port:         3030,
		Sleep: func(_ context.Context, d time.Duration) error {
			env.sleeps = append(env.sleeps, d)
			return nil
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	env.svc = New(opts)
	t.Cleanup(func() {
		if p, _ := env.spawner.last(); p != nil {
			p.exit(0)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = env.svc.Close(ctx)
	})
	return env
}

func (e *testEnv) serverDir() string { return filepath.Join(e.root, "server") }

// install places a jar and an accepted eula in the server directory.
func (e *testEnv) install(t *testing.T) {
	t.Helper()
	dir := e.serverDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "server.jar"), []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "eula.txt"), []byte("eula=true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
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

func hasLine(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}
