package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"syscall"
)

// LaunchSpec describes one child process launch. ServerType and
// ServerVersion are labels carried into run history.
type LaunchSpec struct {
	Path          string
	Args          []string
	Dir           string
	Env           []string
	ServerType    string
	ServerVersion string
}

// Planner resolves the launch for the next Start. It returns
// ErrExecutableMissing or ErrLicenseRequired when a precondition is unmet.
type Planner interface {
	Plan(ctx context.Context) (LaunchSpec, error)
}

// PlannerFunc adapts a function to Planner.
type PlannerFunc func(ctx context.Context) (LaunchSpec, error)

func (f PlannerFunc) Plan(ctx context.Context) (LaunchSpec, error) { return f(ctx) }

// Process is a started child with its three redirected streams.
type Process interface {
	Pid() int
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the child exits. A child terminated by a signal
	// reports code -1.
	Wait() (code int, err error)
	Kill() error
}

// Spawner starts child processes.
type Spawner interface {
	Spawn(spec LaunchSpec) (Process, error)
}

// ExecSpawner starts processes with os/exec.
type ExecSpawner struct{}

func (ExecSpawner) Spawn(spec LaunchSpec) (Process, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrExecutableMissing, err)
		}
		return nil, err
	}
	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
}

func (p *execProcess) Pid() int              { return p.cmd.Process.Pid }
func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }
func (p *execProcess) Stderr() io.Reader     { return p.stderr }
func (p *execProcess) Kill() error           { return p.cmd.Process.Kill() }

// Wait must only be called after both output pipes have been drained.
func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return -1, nil
		}
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
