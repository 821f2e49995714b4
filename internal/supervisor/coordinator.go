package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/tinytelemetry/craftpanel/internal/model"
)

// Terminator is the part of the Supervisor the Coordinator drives.
type Terminator interface {
	IsRunning(ctx context.Context) (bool, error)
	Announce(ctx context.Context, text string) error
	RequestGracefulStop(ctx context.Context) error
	ForceKillAfter(ctx context.Context, d time.Duration) error
}

// CoordinatorOptions holds the shutdown timings. Zero values fall back to
// the model defaults.
type CoordinatorOptions struct {
	StopTimeout       time.Duration
	DeleteStopTimeout time.Duration
	DeleteGrace       time.Duration

	// Sleep waits d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Coordinator sequences a graceful stop with a scheduled forced kill. It
// never waits for the child to actually exit.
type Coordinator struct {
	term Terminator
	opts CoordinatorOptions
}

// NewCoordinator creates a coordinator over t.
func NewCoordinator(t Terminator, opts CoordinatorOptions) *Coordinator {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = model.DefaultStopTimeout
	}
	if opts.DeleteStopTimeout <= 0 {
		opts.DeleteStopTimeout = model.DefaultDeleteStopTimeout
	}
	if opts.DeleteGrace <= 0 {
		opts.DeleteGrace = model.DefaultDeleteGrace
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Coordinator{term: t, opts: opts}
}

// Stop requests a graceful stop and schedules a kill after StopTimeout. It
// reports whether a child was running.
func (c *Coordinator) Stop(ctx context.Context) (bool, error) {
	return c.terminate(ctx, "Stopping server...", c.opts.StopTimeout)
}

// StopBeforeDelete runs the shorter deletion sequence and then pauses for
// DeleteGrace so the child can release its files. The pause is best-effort:
// the child may still be alive when it returns.
func (c *Coordinator) StopBeforeDelete(ctx context.Context) (bool, error) {
	wasRunning, err := c.terminate(ctx, "Stopping server for delete...", c.opts.DeleteStopTimeout)
	if err != nil || !wasRunning {
		return wasRunning, err
	}
	return true, c.opts.Sleep(ctx, c.opts.DeleteGrace)
}

func (c *Coordinator) terminate(ctx context.Context, announce string, killAfter time.Duration) (bool, error) {
	running, err := c.term.IsRunning(ctx)
	if err != nil || !running {
		return false, err
	}
	if err := c.term.Announce(ctx, announce); err != nil {
		return true, err
	}
	// A failed stop write still gets the kill scheduled.
	if err := c.term.RequestGracefulStop(ctx); err != nil && !errors.Is(err, ErrCommandFailed) {
		return true, err
	}
	return true, c.term.ForceKillAfter(ctx, killAfter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
