// Package panel composes the process supervisor with the server directory,
// settings, distribution and lookup collaborators into the operations the
// HTTP API and the control socket expose.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tinytelemetry/craftpanel/internal/console"
	"github.com/tinytelemetry/craftpanel/internal/distribution"
	"github.com/tinytelemetry/craftpanel/internal/lookup"
	"github.com/tinytelemetry/craftpanel/internal/model"
	"github.com/tinytelemetry/craftpanel/internal/serverdir"
	"github.com/tinytelemetry/craftpanel/internal/settings"
	"github.com/tinytelemetry/craftpanel/internal/supervisor"
)

var (
	ErrEmptyCommand    = errors.New("panel: command required")
	ErrUnsafeDelete    = errors.New("panel: unsafe delete path")
	ErrInvalidRequest  = errors.New("panel: invalid request")
	ErrHistoryDisabled = errors.New("panel: run history disabled")
)

// Distributor resolves and downloads server jars.
type Distributor interface {
	Versions(ctx context.Context, serverType string) (distribution.VersionList, error)
	Builds(ctx context.Context, serverType, version string) ([]int, error)
	Resolve(ctx context.Context, serverType, version, build string) (url string, usedBuild string, err error)
	Download(ctx context.Context, url, dest string) error
}

// PlayerLookup resolves player names and the host's public address.
type PlayerLookup interface {
	UUID(ctx context.Context, name string) (string, error)
	ExternalIP(ctx context.Context) string
}

// Options configures a Service.
type Options struct {
	// Root is the directory relative server dirs resolve against and the
	// boundary for deletes.
	Root     string
	Settings *settings.Store
	JavaPath string

	Spawner      supervisor.Spawner
	Distribution Distributor
	Lookup       PlayerLookup
	LocalIPs     func() []string

	Recorder model.RunRecorder
	History  model.HistoryReader

	StopTimeout       time.Duration
	DeleteStopTimeout time.Duration
	DeleteGrace       time.Duration
	// Sleep replaces the delete grace pause in tests.
	Sleep func(ctx context.Context, d time.Duration) error

	// Host and Port are reported by Info.
	Host string
	Port int
}

// Service is the application layer over one supervised game server.
type Service struct {
	opts  Options
	sup   *supervisor.Supervisor
	coord *supervisor.Coordinator
}

// New creates the service and its supervisor.
func New(opts Options) *Service {
	if opts.JavaPath == "" {
		opts.JavaPath = "java"
	}
	if opts.LocalIPs == nil {
		opts.LocalIPs = lookup.LocalIPs
	}
	s := &Service{opts: opts}
	s.sup = supervisor.New(supervisor.Options{
		Spawner:     opts.Spawner,
		Planner:     supervisor.PlannerFunc(s.plan),
		Capacity:    opts.Settings.LogLines,
		Tail:        supervisor.LogTailFunc(s.tailLatest),
		Recorder:    opts.Recorder,
		StopCommand: model.StopCommand,
	})
	s.coord = supervisor.NewCoordinator(s.sup, supervisor.CoordinatorOptions{
		StopTimeout:       opts.StopTimeout,
		DeleteStopTimeout: opts.DeleteStopTimeout,
		DeleteGrace:       opts.DeleteGrace,
		Sleep:             opts.Sleep,
	})
	return s
}

// Supervisor exposes the underlying supervisor.
func (s *Service) Supervisor() *supervisor.Supervisor { return s.sup }

// Close stops a running server and the supervisor loop.
func (s *Service) Close(ctx context.Context) error {
	return s.sup.Close(ctx)
}

func (s *Service) config() (settings.AppConfig, serverdir.Paths, error) {
	cfg, err := s.opts.Settings.Load()
	if err != nil {
		return cfg, serverdir.Paths{}, err
	}
	return cfg, cfg.Paths(s.opts.Root), nil
}

func (s *Service) tailLatest(n int) ([]string, error) {
	_, paths, err := s.config()
	if err != nil {
		return nil, err
	}
	return serverdir.TailLines(paths.LatestLog, n)
}

// Start launches the server unless it is already running.
func (s *Service) Start(ctx context.Context) (model.StartResult, error) {
	res, err := s.sup.Start(ctx)
	if err != nil {
		log.Printf("panel: start: %v", err)
	}
	return res, err
}

// Stop asks a running server to stop and schedules a forced kill.
func (s *Service) Stop(ctx context.Context) error {
	_, err := s.coord.Stop(ctx)
	return err
}

// SendCommand writes one operator command to the server console.
func (s *Service) SendCommand(ctx context.Context, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return ErrEmptyCommand
	}
	return s.sup.SendLine(ctx, command)
}

// Status reports whether the server is running.
func (s *Service) Status(ctx context.Context) (model.Status, error) {
	return s.sup.Status(ctx)
}

// RecentLines returns the in-memory console snapshot.
func (s *Service) RecentLines(ctx context.Context) ([]string, error) {
	return s.sup.RecentLines(ctx)
}

// Subscribe registers a live console stream.
func (s *Service) Subscribe(ctx context.Context, size int) (console.Stream, error) {
	sub, err := s.sup.Subscribe(ctx, size)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteServerData removes the server directory. A running server is
// stopped first; the pause before removal is a fixed grace, not a wait for
// exit.
func (s *Service) DeleteServerData(ctx context.Context) error {
	_, paths, err := s.config()
	if err != nil {
		return err
	}
	if !serverdir.IsSafeToDelete(paths.Root, paths.ServerDir) {
		return ErrUnsafeDelete
	}
	if _, err := s.coord.StopBeforeDelete(ctx); err != nil {
		return err
	}
	if err := paths.RemoveServerDir(); err != nil {
		return fmt.Errorf("panel: delete %s: %w", paths.ServerDir, err)
	}
	log.Printf("panel: deleted %s", paths.ServerDir)
	return s.sup.Announce(ctx, "Server folder deleted.")
}

var _ model.Controller = (*Service)(nil)
