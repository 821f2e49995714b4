package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinytelemetry/craftpanel/internal/logparse"
	"github.com/tinytelemetry/craftpanel/internal/model"
	"github.com/tinytelemetry/craftpanel/internal/serverdir"
)

// DefaultServerPort is reported when server.properties sets none.
const DefaultServerPort = "25565"

// UUID resolves a player name to an account id.
func (s *Service) UUID(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name required", ErrInvalidRequest)
	}
	if s.opts.Lookup == nil {
		return "", ErrInvalidRequest
	}
	return s.opts.Lookup.UUID(ctx, name)
}

// Info describes how to reach the panel and the game server.
func (s *Service) Info(ctx context.Context) (model.HostInfo, error) {
	cfg, paths, err := s.config()
	if err != nil {
		return model.HostInfo{}, err
	}
	port := DefaultServerPort
	if props, err := serverdir.LoadProperties(paths.Properties); err == nil {
		if v, ok := props.Get("server-port"); ok && v != "" {
			port = v
		}
	}
	info := model.HostInfo{
		Host:              s.opts.Host,
		Port:              s.opts.Port,
		ServerPort:        port,
		LocalIPs:          s.opts.LocalIPs(),
		ConfiguredVersion: cfg.ServerVersion,
	}
	if s.opts.Lookup != nil {
		info.ExternalIP = s.opts.Lookup.ExternalIP(ctx)
	}
	if lines, err := serverdir.TailLines(paths.LatestLog, logparse.VersionScanLines); err == nil {
		info.RunningVersion = logparse.RunningVersion(lines)
	}
	return info, nil
}

// DiskLogs returns the tail of the server's own log file.
func (s *Service) DiskLogs() ([]string, error) {
	cfg, paths, err := s.config()
	if err != nil {
		return nil, err
	}
	lines, err := serverdir.TailLines(paths.LatestLog, cfg.LogLines)
	if lines == nil && err == nil {
		lines = []string{}
	}
	return lines, err
}

// History lists recent runs newest first.
func (s *Service) History(limit int) ([]model.RunRecord, error) {
	if s.opts.History == nil {
		return nil, ErrHistoryDisabled
	}
	return s.opts.History.RecentRuns(limit)
}

// RunCommands lists the operator commands of one run.
func (s *Service) RunCommands(runID string, limit int) ([]model.CommandRecord, error) {
	if s.opts.History == nil {
		return nil, ErrHistoryDisabled
	}
	return s.opts.History.RunCommands(runID, limit)
}
