package panel

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tinytelemetry/craftpanel/internal/distribution"
	"github.com/tinytelemetry/craftpanel/internal/model"
	"github.com/tinytelemetry/craftpanel/internal/serverdir"
	"github.com/tinytelemetry/craftpanel/internal/settings"
)

// SetupStatus reports what is missing before the server can start.
func (s *Service) SetupStatus() (model.SetupStatus, error) {
	cfg, paths, err := s.config()
	if err != nil {
		return model.SetupStatus{}, err
	}
	accepted, _ := serverdir.ReadEULA(paths.EULA)
	return model.SetupStatus{
		MissingJar:    !paths.JarExists(),
		EULAAccepted:  accepted,
		ServerDir:     paths.ServerDir,
		JarPath:       paths.Jar,
		ServerType:    cfg.ServerType,
		ServerVersion: cfg.ServerVersion,
		ServerBuild:   cfg.ServerBuild,
	}, nil
}

// Versions lists the installable versions of a server type.
func (s *Service) Versions(ctx context.Context, serverType string) (distribution.VersionList, error) {
	if s.opts.Distribution == nil {
		return distribution.VersionList{}, ErrInvalidRequest
	}
	return s.opts.Distribution.Versions(ctx, serverType)
}

// Builds lists the builds of one version. Only paper has builds.
func (s *Service) Builds(ctx context.Context, serverType, version string) ([]int, error) {
	if s.opts.Distribution == nil || version == "" {
		return nil, ErrInvalidRequest
	}
	return s.opts.Distribution.Builds(ctx, serverType, version)
}

// InstallRequest selects the jar to download.
type InstallRequest struct {
	Type       string `json:"type"`
	Version    string `json:"version"`
	Build      string `json:"build,omitempty"`
	AcceptEULA bool   `json:"acceptEula"`
}

// Install downloads the requested jar into the server directory, records
// the selection in the app config and optionally accepts the EULA.
func (s *Service) Install(ctx context.Context, req InstallRequest) error {
	req.Type = strings.TrimSpace(req.Type)
	req.Version = strings.TrimSpace(req.Version)
	if req.Type == "" || req.Version == "" {
		return fmt.Errorf("%w: type and version required", ErrInvalidRequest)
	}
	if s.opts.Distribution == nil {
		return ErrInvalidRequest
	}
	_, paths, err := s.config()
	if err != nil {
		return err
	}
	if err := paths.EnsureServerDir(); err != nil {
		return fmt.Errorf("panel: create server dir: %w", err)
	}

	url, build, err := s.opts.Distribution.Resolve(ctx, req.Type, req.Version, strings.TrimSpace(req.Build))
	if err != nil {
		return err
	}

	_ = s.sup.Announce(ctx, fmt.Sprintf("Downloading %s %s...", req.Type, req.Version))
	if err := s.opts.Distribution.Download(ctx, url, paths.Jar); err != nil {
		log.Printf("panel: download %s: %v", url, err)
		return err
	}
	_ = s.sup.Announce(ctx, "Download completed.")

	if _, err := s.opts.Settings.Update(settings.Patch{
		ServerType:    &req.Type,
		ServerVersion: &req.Version,
		ServerBuild:   &build,
	}); err != nil {
		return err
	}

	if req.AcceptEULA {
		if err := serverdir.WriteEULA(paths.EULA, true); err != nil {
			return fmt.Errorf("panel: write eula: %w", err)
		}
	}
	return nil
}
