package panel

import (
	"context"

	"github.com/tinytelemetry/craftpanel/internal/serverdir"
	"github.com/tinytelemetry/craftpanel/internal/settings"
	"github.com/tinytelemetry/craftpanel/internal/supervisor"
)

// plan checks the start preconditions against the current settings and
// builds the java command line.
func (s *Service) plan(context.Context) (supervisor.LaunchSpec, error) {
	cfg, paths, err := s.config()
	if err != nil {
		return supervisor.LaunchSpec{}, err
	}
	if !paths.JarExists() {
		return supervisor.LaunchSpec{}, supervisor.ErrExecutableMissing
	}
	// An unreadable eula.txt is treated like a missing one.
	if ok, err := serverdir.ReadEULA(paths.EULA); err != nil || !ok {
		return supervisor.LaunchSpec{}, supervisor.ErrLicenseRequired
	}
	return LaunchFor(s.opts.JavaPath, cfg, paths), nil
}

// LaunchFor builds the launch of cfg's jar inside the server directory.
func LaunchFor(java string, cfg settings.AppConfig, paths serverdir.Paths) supervisor.LaunchSpec {
	var args []string
	if cfg.Memory.Xms != "" {
		args = append(args, "-Xms"+cfg.Memory.Xms)
	}
	if cfg.Memory.Xmx != "" {
		args = append(args, "-Xmx"+cfg.Memory.Xmx)
	}
	args = append(args, cfg.JavaArgs...)
	args = append(args, "-jar", paths.Jar)
	if cfg.NoGUI {
		args = append(args, "nogui")
	}
	return supervisor.LaunchSpec{
		Path:          java,
		Args:          args,
		Dir:           paths.ServerDir,
		ServerType:    cfg.ServerType,
		ServerVersion: cfg.ServerVersion,
	}
}
