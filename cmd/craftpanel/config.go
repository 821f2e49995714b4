package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/craftpanel/internal/distribution"
	"github.com/tinytelemetry/craftpanel/internal/history"
	"github.com/tinytelemetry/craftpanel/internal/lookup"
	"github.com/tinytelemetry/craftpanel/internal/model"
	"github.com/tinytelemetry/craftpanel/internal/socketrpc"
)

const (
	defaultHost             = "127.0.0.1"
	defaultPort             = 3030
	defaultJavaPath         = "java"
	defaultHistoryRetention = 30 // days, 0 = disabled
	defaultShutdownTimeout  = 10 * time.Second
	defaultBackupInterval   = 6 * time.Hour
	defaultBackupKeepLast   = 24
)

// appConfig is the service runtime configuration.
type appConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	RootDir    string `mapstructure:"root-dir" yaml:"root-dir"`
	DataDir    string `mapstructure:"data-dir" yaml:"data-dir"`
	StaticDir  string `mapstructure:"static-dir" yaml:"static-dir"`
	JavaPath   string `mapstructure:"java-path" yaml:"java-path"`
	SocketPath string `mapstructure:"socket-path" yaml:"socket-path"`

	SocketEnabled    bool   `mapstructure:"socket-enabled" yaml:"socket-enabled"`
	HistoryEnabled   bool   `mapstructure:"history-enabled" yaml:"history-enabled"`
	HistoryDBPath    string `mapstructure:"history-db-path" yaml:"history-db-path"`
	HistoryRetention int    `mapstructure:"history-retention" yaml:"history-retention"`

	BackupEnabled  bool          `mapstructure:"backup-enabled" yaml:"backup-enabled"`
	BackupInterval time.Duration `mapstructure:"backup-interval" yaml:"backup-interval"`
	BackupDir      string        `mapstructure:"backup-dir" yaml:"backup-dir"`
	BackupKeepLast int           `mapstructure:"backup-keep-last" yaml:"backup-keep-last"`

	StopTimeout       time.Duration `mapstructure:"stop-timeout" yaml:"stop-timeout"`
	DeleteStopTimeout time.Duration `mapstructure:"delete-stop-timeout" yaml:"delete-stop-timeout"`
	DeleteGrace       time.Duration `mapstructure:"delete-grace" yaml:"delete-grace"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown-timeout" yaml:"shutdown-timeout"`

	UserAgent       string        `mapstructure:"user-agent" yaml:"user-agent"`
	HTTPTimeout     time.Duration `mapstructure:"http-timeout" yaml:"http-timeout"`
	DownloadTimeout time.Duration `mapstructure:"download-timeout" yaml:"download-timeout"`

	ConfigPath string `mapstructure:"-" yaml:"-"` // not from config file
}

// Addr is the HTTP listen address.
func (c appConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return cfg, fmt.Errorf("finding working directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CRAFTPANEL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", defaultHost)
	v.SetDefault("port", defaultPort)
	v.SetDefault("root-dir", cwd)
	v.SetDefault("data-dir", "")
	v.SetDefault("static-dir", "")
	v.SetDefault("java-path", defaultJavaPath)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("socket-enabled", true)
	v.SetDefault("history-enabled", true)
	v.SetDefault("history-db-path", "")
	v.SetDefault("history-retention", defaultHistoryRetention)
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-interval", defaultBackupInterval)
	v.SetDefault("backup-dir", "")
	v.SetDefault("backup-keep-last", defaultBackupKeepLast)
	v.SetDefault("stop-timeout", model.DefaultStopTimeout)
	v.SetDefault("delete-stop-timeout", model.DefaultDeleteStopTimeout)
	v.SetDefault("delete-grace", model.DefaultDeleteGrace)
	v.SetDefault("shutdown-timeout", defaultShutdownTimeout)
	v.SetDefault("user-agent", distribution.DefaultUserAgent)
	v.SetDefault("http-timeout", lookup.DefaultTimeout)
	v.SetDefault("download-timeout", distribution.DefaultTimeout)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "craftpanel", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err == nil {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.HistoryRetention < 0 {
		return cfg, fmt.Errorf("invalid history-retention: %d", cfg.HistoryRetention)
	}
	if cfg.BackupEnabled && cfg.BackupInterval <= 0 {
		return cfg, fmt.Errorf("invalid backup-interval: %s", cfg.BackupInterval)
	}
	if cfg.BackupKeepLast < 0 {
		return cfg, fmt.Errorf("invalid backup-keep-last: %d", cfg.BackupKeepLast)
	}

	cfg.RootDir, err = filepath.Abs(expandHome(cfg.RootDir, home))
	if err != nil {
		return cfg, fmt.Errorf("resolving root-dir: %w", err)
	}
	cfg.DataDir = underRoot(cfg.RootDir, expandHome(cfg.DataDir, home), "data")
	cfg.StaticDir = underRoot(cfg.RootDir, expandHome(cfg.StaticDir, home), "public")
	cfg.SocketPath = expandHome(cfg.SocketPath, home)
	cfg.HistoryDBPath = underRoot(cfg.DataDir, expandHome(cfg.HistoryDBPath, home), history.DefaultDBFile)
	cfg.BackupDir = underRoot(cfg.DataDir, expandHome(cfg.BackupDir, home), "backups")

	return cfg, nil
}

// expandHome expands a leading ~/ in path.
func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// underRoot resolves path against root, using fallback when path is empty.
func underRoot(root, path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}
