// Package settings persists the operator-editable panel configuration
// (app-config.json).
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/craftpanel/internal/model"
	"github.com/tinytelemetry/craftpanel/internal/serverdir"
)

// DefaultFile is the config file name inside the data directory.
const DefaultFile = "app-config.json"

// Memory holds the JVM heap flags.
type Memory struct {
	Xms string `json:"xms" mapstructure:"xms"`
	Xmx string `json:"xmx" mapstructure:"xmx"`
}

// AppConfig is the content of app-config.json.
type AppConfig struct {
	ServerDir     string   `json:"serverDir" mapstructure:"serverDir"`
	Jar           string   `json:"jar" mapstructure:"jar"`
	Memory        Memory   `json:"memory" mapstructure:"memory"`
	NoGUI         bool     `json:"nogui" mapstructure:"nogui"`
	LogLines      int      `json:"logLines" mapstructure:"logLines"`
	JavaArgs      []string `json:"javaArgs,omitempty" mapstructure:"javaArgs"`
	ServerType    string   `json:"serverType,omitempty" mapstructure:"serverType"`
	ServerVersion string   `json:"serverVersion,omitempty" mapstructure:"serverVersion"`
	ServerBuild   string   `json:"serverBuild,omitempty" mapstructure:"serverBuild"`
}

// Default returns the configuration written when none exists.
func Default() AppConfig {
	return AppConfig{
		ServerDir: serverdir.DefaultServerDir,
		Jar:       serverdir.DefaultJar,
		Memory:    Memory{Xms: "1G", Xmx: "2G"},
		NoGUI:     true,
		LogLines:  model.DefaultLogLines,
	}
}

// Patch is a partial update. Nil fields are left unchanged; Memory is merged
// field by field.
type Patch struct {
	ServerDir     *string      `json:"serverDir,omitempty"`
	Jar           *string      `json:"jar,omitempty"`
	Memory        *MemoryPatch `json:"memory,omitempty"`
	NoGUI         *bool        `json:"nogui,omitempty"`
	LogLines      *int         `json:"logLines,omitempty"`
	JavaArgs      *[]string    `json:"javaArgs,omitempty"`
	ServerType    *string      `json:"serverType,omitempty"`
	ServerVersion *string      `json:"serverVersion,omitempty"`
	ServerBuild   *string      `json:"serverBuild,omitempty"`
}

// MemoryPatch is the partial form of Memory.
type MemoryPatch struct {
	Xms *string `json:"xms,omitempty"`
	Xmx *string `json:"xmx,omitempty"`
}

// Apply merges p into cfg.
func (p Patch) Apply(cfg AppConfig) AppConfig {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&cfg.ServerDir, p.ServerDir)
	set(&cfg.Jar, p.Jar)
	set(&cfg.ServerType, p.ServerType)
	set(&cfg.ServerVersion, p.ServerVersion)
	set(&cfg.ServerBuild, p.ServerBuild)
	if p.Memory != nil {
		set(&cfg.Memory.Xms, p.Memory.Xms)
		set(&cfg.Memory.Xmx, p.Memory.Xmx)
	}
	if p.NoGUI != nil {
		cfg.NoGUI = *p.NoGUI
	}
	if p.LogLines != nil {
		cfg.LogLines = *p.LogLines
	}
	if p.JavaArgs != nil {
		cfg.JavaArgs = append([]string(nil), (*p.JavaArgs)...)
	}
	return cfg
}

// Store reads and writes app-config.json. The file is re-read on every Load
// so edits made outside the panel take effect on the next start.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the config file location.
func (s *Store) Path() string { return s.path }

// Load returns the current configuration. An unreadable or missing file is
// replaced with the defaults.
func (s *Store) Load() (AppConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (AppConfig, error) {
	cfg, err := s.read()
	if err == nil {
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		log.Printf("settings: %s unreadable, resetting to defaults: %v", s.path, err)
	}
	cfg = Default()
	if werr := s.writeLocked(cfg); werr != nil {
		return cfg, werr
	}
	return cfg, nil
}

func (s *Store) read() (AppConfig, error) {
	raw, err := serverdir.ReadText(s.path)
	if err != nil {
		return AppConfig{}, err
	}

	def := Default()
	v := viper.New()
	v.SetConfigType("json")
	v.SetDefault("serverDir", def.ServerDir)
	v.SetDefault("jar", def.Jar)
	v.SetDefault("memory.xms", def.Memory.Xms)
	v.SetDefault("memory.xmx", def.Memory.Xmx)
	v.SetDefault("nogui", def.NoGUI)
	v.SetDefault("logLines", def.LogLines)

	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return AppConfig{}, fmt.Errorf("parse %s: %w", s.path, err)
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if cfg.LogLines <= 0 {
		cfg.LogLines = model.DefaultLogLines
	}
	return cfg, nil
}

// Save replaces the file with cfg.
func (s *Store) Save(cfg AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(cfg)
}

func (s *Store) writeLocked(cfg AppConfig) error {
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("settings: create dir: %w", err)
	}
	return serverdir.WriteFileAtomic(s.path, out)
}

// Update merges p into the stored configuration and writes it back.
func (s *Store) Update(p Patch) (AppConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := s.loadLocked()
	if err != nil {
		return cfg, err
	}
	cfg = p.Apply(cfg)
	return cfg, s.writeLocked(cfg)
}

// LogLines returns the configured buffer capacity, falling back to the
// default when the file cannot be read.
func (s *Store) LogLines() int {
	cfg, err := s.Load()
	if err != nil || cfg.LogLines <= 0 {
		return model.DefaultLogLines
	}
	return cfg.LogLines
}

// Paths resolves the server directory layout for cfg under root.
func (cfg AppConfig) Paths(root string) serverdir.Paths {
	return serverdir.Resolve(root, cfg.ServerDir, cfg.Jar)
}
