package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/craftpanel/internal/history"
	"github.com/tinytelemetry/craftpanel/internal/model"
)

func TestLoadConfig_Defaults(t *testing.T) {
	resetCraftpanelEnv(t)

	root := t.TempDir()
	cfg, err := loadConfig(writeTempConfig(t, "root-dir: "+root))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if got := cfg.Addr(); got != "127.0.0.1:3030" {
		t.Fatalf("Addr() = %q, want %q", got, "127.0.0.1:3030")
	}
	if cfg.DataDir != filepath.Join(root, "data") {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, filepath.Join(root, "data"))
	}
	if cfg.StaticDir != filepath.Join(root, "public") {
		t.Fatalf("StaticDir = %q, want %q", cfg.StaticDir, filepath.Join(root, "public"))
	}
	if want := filepath.Join(root, "data", history.DefaultDBFile); cfg.HistoryDBPath != want {
		t.Fatalf("HistoryDBPath = %q, want %q", cfg.HistoryDBPath, want)
	}
	if cfg.StopTimeout != model.DefaultStopTimeout {
		t.Fatalf("StopTimeout = %s, want %s", cfg.StopTimeout, model.DefaultStopTimeout)
	}
	if cfg.DeleteStopTimeout != model.DefaultDeleteStopTimeout {
		t.Fatalf("DeleteStopTimeout = %s, want %s", cfg.DeleteStopTimeout, model.DefaultDeleteStopTimeout)
	}
	if cfg.DeleteGrace != model.DefaultDeleteGrace {
		t.Fatalf("DeleteGrace = %s, want %s", cfg.DeleteGrace, model.DefaultDeleteGrace)
	}
	if !cfg.HistoryEnabled || !cfg.SocketEnabled {
		t.Fatalf("HistoryEnabled=%v SocketEnabled=%v, want both true", cfg.HistoryEnabled, cfg.SocketEnabled)
	}
	if cfg.HistoryRetention != defaultHistoryRetention {
		t.Fatalf("HistoryRetention = %d, want %d", cfg.HistoryRetention, defaultHistoryRetention)
	}
	if cfg.BackupEnabled {
		t.Fatal("BackupEnabled = true, want disabled by default")
	}
	if cfg.BackupDir != filepath.Join(root, "data", "backups") {
		t.Fatalf("BackupDir = %q, want under data dir", cfg.BackupDir)
	}
	if cfg.JavaPath != "java" {
		t.Fatalf("JavaPath = %q, want java", cfg.JavaPath)
	}
	if cfg.ConfigPath == "" {
		t.Fatal("ConfigPath is empty, want the file that was read")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	resetCraftpanelEnv(t)

	root := t.TempDir()
	cfg, err := loadConfig(writeTempConfig(t, `
root-dir: `+root+`
host: 0.0.0.0
port: 8080
data-dir: state
static-dir: /srv/panel/www
history-db-path: runs.duckdb
history-retention: 0
stop-timeout: 30s
delete-grace: 500ms
`))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Fatalf("Addr() = %q, want 0.0.0.0:8080", got)
	}
	if cfg.DataDir != filepath.Join(root, "state") {
		t.Fatalf("DataDir = %q, want relative to root", cfg.DataDir)
	}
	if cfg.StaticDir != "/srv/panel/www" {
		t.Fatalf("StaticDir = %q, want absolute path kept", cfg.StaticDir)
	}
	if cfg.HistoryDBPath != filepath.Join(root, "state", "runs.duckdb") {
		t.Fatalf("HistoryDBPath = %q, want relative to data dir", cfg.HistoryDBPath)
	}
	if cfg.HistoryRetention != 0 {
		t.Fatalf("HistoryRetention = %d, want 0", cfg.HistoryRetention)
	}
	if cfg.StopTimeout != 30*time.Second || cfg.DeleteGrace != 500*time.Millisecond {
		t.Fatalf("StopTimeout=%s DeleteGrace=%s, want 30s and 500ms", cfg.StopTimeout, cfg.DeleteGrace)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	resetCraftpanelEnv(t)
	t.Setenv("CRAFTPANEL_PORT", "4040")
	t.Setenv("CRAFTPANEL_HISTORY_ENABLED", "false")

	cfg, err := loadConfig(writeTempConfig(t, "root-dir: "+t.TempDir()+"\nport: 3100"))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.Port != 4040 {
		t.Fatalf("Port = %d, want 4040 from env", cfg.Port)
	}
	if cfg.HistoryEnabled {
		t.Fatal("HistoryEnabled = true, want false from env")
	}
}

func TestLoadConfig_MissingFileTolerated(t *testing.T) {
	resetCraftpanelEnv(t)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.ConfigPath != "" {
		t.Fatalf("ConfigPath = %q, want empty for a missing file", cfg.ConfigPath)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	resetCraftpanelEnv(t)

	tests := []struct {
		name         string
		configYAML   string
		errSubstring string
	}{
		{name: "port too large", configYAML: "port: 70000", errSubstring: "invalid port"},
		{name: "port zero", configYAML: "port: 0", errSubstring: "invalid port"},
		{name: "negative retention", configYAML: "history-retention: -1", errSubstring: "invalid history-retention"},
		{name: "zero backup interval", configYAML: "backup-enabled: true\nbackup-interval: 0s", errSubstring: "invalid backup-interval"},
		{name: "negative keep-last", configYAML: "backup-keep-last: -1", errSubstring: "invalid backup-keep-last"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeTempConfig(t, tt.configYAML))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errSubstring) {
				t.Fatalf("error = %q, want substring %q", err.Error(), tt.errSubstring)
			}
		})
	}
}

func TestPrintConfigYAML(t *testing.T) {
	resetCraftpanelEnv(t)

	cfg, err := loadConfig(writeTempConfig(t, "root-dir: "+t.TempDir()))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal: %v", err)
	}
	text := string(out)
	for _, want := range []string{"port: 3030", "stop-timeout: 10s", "delete-grace: 1.5s"} {
		if !strings.Contains(text, want) {
			t.Fatalf("config YAML missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "ConfigPath") || strings.Contains(text, "configpath") {
		t.Fatalf("config YAML leaks ConfigPath:\n%s", text)
	}
}

func TestStaticDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if got := staticDir(dir); got != dir {
		t.Fatalf("staticDir(existing) = %q, want %q", got, dir)
	}
	if got := staticDir(filepath.Join(dir, "missing")); got != "" {
		t.Fatalf("staticDir(missing) = %q, want empty", got)
	}
	file := filepath.Join(dir, "index.html")
	if err := os.WriteFile(file, []byte("<html>"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if got := staticDir(file); got != "" {
		t.Fatalf("staticDir(file) = %q, want empty", got)
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func resetCraftpanelEnv(t *testing.T) {
	t.Helper()

	original := make(map[string]string)

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "CRAFTPANEL_") {
			continue
		}
		original[key] = value
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}

	t.Cleanup(func() {
		for key, value := range original {
			if err := os.Setenv(key, value); err != nil {
				t.Fatalf("cleanup restore %s: %v", key, err)
			}
		}
	})
}
