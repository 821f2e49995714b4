package settings

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestLoadCreatesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "app-config.json")
	s := NewStore(path)

	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
}

func TestLoadResetsUnreadableFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app-config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLines != 500 || cfg.Memory.Xmx != "2G" {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadFillsMissingKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app-config.json")
	content := "\xEF\xBB\xBF{\"logLines\": 50, \"memory\": {\"xmx\": \"4G\"}, \"serverBuild\": 123, \"serverType\": null}"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLines != 50 {
		t.Fatalf("LogLines = %d, want 50", cfg.LogLines)
	}
	if cfg.Memory.Xmx != "4G" || cfg.Memory.Xms != "1G" {
		t.Fatalf("Memory = %+v, want xms 1G xmx 4G", cfg.Memory)
	}
	if cfg.ServerBuild != "123" {
		t.Fatalf("ServerBuild = %q, want 123", cfg.ServerBuild)
	}
	if cfg.ServerDir != "./server" || cfg.Jar != "server.jar" || !cfg.NoGUI {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestUpdateMergesMemory(t *testing.T) {
	t.Parallel()

	s := NewStore(filepath.Join(t.TempDir(), "app-config.json"))

	cfg, err := s.Update(Patch{
		Memory:   &MemoryPatch{Xmx: ptr("6G")},
		LogLines: ptr(200),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if cfg.Memory.Xms != "1G" || cfg.Memory.Xmx != "6G" {
		t.Fatalf("Memory = %+v", cfg.Memory)
	}

	reloaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(reloaded, cfg) {
		t.Fatalf("reloaded = %+v, want %+v", reloaded, cfg)
	}
	if s.LogLines() != 200 {
		t.Fatalf("LogLines() = %d, want 200", s.LogLines())
	}
}

func TestPathsResolveUnderRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := Default()
	cfg.ServerDir = "./instances/server"
	cfg.Jar = "paper.jar"

	p := cfg.Paths(root)
	if p.Jar != filepath.Join(root, "instances", "server", "paper.jar") {
		t.Fatalf("Jar = %q", p.Jar)
	}
}
