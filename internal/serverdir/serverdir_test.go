package serverdir

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveLayout(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	p := Resolve(root, "", "")

	if p.ServerDir != filepath.Join(root, "server") {
		t.Fatalf("ServerDir = %q", p.ServerDir)
	}
	if p.Jar != filepath.Join(root, "server", "server.jar") {
		t.Fatalf("Jar = %q", p.Jar)
	}
	if p.LatestLog != filepath.Join(root, "server", "logs", "latest.log") {
		t.Fatalf("LatestLog = %q", p.LatestLog)
	}
	if p.JarExists() {
		t.Fatal("JarExists = true for empty dir")
	}
	writeFile(t, p.Jar, "jar")
	if !p.JarExists() {
		t.Fatal("JarExists = false after writing jar")
	}
}

func TestIsSafeToDelete(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cases := []struct {
		dir  string
		want bool
	}{
		{filepath.Join(root, "server"), true},
		{filepath.Join(root, "instances", "Server"), true},
		{filepath.Join(root, "world"), false},
		{root, false},
		{filepath.Join(filepath.Dir(root), "server"), false},
		{root + "x" + string(filepath.Separator) + "server", false},
	}
	for _, tc := range cases {
		if got := IsSafeToDelete(root, tc.dir); got != tc.want {
			t.Errorf("IsSafeToDelete(%q) = %v, want %v", tc.dir, got, tc.want)
		}
	}
}

func TestEULA(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "eula.txt")

	if ok, err := ReadEULA(path); err != nil || ok {
		t.Fatalf("ReadEULA(missing) = %v, %v", ok, err)
	}

	writeFile(t, path, "#comment\neula = TRUE\n")
	if ok, _ := ReadEULA(path); !ok {
		t.Fatal("ReadEULA did not accept eula = TRUE")
	}

	if err := WriteEULA(path, false); err != nil {
		t.Fatalf("WriteEULA: %v", err)
	}
	if ok, _ := ReadEULA(path); ok {
		t.Fatal("ReadEULA = true after writing false")
	}
	if err := WriteEULA(path, true); err != nil {
		t.Fatalf("WriteEULA: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "https://aka.ms/MinecraftEULA") || !strings.HasSuffix(string(raw), "eula=true\n") {
		t.Fatalf("eula.txt = %q", raw)
	}
}

func TestTailLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "latest.log")
	writeFile(t, path, "a\r\nb\n\nc\nd\n")

	got, err := TailLines(path, 3)
	if err != nil {
		t.Fatalf("TailLines: %v", err)
	}
	if want := []string{"b", "c", "d"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("TailLines = %q, want %q", got, want)
	}

	missing, err := TailLines(filepath.Join(t.TempDir(), "nope.log"), 3)
	if err != nil || len(missing) != 0 {
		t.Fatalf("TailLines(missing) = %q, %v", missing, err)
	}
}

const sampleProperties = "#Minecraft server properties\n#Mon Jan 01\nmotd=A Server\n\nserver-port = 25565\nweird line\nmax-players=20\n"

func TestPropertiesRoundTrip(t *testing.T) {
	t.Parallel()

	p := ParseProperties(sampleProperties)
	if p.String() != sampleProperties {
		t.Fatalf("String() = %q, want original", p.String())
	}

	vals := p.Values()
	if vals["server-port"] != "25565" || vals["motd"] != "A Server" {
		t.Fatalf("Values() = %v", vals)
	}
	if _, ok := vals["weird line"]; ok {
		t.Fatal("line without = parsed as pair")
	}
}

func TestPropertiesApplyPreservesLayout(t *testing.T) {
	t.Parallel()

	p := ParseProperties(sampleProperties)
	p.Apply(map[string]string{"max-players": "5", "not-in-file": "x"})

	want := strings.Replace(sampleProperties, "max-players=20", "max-players=5", 1)
	if p.String() != want {
		t.Fatalf("String() = %q, want %q", p.String(), want)
	}
}

func TestUpdatePropertiesRequiresFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "server.properties")

	if err := UpdateProperties(path, map[string]string{"motd": "x"}); !errors.Is(err, ErrPropertiesMissing) {
		t.Fatalf("UpdateProperties(missing) = %v, want ErrPropertiesMissing", err)
	}

	writeFile(t, path, sampleProperties)
	if err := UpdateProperties(path, map[string]string{"motd": "Hello"}); err != nil {
		t.Fatalf("UpdateProperties: %v", err)
	}
	p, err := LoadProperties(path)
	if err != nil {
		t.Fatalf("LoadProperties: %v", err)
	}
	if v, _ := p.Get("motd"); v != "Hello" {
		t.Fatalf("motd = %q, want Hello", v)
	}
}

func TestJSONArrays(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "ops.json")

	items, err := ReadJSONArray(path)
	if err != nil || len(items) != 0 {
		t.Fatalf("ReadJSONArray(missing) = %v, %v", items, err)
	}

	writeFile(t, path, "\xEF\xBB\xBF[{\"name\":\"steve\"}]")
	items, err = ReadJSONArray(path)
	if err != nil || len(items) != 1 {
		t.Fatalf("ReadJSONArray(bom) = %v, %v", items, err)
	}

	if err := WriteJSONArray(path, json.RawMessage(`{"name":"alex"}`)); !errors.Is(err, ErrNotArray) {
		t.Fatalf("WriteJSONArray(object) = %v, want ErrNotArray", err)
	}
	if err := WriteJSONArray(path, json.RawMessage(`[{"name":"alex"},{"name":"sam"}]`)); err != nil {
		t.Fatalf("WriteJSONArray: %v", err)
	}
	items, _ = ReadJSONArray(path)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	writeFile(t, path, `{"not":"array"}`)
	if items, _ := ReadJSONArray(path); len(items) != 0 {
		t.Fatalf("non-array read as %v", items)
	}
}

func TestListPath(t *testing.T) {
	t.Parallel()

	p := Resolve(t.TempDir(), "", "")
	got, err := p.ListPath(ListBannedIPs)
	if err != nil || got != p.BannedIPs {
		t.Fatalf("ListPath = %q, %v", got, err)
	}
	if _, err := p.ListPath("friends"); err == nil {
		t.Fatal("ListPath accepted unknown list")
	}
}
