// Package serverdir reads and writes the files a game server keeps in its
// working directory.
package serverdir

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultServerDir = "./server"
	DefaultJar       = "server.jar"

	defaultFileMode = 0o644
	defaultDirMode  = 0o755
)

// Paths is the resolved file layout of one server directory.
type Paths struct {
	Root          string
	ServerDir     string
	Jar           string
	Properties    string
	LatestLog     string
	EULA          string
	Whitelist     string
	BannedPlayers string
	BannedIPs     string
	Ops           string
}

// Resolve builds the layout for serverDir (relative to root unless absolute)
// with jar as the executable file name.
func Resolve(root, serverDir, jar string) Paths {
	if serverDir == "" {
		serverDir = DefaultServerDir
	}
	if jar == "" {
		jar = DefaultJar
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	dir := serverDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	dir = filepath.Clean(dir)

	return Paths{
		Root:          root,
		ServerDir:     dir,
		Jar:           filepath.Join(dir, jar),
		Properties:    filepath.Join(dir, "server.properties"),
		LatestLog:     filepath.Join(dir, "logs", "latest.log"),
		EULA:          filepath.Join(dir, "eula.txt"),
		Whitelist:     filepath.Join(dir, "whitelist.json"),
		BannedPlayers: filepath.Join(dir, "banned-players.json"),
		BannedIPs:     filepath.Join(dir, "banned-ips.json"),
		Ops:           filepath.Join(dir, "ops.json"),
	}
}

// JarExists reports whether the server jar is present.
func (p Paths) JarExists() bool {
	st, err := os.Stat(p.Jar)
	return err == nil && !st.IsDir()
}

// EnsureServerDir creates the server directory if needed.
func (p Paths) EnsureServerDir() error {
	return os.MkdirAll(p.ServerDir, defaultDirMode)
}

// IsSafeToDelete reports whether dir may be removed: it must resolve to a
// path under root whose base name is "server".
func IsSafeToDelete(root, dir string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return strings.ToLower(filepath.Base(absDir)) == "server"
}

// RemoveServerDir deletes the server directory tree.
func (p Paths) RemoveServerDir() error {
	return os.RemoveAll(p.ServerDir)
}
