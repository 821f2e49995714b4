package model

import "time"

// Shared defaults used by both the panel service and the TUI binary.
const (
	DefaultLogLines       = 500
	DefaultUpdateInterval = time.Second

	// DefaultStopTimeout is how long a plain stop waits before a forced kill.
	DefaultStopTimeout = 10 * time.Second
	// DefaultDeleteStopTimeout is the shorter kill deadline used before deleting server data.
	DefaultDeleteStopTimeout = 5 * time.Second
	// DefaultDeleteGrace is the fixed pause between the deletion stop and removing files.
	DefaultDeleteGrace = 1500 * time.Millisecond

	// StopCommand is the console line the supervised server treats as a graceful shutdown.
	StopCommand = "stop"
	// SystemLinePrefix marks lines synthesized by the panel itself.
	SystemLinePrefix = "[UI] "
)
