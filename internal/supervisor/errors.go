package supervisor

import "errors"

var (
	// ErrNotRunning is returned when an operation needs a live child process.
	ErrNotRunning = errors.New("supervisor: server not running")

	// ErrCommandFailed is returned when a line could not be queued for the
	// child's standard input, either because the queue is full or because an
	// earlier write failed.
	ErrCommandFailed = errors.New("supervisor: command failed")

	// ErrExecutableMissing is returned before spawning when the server
	// executable or jar does not exist.
	ErrExecutableMissing = errors.New("supervisor: server executable not found")

	// ErrLicenseRequired is returned before spawning when the server's
	// license agreement has not been accepted.
	ErrLicenseRequired = errors.New("supervisor: license not accepted")

	// ErrSpawnFailed wraps any other failure to start the child process.
	ErrSpawnFailed = errors.New("supervisor: spawn failed")

	// ErrClosed is returned after the supervisor has been closed.
	ErrClosed = errors.New("supervisor: closed")
)
