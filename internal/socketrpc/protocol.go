package socketrpc

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/tinytelemetry/craftpanel/internal/panel"
	"github.com/tinytelemetry/craftpanel/internal/supervisor"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes model.Controller over a Unix domain socket.
// Requests and responses are newline-delimited JSON objects.
//
//   Method        Params                Result
//   ───────────   ───────────────────   ─────────────────────────────
//   Status        (none)                {running, pid, startedAt}
//   RecentLines   (none)                []string
//   Start         (none)                {alreadyRunning, pid}
//   Stop          (none)                null
//   SendCommand   {Command: string}     null
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error; data carries the machine code
//           (JAR_MISSING, EULA_REQUIRED, NOT_RUNNING, COMMAND_FAILED, ...)

const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeApplication    = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

// Unwrap maps an application error back to its sentinel so callers on the
// client side can use errors.Is.
func (e *RPCError) Unwrap() error {
	if e.Code != CodeApplication {
		return nil
	}
	for _, m := range appErrors {
		if m.code == e.Data {
			return m.err
		}
	}
	return nil
}

var appErrors = []struct {
	err  error
	code string
}{
	{supervisor.ErrExecutableMissing, "JAR_MISSING"},
	{supervisor.ErrLicenseRequired, "EULA_REQUIRED"},
	{supervisor.ErrNotRunning, "NOT_RUNNING"},
	{supervisor.ErrCommandFailed, "COMMAND_FAILED"},
	{supervisor.ErrSpawnFailed, "SPAWN_FAILED"},
	{supervisor.ErrClosed, "CLOSED"},
	{panel.ErrEmptyCommand, "INVALID_REQUEST"},
}

func appError(err error) *RPCError {
	e := &RPCError{Code: CodeApplication, Message: err.Error()}
	for _, m := range appErrors {
		if errors.Is(err, m.err) {
			e.Data = m.code
			break
		}
	}
	return e
}

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/craftpanel/craftpanel.sock, falling back to
// ~/.local/state/craftpanel/craftpanel.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "craftpanel", "craftpanel.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/craftpanel.sock"
	}
	return filepath.Join(home, ".local", "state", "craftpanel", "craftpanel.sock")
}
