package model

import "context"

// Controller is the inbound command surface of the process supervisor as
// seen by the request-facing layers (HTTP and socket RPC).
type Controller interface {
	Start(ctx context.Context) (StartResult, error)
	Stop(ctx context.Context) error
	SendCommand(ctx context.Context, command string) error
	Status(ctx context.Context) (Status, error)
	RecentLines(ctx context.Context) ([]string, error)
}

// RunRecorder receives lifecycle events from the supervisor.
// Implementations must not block the caller.
type RunRecorder interface {
	RunStarted(run RunRecord)
	RunExited(runID string, exitCode int, forced bool)
	CommandSent(cmd CommandRecord)
}

// HistoryReader provides read access to recorded runs.
type HistoryReader interface {
	RecentRuns(limit int) ([]RunRecord, error)
	RunCommands(runID string, limit int) ([]CommandRecord, error)
}
