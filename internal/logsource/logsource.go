package logsource

import "github.com/tinytelemetry/craftpanel/internal/model"

// LogSource is a unified interface for line-producing inputs (child stdout, stderr).
type LogSource interface {
	Lines() <-chan model.IngestEnvelope // read-only channel of lines
	Stop()                              // graceful shutdown
	Name() string                       // "stdout", "stderr"
}
