package serverdir

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tinytelemetry/craftpanel/internal/console"
	"github.com/tinytelemetry/craftpanel/internal/logsource"
)

const maxLogLineSize = 1024 * 1024

// TailLines returns the last n non-empty lines of the file at path, oldest
// first. A missing file yields no lines and no error.
func TailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("serverdir: open log: %w", err)
	}
	defer f.Close()

	ring := console.NewLineBuffer(n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLineSize)
	for scanner.Scan() {
		line := logsource.CleanLine(scanner.Text())
		if line == "" {
			continue
		}
		ring.Append(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("serverdir: read log: %w", err)
	}
	return ring.Lines(), nil
}
