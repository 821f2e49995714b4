// Package backup keeps rolling local snapshots of the run history database.
package backup

import "time"

// Config controls periodic snapshots.
type Config struct {
	Enabled  bool
	Interval time.Duration
	Dir      string
	KeepLast int
	// Prefix names snapshot files <Prefix>-<timestamp>.duckdb.
	Prefix string
}

// Snapshotter is the minimal snapshot contract used by Manager.
type Snapshotter interface {
	DBPath() string
	SnapshotTo(dstPath string) error
}
