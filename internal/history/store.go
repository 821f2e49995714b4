// Package history keeps a DuckDB record of supervised runs and the operator
// commands sent to them.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/craftpanel/internal/history/migrate"
	"github.com/tinytelemetry/craftpanel/internal/model"
)

const (
	// DefaultQueryTimeout bounds every store operation.
	DefaultQueryTimeout = 10 * time.Second
	// DefaultDBFile is the database file name inside the data directory.
	DefaultDBFile = "history.duckdb"
)

// Store manages the DuckDB connection.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	QueryTimeout time.Duration
}

// NewStore opens or creates the history database. An empty dbPath opens an
// in-memory database.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}

	qt := DefaultQueryTimeout
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), qt)
	defer cancel()
	if err := migrate.NewRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}

	return &Store{db: db, dbPath: dbPath, QueryTimeout: qt}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the database file, or "" for an in-memory store.
func (s *Store) DBPath() string { return s.dbPath }

func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// InsertRun records a newly started run.
func (s *Store) InsertRun(run model.RunRecord) error {
	ctx, cancel := s.queryCtx()
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, pid, server_type, server_version, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.PID, run.ServerType, run.ServerVersion, run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}
	return nil
}

// FinishRun closes a run with its exit status.
func (s *Store) FinishRun(runID string, stoppedAt time.Time, exitCode int, forced bool) error {
	ctx, cancel := s.queryCtx()
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stopped_at = ?, exit_code = ?, forced = ? WHERE id = ?`,
		stoppedAt.UTC(), exitCode, forced, runID,
	)
	if err != nil {
		return fmt.Errorf("history: finish run: %w", err)
	}
	return nil
}

// InsertCommands appends commands in a single transaction.
func (s *Store) InsertCommands(cmds []model.CommandRecord) error {
	if len(cmds) == 0 {
		return nil
	}
	ctx, cancel := s.queryCtx()
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO commands (run_id, at, command) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range cmds {
		if _, err := stmt.ExecContext(ctx, c.RunID, c.At.UTC(), c.Command); err != nil {
			return fmt.Errorf("history: insert command: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// RecentRuns lists runs newest first.
func (s *Store) RecentRuns(limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := s.queryCtx()
	defer cancel()
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pid, server_type, server_version, started_at, stopped_at, exit_code, forced
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	runs := []model.RunRecord{}
	for rows.Next() {
		var (
			r        model.RunRecord
			stopped  sql.NullTime
			exitCode sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.PID, &r.ServerType, &r.ServerVersion, &r.StartedAt, &stopped, &exitCode, &r.Forced); err != nil {
			return nil, err
		}
		if stopped.Valid {
			t := stopped.Time
			r.StoppedAt = &t
		}
		if exitCode.Valid {
			c := int(exitCode.Int64)
			r.ExitCode = &c
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunCommands lists the commands of one run in the order they were sent.
func (s *Store) RunCommands(runID string, limit int) ([]model.CommandRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := s.queryCtx()
	defer cancel()
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, at, command
		FROM commands
		WHERE run_id = ?
		ORDER BY at ASC
		LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query commands: %w", err)
	}
	defer rows.Close()

	cmds := []model.CommandRecord{}
	for rows.Next() {
		var c model.CommandRecord
		if err := rows.Scan(&c.RunID, &c.At, &c.Command); err != nil {
			return nil, err
		}
		cmds = append(cmds, c)
	}
	return cmds, rows.Err()
}

// DeleteBefore removes finished runs started before cutoff together with
// their commands. It returns the number of runs deleted.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff = cutoff.UTC()
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM commands WHERE run_id IN (
			SELECT id FROM runs WHERE started_at < ? AND stopped_at IS NOT NULL
		)`, cutoff); err != nil {
		return 0, fmt.Errorf("history: delete commands: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ? AND stopped_at IS NOT NULL`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: delete runs: %w", err)
	}
	return res.RowsAffected()
}

var _ model.HistoryReader = (*Store)(nil)
