// Package usage records how often each filter is invoked in a SQLite
// database. A Recorder plugs into a filters.Registry as its Observer.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/CTAG07/bananafilter/pkg/filters"
)

// SetupSchema creates the usage table in the provided database. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const schemaUsage = `
CREATE TABLE IF NOT EXISTS filter_usage (
    filter_name TEXT PRIMARY KEY,
    calls INTEGER NOT NULL DEFAULT 0,
    fallback_calls INTEGER NOT NULL DEFAULT 0,
    last_called INTEGER NOT NULL DEFAULT 0
);
`
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaUsage); err != nil {
		return fmt.Errorf("could not create usage schema: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// FilterStats holds the recorded counts for a single filter name.
type FilterStats struct {
	Name          string    // The requested filter name
	Calls         int       // Total successful calls
	FallbackCalls int       // Calls that were answered by the fallback
	LastCalled    time.Time // Time of the most recent call
}

// Recorder writes filter calls to the database using prepared statements.
// All methods are concurrent-safe.
type Recorder struct {
	db         *sql.DB
	logger     *slog.Logger
	stmtRecord *sql.Stmt
	stmtStats  *sql.Stmt
	stmtReset  *sql.Stmt
	now        func() time.Time
}

// NewRecorder prepares the recorder's statements against db. SetupSchema
// must have been called on db first.
func NewRecorder(db *sql.DB, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rec := &Recorder{db: db, logger: logger, now: time.Now}

	var err error
	rec.stmtRecord, err = db.Prepare(`
INSERT INTO filter_usage (filter_name, calls, fallback_calls, last_called) VALUES (?, 1, ?, ?)
ON CONFLICT(filter_name) DO UPDATE SET
    calls = calls + 1,
    fallback_calls = fallback_calls + excluded.fallback_calls,
    last_called = excluded.last_called;`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare record statement: %w", err)
	}
	rec.stmtStats, err = db.Prepare(`SELECT filter_name, calls, fallback_calls, last_called FROM filter_usage ORDER BY filter_name;`)
	if err != nil {
		rec.Close()
		return nil, fmt.Errorf("failed to prepare stats statement: %w", err)
	}
	rec.stmtReset, err = db.Prepare(`DELETE FROM filter_usage;`)
	if err != nil {
		rec.Close()
		return nil, fmt.Errorf("failed to prepare reset statement: %w", err)
	}
	return rec, nil
}

// ObserveCall implements filters.Observer. Database errors are logged and
// never reach the filter caller.
func (r *Recorder) ObserveCall(call filters.Call) {
	if err := r.Record(context.Background(), call); err != nil {
		r.logger.Error("Failed to record filter call", "filter", call.Name, "error", err)
	}
}

// Record stores a single call.
func (r *Recorder) Record(ctx context.Context, call filters.Call) error {
	fallback := 0
	if call.Fallback {
		fallback = 1
	}
	_, err := r.stmtRecord.ExecContext(ctx, call.Name, fallback, r.now().Unix())
	return err
}

// Stats returns the recorded counts for every filter, ordered by name.
func (r *Recorder) Stats(ctx context.Context) ([]FilterStats, error) {
	rows, err := r.stmtStats.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	stats := make([]FilterStats, 0)
	for rows.Next() {
		var fs FilterStats
		var last int64
		if err = rows.Scan(&fs.Name, &fs.Calls, &fs.FallbackCalls, &last); err != nil {
			return nil, err
		}
		fs.LastCalled = time.Unix(last, 0)
		stats = append(stats, fs)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// Reset deletes all recorded counts.
func (r *Recorder) Reset(ctx context.Context) error {
	_, err := r.stmtReset.ExecContext(ctx)
	return err
}

// Close releases the prepared statements. The database itself is left open.
func (r *Recorder) Close() {
	for _, stmt := range []*sql.Stmt{r.stmtRecord, r.stmtStats, r.stmtReset} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}
