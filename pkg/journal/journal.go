// Package journal keeps a SQLite record of every turn of every performance.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-theater/pkg/performance"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT    NOT NULL,
	session          INTEGER NOT NULL,
	seq              INTEGER NOT NULL,
	started_at       INTEGER NOT NULL,
	duration_ms      INTEGER NOT NULL,
	intent           TEXT    NOT NULL DEFAULT '',
	confidence       REAL    NOT NULL DEFAULT 0,
	transcript       TEXT    NOT NULL DEFAULT '',
	parameters       TEXT    NOT NULL DEFAULT '',
	route            TEXT    NOT NULL,
	state            TEXT    NOT NULL DEFAULT '',
	gestures         TEXT    NOT NULL DEFAULT '',
	failed_gestures  TEXT    NOT NULL DEFAULT '',
	reply            TEXT    NOT NULL DEFAULT '',
	fallback_ms      INTEGER NOT NULL DEFAULT 0,
	error            TEXT    NOT NULL DEFAULT '',
	terminal         INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_turns_run ON turns (run_id, seq);
`

// Journal is a turn log backed by SQLite.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path. ":memory:" gives a private
// in-memory journal.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path required")
	}

	dsn := path
	if path != ":memory:" {
		// With modernc.org/sqlite each pragma is passed as _pragma=.
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends a turn.
func (j *Journal) Record(ctx context.Context, t performance.Turn) error {
	params := ""
	if len(t.Parameters) > 0 {
		data, err := json.Marshal(t.Parameters)
		if err != nil {
			return fmt.Errorf("encode parameters: %w", err)
		}
		params = string(data)
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO turns (run_id, session, seq, started_at, duration_ms, intent, confidence,
			transcript, parameters, route, state, gestures, failed_gestures, reply,
			fallback_ms, error, terminal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.Session, t.Seq, t.StartedAt.UnixMilli(), t.Duration.Milliseconds(),
		t.Intent, t.Confidence, t.Transcript, params, string(t.Route), t.State,
		strings.Join(t.Gestures, ","), strings.Join(t.FailedGestures, ","), t.Reply,
		t.FallbackLatency.Milliseconds(), t.Error, t.Terminal,
	)
	if err != nil {
		return fmt.Errorf("record turn %d: %w", t.Seq, err)
	}
	return nil
}

// Recent returns up to n of the newest turns, oldest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]performance.Turn, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, session, seq, started_at, duration_ms, intent, confidence,
			transcript, parameters, route, state, gestures, failed_gestures, reply,
			fallback_ms, error, terminal
		FROM (SELECT * FROM turns ORDER BY id DESC LIMIT ?)
		ORDER BY id ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []performance.Turn
	for rows.Next() {
		var (
			t                         performance.Turn
			started, durMs, fbMs      int64
			params, route, gs, failed string
		)
		if err := rows.Scan(&t.RunID, &t.Session, &t.Seq, &started, &durMs, &t.Intent,
			&t.Confidence, &t.Transcript, &params, &route, &t.State, &gs, &failed,
			&t.Reply, &fbMs, &t.Error, &t.Terminal); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.StartedAt = time.UnixMilli(started)
		t.Duration = time.Duration(durMs) * time.Millisecond
		t.FallbackLatency = time.Duration(fbMs) * time.Millisecond
		t.Route = performance.Route(route)
		t.Gestures = splitList(gs)
		t.FailedGestures = splitList(failed)
		if params != "" {
			if err := json.Unmarshal([]byte(params), &t.Parameters); err != nil {
				return nil, fmt.Errorf("decode parameters of turn %d: %w", t.Seq, err)
			}
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Count returns the number of turns recorded for runID, or for every run
// when runID is empty.
func (j *Journal) Count(ctx context.Context, runID string) (int, error) {
	q, args := "SELECT COUNT(*) FROM turns", []any{}
	if runID != "" {
		q += " WHERE run_id = ?"
		args = append(args, runID)
	}
	var n int
	if err := j.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
