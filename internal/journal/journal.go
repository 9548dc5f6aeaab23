// Package journal records session events in SQLite so the control room can
// show what happened during a session. The default DSN keeps everything in
// memory for the life of the process.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// MemoryDSN is an in-process database that disappears on Close.
const MemoryDSN = ":memory:"

// Kind classifies a journal entry.
type Kind string

const (
	KindSelect      Kind = "select"
	KindAccepted    Kind = "accepted"
	KindFetched     Kind = "fetched"
	KindFailed      Kind = "failed"
	KindReset       Kind = "reset"
	KindMove        Kind = "move"
	KindPerspective Kind = "perspective"
	KindBrief       Kind = "brief"
	KindBriefFailed Kind = "brief_failed"
)

// Entry is one recorded event.
type Entry struct {
	Seq        int64     `db:"seq" json:"seq"`
	ID         string    `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	Kind       Kind      `db:"kind" json:"kind"`
	ScenarioID string    `db:"scenario_id" json:"scenario_id,omitempty"`
	Detail     string    `db:"detail" json:"detail"`
	AtNanos    int64     `db:"at" json:"-"`
	At         time.Time `db:"-" json:"at"`
}

// Journal wraps a SQLite connection for event storage.
type Journal struct {
	conn *sqlx.DB
}

// Open opens or creates a journal. An empty dsn means MemoryDSN.
func Open(dsn string) (*Journal, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	source := dsn
	if dsn != MemoryDSN && !strings.Contains(dsn, "?") {
		source = dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	conn, err := sqlx.Open("sqlite", source)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// Every connection to :memory: is a separate database.
	conn.SetMaxOpenConns(1)

	j := &Journal{conn: conn}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Debug("journal opened", "dsn", dsn)
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		scenario_id TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// Record appends an entry, filling in its id and time when unset. The stored
// entry is returned.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	e.AtNanos = e.At.UnixNano()

	res, err := j.conn.NamedExecContext(ctx,
		`INSERT INTO events (id, session_id, kind, scenario_id, detail, at)
		 VALUES (:id, :session_id, :kind, :scenario_id, :detail, :at)`,
		e,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert event: %w", err)
	}
	if e.Seq, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("insert event: %w", err)
	}
	return e, nil
}

// List returns up to limit of the session's most recent entries, oldest
// first. A limit of zero or less returns them all.
func (j *Journal) List(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	var entries []Entry
	err := j.conn.SelectContext(ctx, &entries,
		`SELECT * FROM (
			SELECT seq, id, session_id, kind, scenario_id, detail, at
			FROM events WHERE session_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	for i := range entries {
		entries[i].At = time.Unix(0, entries[i].AtNanos).UTC()
	}
	return entries, nil
}

// Count returns how many entries a session has.
func (j *Journal) Count(ctx context.Context, sessionID string) (int, error) {
	var n int
	if err := j.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM events WHERE session_id = ?", sessionID); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
