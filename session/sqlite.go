package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/deskmesh/deskmesh/core"
	"github.com/deskmesh/deskmesh/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	created     TIMESTAMP NOT NULL,
	last_active TIMESTAMP NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE ON UPDATE CASCADE,
	seq        INTEGER NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	specialist TEXT NOT NULL DEFAULT '',
	timestamp  TIMESTAMP NOT NULL,
	UNIQUE (session_id, seq)
);
CREATE TABLE IF NOT EXISTS routing_audit (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	query      TEXT NOT NULL,
	specialist TEXT NOT NULL,
	confidence REAL NOT NULL,
	rationale  TEXT NOT NULL,
	decided_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_last_active ON sessions(last_active);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);
`

// SQLiteStore is a durable SessionStore backed by a single SQLite database
// file. It uses WAL mode so reads do not block the writer, and serializes
// appends per session id the same way the in-memory store does.
type SQLiteStore struct {
	db     *sql.DB
	locks  *keyedMutex
	logger logging.Logger
}

// SQLiteOptions configures NewSQLiteStore.
type SQLiteOptions struct {
	// Logger receives quarantine and migration events. Defaults to no-op.
	Logger logging.Logger
	// BusyTimeout bounds how long a writer waits on the database lock.
	BusyTimeout time.Duration
}

// NewSQLiteStore opens (creating if needed) the database at path and runs the
// schema migration. The parent directory is created if absent.
func NewSQLiteStore(path string, optFns ...func(o *SQLiteOptions)) (*SQLiteStore, error) {
	opts := SQLiteOptions{
		Logger:      logging.NewNoOpLogger(),
		BusyTimeout: 5 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating session store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	// The modernc driver serializes writes itself; one connection avoids
	// SQLITE_BUSY storms under concurrent appends.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating session schema: %w", err)
	}

	return &SQLiteStore{db: db, locks: newKeyedMutex(), logger: opts.Logger}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Load returns a snapshot of the session, creating an empty ACTIVE session on
// first use. A persisted session that fails validation is quarantined under a
// renamed id and a fresh session is returned in its place.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*core.Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err == nil {
		if verr := sess.Validate(); verr != nil {
			s.quarantine(ctx, sessionID, verr)
			return s.create(ctx, sessionID)
		}
		return sess, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return s.create(ctx, sessionID)
	}
	return nil, err
}

func (s *SQLiteStore) load(ctx context.Context, sessionID string) (*core.Session, error) {
	sess := &core.Session{ID: sessionID}
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status, created, last_active, tokens_used FROM sessions WHERE id = ?`, sessionID,
	).Scan(&status, &sess.Created, &sess.LastActive, &sess.TokensUsed)
	if err != nil {
		return nil, err
	}
	sess.Status = core.SessionStatus(status)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, specialist, timestamp FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading messages for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	sess.Messages = []core.Message{}
	for rows.Next() {
		var m core.Message
		var role string
		if err := rows.Scan(&m.ID, &role, &m.Content, &m.Specialist, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning message for session %s: %w", sessionID, err)
		}
		m.Role = core.Role(role)
		sess.Messages = append(sess.Messages, m)
	}
	return sess, rows.Err()
}

func (s *SQLiteStore) create(ctx context.Context, sessionID string) (*core.Session, error) {
	sess := core.NewSession(sessionID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, created, last_active, tokens_used) VALUES (?, ?, ?, ?, 0)
		 ON CONFLICT (id) DO NOTHING`,
		sess.ID, string(sess.Status), sess.Created, sess.LastActive)
	if err != nil {
		return nil, fmt.Errorf("creating session %s: %w", sessionID, err)
	}
	return sess, nil
}

// quarantine renames a corrupt session so the original id can start fresh.
// The damaged history stays in the database for forensic inspection.
func (s *SQLiteStore) quarantine(ctx context.Context, sessionID string, cause error) {
	quarantined := sessionID + "-quarantined-" + core.NewID()[:8]
	s.logger.Warn("quarantining corrupt session", "session_id", sessionID, "quarantined_as", quarantined, "reason", cause.Error())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("quarantine begin failed", "session_id", sessionID, "error", err.Error())
		return
	}
	// The messages FK cascades on update, so renaming the session row renames
	// its messages too; only the audit table needs an explicit update.
	for _, stmt := range []string{
		`UPDATE sessions SET id = ? WHERE id = ?`,
		`UPDATE routing_audit SET session_id = ? WHERE session_id = ?`,
	} {
		if _, err := tx.Exec(stmt, quarantined, sessionID); err != nil {
			tx.Rollback()
			s.logger.Error("quarantine failed", "session_id", sessionID, "error", err.Error())
			return
		}
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("quarantine commit failed", "session_id", sessionID, "error", err.Error())
	}
}

// Append atomically adds a message at the next sequence number, updates last
// activity and the cumulative token count, and records the routing decision
// when present. Appends for the same session id are serialized.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, msg core.Message, decision *core.RoutingDecision, tokensUsed int) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning append for session %s: %w", sessionID, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET last_active = ?, tokens_used = tokens_used + ? WHERE id = ?`,
		now, tokensUsed, sessionID)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, status, created, last_active, tokens_used) VALUES (?, ?, ?, ?, ?)`,
			sessionID, string(core.SessionActive), now, now, tokensUsed); err != nil {
			return fmt.Errorf("creating session %s on append: %w", sessionID, err)
		}
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("computing sequence for session %s: %w", sessionID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, seq, role, content, specialist, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, sessionID, seq, string(msg.Role), msg.Content, msg.Specialist, msg.Timestamp); err != nil {
		return fmt.Errorf("inserting message for session %s: %w", sessionID, err)
	}

	if decision != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO routing_audit (session_id, query, specialist, confidence, rationale, decided_at) VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, decision.Query, decision.Specialist, decision.Confidence, string(decision.Rationale), now); err != nil {
			return fmt.Errorf("recording routing decision for session %s: %w", sessionID, err)
		}
	}

	return tx.Commit()
}

// SetStatus updates the session lifecycle status, creating the session first
// if it has never been seen.
func (s *SQLiteStore) SetStatus(ctx context.Context, sessionID string, status core.SessionStatus) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET status = ? WHERE id = ?`, string(status), sessionID)
	if err != nil {
		return fmt.Errorf("setting status for session %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO sessions (id, status, created, last_active, tokens_used) VALUES (?, ?, ?, ?, 0)`,
			sessionID, string(status), now, now); err != nil {
			return fmt.Errorf("creating session %s on status update: %w", sessionID, err)
		}
	}
	return nil
}

// PruneExpired deletes sessions whose last activity predates the cutoff,
// along with their messages and audit rows.
func (s *SQLiteStore) PruneExpired(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning prune: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM routing_audit WHERE session_id IN (SELECT id FROM sessions WHERE last_active < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("pruning routing audit: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE last_active < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Decisions returns the audit trail of routing decisions for a session in
// decision order.
func (s *SQLiteStore) Decisions(ctx context.Context, sessionID string) ([]core.RoutingDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, specialist, confidence, rationale FROM routing_audit WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading routing audit for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []core.RoutingDecision
	for rows.Next() {
		var d core.RoutingDecision
		var rationale string
		if err := rows.Scan(&d.Query, &d.Specialist, &d.Confidence, &rationale); err != nil {
			return nil, fmt.Errorf("scanning routing audit for session %s: %w", sessionID, err)
		}
		d.Rationale = core.Rationale(rationale)
		out = append(out, d)
	}
	return out, rows.Err()
}
