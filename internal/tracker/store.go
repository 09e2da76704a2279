package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
	"github.com/smartui-sdk/smartui-go/internal/model"
	_ "modernc.org/sqlite" // SQLite driver
)

var ErrNilSession = errors.New("tracker: nil session")

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	test_type   TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	saved_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS navigations (
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	url         TEXT NOT NULL,
	label       TEXT,
	test_name   TEXT,
	occurred_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, seq)
);

CREATE TABLE IF NOT EXISTS captures (
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	test_name   TEXT,
	attempts    INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	error       TEXT,
	created_at  INTEGER NOT NULL
);
`

// SQLiteStore implements interfaces.SessionStore on a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger interfaces.Logger
}

// NewSQLiteStore opens (creating if needed) the session database at dir and
// applies the schema.
func NewSQLiteStore(dir string, logger interfaces.Logger) (*SQLiteStore, error) {
	logger = logging.OrNop(logger).With(interfaces.Field{Key: "component", Value: "sessionstore"})

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session store directory: %w", err)
	}

	dbPath := filepath.Join(dir, "smartui-sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply session schema: %w", err)
	}

	logger.Info("session store initialized", interfaces.Field{Key: "path", Value: dbPath})
	return &SQLiteStore{db: db, logger: logger}, nil
}

// SaveSession writes the session and all its recorded events in one
// transaction. Saving the same session twice replaces its rows, so repeated
// SaveResults calls are safe.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *model.Session) error {
	if sess == nil {
		return ErrNilSession
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := nowUnix()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, test_type, started_at, saved_at)
		VALUES (?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at`,
		sess.ID, string(sess.TestType), sess.StartedAt.Unix(), now); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM navigations WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear navigations: %w", err)
	}
	for _, nav := range sess.Navigations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO navigations (session_id, seq, url, label, test_name, occurred_at)
			VALUES (?,?,?,?,?,?)`,
			sess.ID, nav.Seq, nav.URL, nav.Label, nav.TestName, nav.OccurredAt.Unix()); err != nil {
			return fmt.Errorf("insert navigation %d: %w", nav.Seq, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM captures WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear captures: %w", err)
	}
	for _, cap := range sess.Captures {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO captures (session_id, name, test_name, attempts, succeeded, error, created_at)
			VALUES (?,?,?,?,?,?,?)`,
			sess.ID, cap.Name, cap.TestName, cap.Attempts, boolToInt(cap.Succeeded), cap.Error, cap.CreatedAt.Unix()); err != nil {
			return fmt.Errorf("insert capture %q: %w", cap.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}

	s.logger.Debug("session saved",
		interfaces.Field{Key: "session", Value: sess.ID},
		interfaces.Field{Key: "navigations", Value: len(sess.Navigations)},
		interfaces.Field{Key: "captures", Value: len(sess.Captures)})
	return nil
}

// LoadNavigations returns a session's navigation events ordered by sequence.
func (s *SQLiteStore) LoadNavigations(ctx context.Context, sessionID string) ([]model.NavigationEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, url, label, test_name, occurred_at
		FROM navigations WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query navigations: %w", err)
	}
	defer rows.Close()

	var out []model.NavigationEvent
	for rows.Next() {
		var nav model.NavigationEvent
		var occurred int64
		if err := rows.Scan(&nav.Seq, &nav.URL, &nav.Label, &nav.TestName, &occurred); err != nil {
			return nil, fmt.Errorf("scan navigation: %w", err)
		}
		nav.OccurredAt = unixTime(occurred)
		out = append(out, nav)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
