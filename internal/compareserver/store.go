package compareserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/smartui-sdk/smartui-go/internal/model"
	_ "modernc.org/sqlite" // SQLite driver
)

const storeSchema = `
PRAGMA journal_mode = WAL;

CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	test_type   TEXT NOT NULL,
	url         TEXT NOT NULL,
	dom         TEXT NOT NULL,
	options     TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots(name, created_at);
`

// storedSnapshot is one accepted upload.
type storedSnapshot struct {
	ID        string
	Name      string
	TestType  string
	URL       string
	DOM       string
	CreatedAt time.Time
}

// snapshotStore persists accepted snapshots so later uploads of the same
// name can be compared against their predecessor.
type snapshotStore struct {
	db *sql.DB
}

func newSnapshotStore(dir string) (*snapshotStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "smartui.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply snapshot schema: %w", err)
	}
	return &snapshotStore{db: db}, nil
}

// insert stores one upload and returns its generated id.
func (s *snapshotStore) insert(ctx context.Context, req *model.SnapshotRequest) (*storedSnapshot, error) {
	opts, err := json.Marshal(req.Snapshot.Options)
	if err != nil {
		opts = []byte("{}")
	}

	stored := &storedSnapshot{
		ID:        uuid.New().String(),
		Name:      req.Snapshot.Name,
		TestType:  string(req.TestType),
		URL:       req.Snapshot.URL,
		DOM:       req.Snapshot.DOM,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, name, test_type, url, dom, options, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		stored.ID, stored.Name, stored.TestType, stored.URL, stored.DOM, string(opts), stored.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return stored, nil
}

// latestByName returns the most recent snapshot with the given name, or nil
// when the name has never been uploaded.
func (s *snapshotStore) latestByName(ctx context.Context, name string) (*storedSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, test_type, url, dom, created_at
		FROM snapshots WHERE name = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, name)

	var stored storedSnapshot
	var created int64
	err := row.Scan(&stored.ID, &stored.Name, &stored.TestType, &stored.URL, &stored.DOM, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	stored.CreatedAt = time.Unix(created, 0).UTC()
	return &stored, nil
}

func (s *snapshotStore) Close() error {
	return s.db.Close()
}
