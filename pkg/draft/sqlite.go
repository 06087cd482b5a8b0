package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/facilog/facilog/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	namespace  TEXT NOT NULL,
	day        TEXT NOT NULL,
	json       TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (namespace, day)
);`

// SQLiteCache is a Cache backed by a local SQLite file. Drafts survive
// process restarts, which is the whole point: an unsynced edit must not be
// lost when the operator's session dies before a save.
type SQLiteCache struct {
	db *sql.DB
}

// DefaultDBPath returns the default draft cache location.
func DefaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".facilog-drafts.db"), nil
}

// OpenSQLite opens (and creates if missing) the draft database at path.
func OpenSQLite(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create drafts table: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

func (c *SQLiteCache) Get(ctx context.Context, namespace, day string) (types.DailyRecord, bool, error) {
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT json FROM drafts WHERE namespace = ? AND day = ?`, namespace, day,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.DailyRecord{}, false, nil
	}
	if err != nil {
		return types.DailyRecord{}, false, fmt.Errorf("query draft %s/%s: %w", namespace, day, err)
	}

	var rec types.DailyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return types.DailyRecord{}, false, fmt.Errorf("unmarshal draft %s/%s: %w", namespace, day, err)
	}
	return rec, true, nil
}

func (c *SQLiteCache) Put(ctx context.Context, namespace, day string, rec types.DailyRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal draft %s/%s: %w", namespace, day, err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO drafts (namespace, day, json, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, day) DO UPDATE SET json = excluded.json, updated_at = excluded.updated_at`,
		namespace, day, string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store draft %s/%s: %w", namespace, day, err)
	}
	return nil
}

func (c *SQLiteCache) Clear(ctx context.Context, namespace, day string) error {
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE namespace = ? AND day = ?`, namespace, day,
	); err != nil {
		return fmt.Errorf("clear draft %s/%s: %w", namespace, day, err)
	}
	return nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
