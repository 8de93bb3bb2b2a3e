// ABOUTME: SQLite-backed store for playbook definitions and memorized records.
// ABOUTME: Serves as both a playbook source and the memory sink for memorize nodes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/2389-research/playbook/playbook"
)

const timestampFormat = "2006-01-02T15:04:05Z07:00"

// MemoryRow is a memorized record as read back from the store.
type MemoryRow struct {
	MemoryID  string
	Tag       string
	Fields    map[string]any
	CreatedAt string
}

// SqliteStore persists playbook definitions and memorized fields in SQLite.
// It implements playbook.Source for loading and playbook.MemoryWriter for
// memorize nodes.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a store database at the given path.
// Runs migrations to ensure the schema is up to date.
func OpenSqlite(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS playbooks (
			playbook_id TEXT PRIMARY KEY,
			revision TEXT NOT NULL,
			source TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS memories (
			memory_id TEXT PRIMARY KEY,
			tag TEXT NOT NULL,
			fields TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memories_tag ON memories(tag);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SqliteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// SavePlaybook decodes the YAML source and upserts it under its declared id.
func (s *SqliteStore) SavePlaybook(ctx context.Context, source []byte) (*playbook.Definition, error) {
	def, err := playbook.Decode(source)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO playbooks (playbook_id, revision, source, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(playbook_id) DO UPDATE SET
			revision = excluded.revision,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		def.ID,
		def.Revision,
		string(source),
		time.Now().Format(timestampFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert playbook: %w", err)
	}
	return def, nil
}

// GetPlaybook loads and decodes the stored definition for id.
func (s *SqliteStore) GetPlaybook(ctx context.Context, id string) (*playbook.Definition, error) {
	var source string
	err := s.db.QueryRowContext(ctx,
		"SELECT source FROM playbooks WHERE playbook_id = ?", id).Scan(&source)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("playbook %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query playbook: %w", err)
	}
	return playbook.Decode([]byte(source))
}

// Write stores a memorized record under tag. Implements playbook.MemoryWriter.
func (s *SqliteStore) Write(ctx context.Context, tag string, fields map[string]any) error {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode memory fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO memories (memory_id, tag, fields, created_at) VALUES (?, ?, ?, ?)",
		uuid.NewString(),
		tag,
		string(encoded),
		time.Now().Format(timestampFormat),
	)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// ListMemories returns all memorized records for a tag, newest first.
func (s *SqliteStore) ListMemories(ctx context.Context, tag string) ([]MemoryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT memory_id, tag, fields, created_at FROM memories
		 WHERE tag = ? ORDER BY created_at DESC`, tag)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []MemoryRow
	for rows.Next() {
		var row MemoryRow
		var encoded string
		if err := rows.Scan(&row.MemoryID, &row.Tag, &encoded, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &row.Fields); err != nil {
			return nil, fmt.Errorf("decode memory fields: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
