// ABOUTME: Tests for the SQLite-backed playbook and memory store using temp databases.
package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

const storedPlaybook = `
id: support_triage
revision: r1
entry: respond
nodes:
  respond:
    kind: reasoning
    prompt: "Reply to {{user_message}}"
    output_keys: [reply]
`

func openTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	s, err := OpenSqlite(filepath.Join(t.TempDir(), "playbook.db"))
	if err != nil {
		t.Fatalf("OpenSqlite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGetPlaybook(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	def, err := s.SavePlaybook(ctx, []byte(storedPlaybook))
	if err != nil {
		t.Fatalf("SavePlaybook() error = %v", err)
	}
	if def.ID != "support_triage" {
		t.Errorf("saved id = %q", def.ID)
	}

	loaded, err := s.GetPlaybook(ctx, "support_triage")
	if err != nil {
		t.Fatalf("GetPlaybook() error = %v", err)
	}
	if loaded.Revision != "r1" || loaded.Entry != "respond" {
		t.Errorf("loaded = %s@%s entry=%s", loaded.ID, loaded.Revision, loaded.Entry)
	}
	if loaded.FindNode("respond") == nil {
		t.Error("loaded definition lost its node")
	}
}

func TestSavePlaybookUpsertsByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SavePlaybook(ctx, []byte(storedPlaybook)); err != nil {
		t.Fatalf("SavePlaybook() error = %v", err)
	}
	updated := strings.Replace(storedPlaybook, "revision: r1", "revision: r2", 1)
	if _, err := s.SavePlaybook(ctx, []byte(updated)); err != nil {
		t.Fatalf("SavePlaybook() upsert error = %v", err)
	}

	loaded, err := s.GetPlaybook(ctx, "support_triage")
	if err != nil {
		t.Fatalf("GetPlaybook() error = %v", err)
	}
	if loaded.Revision != "r2" {
		t.Errorf("revision = %q, want the upserted r2", loaded.Revision)
	}
}

func TestSavePlaybookRejectsMalformedSource(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.SavePlaybook(context.Background(), []byte("not: a: playbook")); err == nil {
		t.Fatal("malformed source accepted")
	}
}

func TestGetPlaybookMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetPlaybook(context.Background(), "ghost"); err == nil {
		t.Fatal("GetPlaybook() on missing id succeeded")
	}
}

func TestWriteAndListMemories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fields := map[string]any{"user_message": "hi", "reply": "hello", "score": 0.5}
	if err := s.Write(ctx, "conversation", fields); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Write(ctx, "conversation", map[string]any{"reply": "bye"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Write(ctx, "other_tag", map[string]any{"x": 1}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rows, err := s.ListMemories(ctx, "conversation")
	if err != nil {
		t.Fatalf("ListMemories() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("listed %d rows for tag, want 2", len(rows))
	}
	for _, row := range rows {
		if row.Tag != "conversation" {
			t.Errorf("row tag = %q", row.Tag)
		}
		if row.MemoryID == "" || row.CreatedAt == "" {
			t.Errorf("row missing id or timestamp: %+v", row)
		}
	}

	found := false
	for _, row := range rows {
		if row.Fields["user_message"] == "hi" && row.Fields["score"] == 0.5 {
			found = true
		}
	}
	if !found {
		t.Errorf("stored fields did not round-trip: %+v", rows)
	}
}

func TestListMemoriesEmptyTag(t *testing.T) {
	s := openTestStore(t)
	rows, err := s.ListMemories(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("ListMemories() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("listed %d rows, want 0", len(rows))
	}
}
