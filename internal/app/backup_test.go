package app

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"biblioteca/pkg/domain"
	"biblioteca/pkg/queue"
	"biblioteca/pkg/store"
)

type capturingObjectStore struct {
	keys     []string
	payloads [][]byte
}

func (c *capturingObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.keys = append(c.keys, key)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestHandleBackupJobArchivesSnapshot(t *testing.T) {
	mem := store.NewMemoryStore()
	objects := &capturingObjectStore{}
	a, err := New(Config{Store: mem, Objects: objects})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	book, err := a.CreateBook(domain.BookInput{Title: "Dune", Author: "Frank Herbert"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	job := queue.Job{ID: "job-1", Kind: "book", RecordID: book.ID}
	if err := a.HandleBackupJob(context.Background(), job); err != nil {
		t.Fatalf("handle job: %v", err)
	}

	if len(objects.keys) != 1 {
		t.Fatalf("archived %d objects, want 1", len(objects.keys))
	}
	if objects.keys[0] != "backups/book/1/job-1.json" {
		t.Fatalf("object key = %q", objects.keys[0])
	}
	var archived domain.Book
	if err := json.Unmarshal(objects.payloads[0], &archived); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if archived.Title != "Dune" {
		t.Fatalf("snapshot title = %q", archived.Title)
	}

	backups := mem.Backups()
	if len(backups) != 1 || backups[0].Kind != "book" || backups[0].RecordID != book.ID {
		t.Fatalf("audit rows = %+v", backups)
	}
}

func TestHandleBackupJobDeletedRecordIsDone(t *testing.T) {
	mem := store.NewMemoryStore()
	objects := &capturingObjectStore{}
	a, err := New(Config{Store: mem, Objects: objects})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	job := queue.Job{ID: "job-2", Kind: "book", RecordID: 99}
	if err := a.HandleBackupJob(context.Background(), job); err != nil {
		t.Fatalf("job for deleted record should succeed, got %v", err)
	}
	if len(objects.keys) != 0 {
		t.Fatalf("archived an object for a missing record")
	}
	if len(mem.Backups()) != 0 {
		t.Fatalf("audit row written for a missing record")
	}
}

func TestHandleBackupJobUnknownKind(t *testing.T) {
	mem := store.NewMemoryStore()
	a, err := New(Config{Store: mem})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	if err := a.HandleBackupJob(context.Background(), queue.Job{ID: "j", Kind: "invoice", RecordID: 1}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
