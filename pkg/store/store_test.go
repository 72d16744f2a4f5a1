package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kheller/diagrid/pkg/diagram"
)

// storeUnderTest runs the shared Store contract tests against a backend.
func storeUnderTest(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	doc := NewDocument("flowchart", diagram.Sample())
	if doc.ID == "" {
		t.Fatal("NewDocument minted empty ID")
	}

	// Absent documents read as nil, nil.
	got, err := s.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get(absent): %v", err)
	}
	if got != nil {
		t.Fatalf("Get(absent) = %+v, want nil", got)
	}

	if err := s.Put(ctx, doc); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err = s.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get = nil after Put")
	}
	if got.Name != "flowchart" {
		t.Errorf("Name = %q, want flowchart", got.Name)
	}
	if len(got.Diagram.Nodes) != len(doc.Diagram.Nodes) {
		t.Errorf("nodes = %d, want %d", len(got.Diagram.Nodes), len(doc.Diagram.Nodes))
	}

	docs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("List = %d documents, want 1", len(docs))
	}

	if err := s.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = s.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get(deleted): %v", err)
	}
	if got != nil {
		t.Error("document survived Delete")
	}

	// Deleting again is not an error.
	if err := s.Delete(ctx, doc.ID); err != nil {
		t.Errorf("Delete(absent): %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	s, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	storeUnderTest(t, s)
}

func TestFileStoreRejectsEscapingIDs(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	s, err := NewFile(filepath.Join(base, "documents"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	// A JSON file one level above the store directory. Ids come straight
	// from URL parameters, so a relative id must never reach it.
	outside := NewDocument("outside", diagram.Sample())
	data, err := json.Marshal(outside)
	if err != nil {
		t.Fatal(err)
	}
	outsidePath := filepath.Join(base, "secret.json")
	if err := os.WriteFile(outsidePath, data, 0o600); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{
		"../secret",
		"..",
		"a/b",
		`a\b`,
		"",
	} {
		if _, err := s.Get(ctx, id); err == nil {
			t.Errorf("Get(%q) succeeded, want invalid-id error", id)
		}
		if err := s.Delete(ctx, id); err == nil {
			t.Errorf("Delete(%q) succeeded, want invalid-id error", id)
		}
		doc := NewDocument("crafted", diagram.Sample())
		doc.ID = id
		if err := s.Put(ctx, doc); err == nil {
			t.Errorf("Put with ID %q succeeded, want invalid-id error", id)
		}
	}

	// The file outside the store directory is untouched.
	if _, err := os.Stat(outsidePath); err != nil {
		t.Errorf("file outside store dir: %v", err)
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	doc := NewDocument("isolated", diagram.Sample())
	if err := s.Put(ctx, doc); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Mutating a retrieved copy must not reach the stored document.
	got, _ := s.Get(ctx, doc.ID)
	got.Diagram.Nodes[0].Attrs["text"] = "tampered"

	again, _ := s.Get(ctx, doc.ID)
	if text := again.Diagram.Nodes[0].Attrs.String("text"); text != "Alpha" {
		t.Errorf("stored text = %q, retrieved copy shares storage", text)
	}
}
