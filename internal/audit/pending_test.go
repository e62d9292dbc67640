package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPendingQueueRoundTrip(t *testing.T) {
	q, err := NewPendingQueue(t.TempDir())
	if err != nil {
		t.Fatalf("NewPendingQueue: %v", err)
	}

	entries, err := q.List()
	if err != nil || entries != nil {
		t.Fatalf("empty queue should list nothing, got %v, %v", entries, err)
	}

	subjects := []Subject{
		{Path: "src/a.py", RuleID: "coverage-pragma-review", Question: "justify the exclusion"},
		{Path: "src/b.py", RuleID: "coverage-pragma-review", Question: "justify the exclusion"},
	}
	for _, s := range subjects {
		if err := q.Enqueue(s, errors.New("provider unreachable")); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	entries, err = q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Path != "src/a.py" || entries[1].Path != "src/b.py" {
		t.Errorf("order lost: %+v", entries)
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Error("entries need distinct ids")
	}
	if entries[0].Failure != "provider unreachable" {
		t.Errorf("failure not recorded: %q", entries[0].Failure)
	}
}

func TestPendingQueueResolve(t *testing.T) {
	q, err := NewPendingQueue(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"a.py", "b.py", "c.py"} {
		if err := q.Enqueue(Subject{Path: p, RuleID: "r"}, errors.New("down")); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := q.List()
	if err != nil {
		t.Fatal(err)
	}

	if err := q.Resolve(entries[1].ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	after, err := q.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 2 || after[0].Path != "a.py" || after[1].Path != "c.py" {
		t.Errorf("unexpected queue after resolve: %+v", after)
	}

	if err := q.Resolve("no-such-id"); err == nil {
		t.Error("resolving a missing id should error")
	}
}

func TestPendingQueueSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	q, err := NewPendingQueue(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(Subject{Path: "a.py"}, errors.New("down")); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "pending_review.jsonl"), os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{truncated\n")
	f.Close()

	entries, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "a.py" {
		t.Errorf("corrupt line should be skipped, got %+v", entries)
	}
}
