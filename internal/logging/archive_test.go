package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEventArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.jsonl")
	archive, err := NewEventArchive(path)
	if err != nil {
		t.Fatalf("NewEventArchive: %v", err)
	}
	defer archive.Close()

	hub := NewStreamHub(2)
	hub.AddSink(archive)
	for _, msg := range []string{"a", "b", "c"} {
		hub.Publish(LogEvent{Level: "INFO", Message: msg})
	}

	events, err := archive.ReadSince(1, 0)
	if err != nil {
		t.Fatalf("ReadSince: %v", err)
	}
	if len(events) != 2 || events[0].Message != "b" || events[1].Message != "c" {
		t.Fatalf("unexpected archived events: %+v", events)
	}
}

func TestNewEventArchiveDisabled(t *testing.T) {
	archive, err := NewEventArchive("  ")
	if err != nil || archive != nil {
		t.Fatalf("expected nil archive, got %v err=%v", archive, err)
	}
	archive.Append(LogEvent{Message: "ignored"})
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.log")
	fresh := filepath.Join(dir, "fresh.log")
	keep := filepath.Join(dir, "current.log")
	for _, p := range []string{old, fresh, keep} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	for _, p := range []string{old, keep} {
		if err := os.Chtimes(p, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := CleanupOldLogs(NewNop(), 5, dir, "*.log", keep)
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, p := range []string{fresh, keep} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
}
