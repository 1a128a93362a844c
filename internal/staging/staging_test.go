package staging

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"oepma/internal/join"
	"oepma/internal/logging"
)

func sampleGroup() join.Group {
	return join.Group{
		Entry: join.Entry{
			Key:        "A-1",
			Place:      "Wien",
			Country:    "AT",
			GrantDate:  "2001-05-02",
			Title:      "Widget & <Gadget>",
			Shelfmark:  "12/345",
			Notes:      "n",
			Priorities: []join.Priority{{Country: "AT", Date: "2020-01-01"}, {Country: "DE", Date: "2020-02-01"}},
			AssetName:  "12345.pdf",
			AssetPath:  "/scans/12345.pdf",
		},
		Persons: []join.Person{{FirstName: "Doe", LastName: "Jane"}},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "input")
	rec := RecordFromGroup("A_1", sampleGroup())

	path, err := Write(dir, rec)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if path != filepath.Join(dir, "A_1.xml") {
		t.Fatalf("unexpected path %q", path)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got.XMLName = rec.XMLName
	if !reflect.DeepEqual(*got, rec) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, rec)
	}
	if !got.HasMedia() {
		t.Fatal("expected record with file path to have media")
	}
}

func TestWriteProducesImportDocument(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, RecordFromGroup("A_1", sampleGroup()))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"<import>",
		"<processname>A_1</processname>",
		"<priorities>",
		"<priority>",
		"<persons>",
		"<lastname>Jane</lastname>",
		"Widget &amp; &lt;Gadget&gt;",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("staged document missing %q:\n%s", want, text)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the published file, found %d entries", len(entries))
	}
}

func TestWriteRejectsMissingName(t *testing.T) {
	if _, err := Write(t.TempDir(), Record{}); err == nil {
		t.Fatal("expected error for record without process name")
	}
}

func TestReadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xml")
	if err := os.WriteFile(path, []byte("<import><key>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := Read(filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestListMarkDoneAndSummarize(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b", "a", "c"} {
		if _, err := Write(dir, Record{ProcessName: name}); err != nil {
			t.Fatalf("Write %s: %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{Path(dir, "a"), Path(dir, "b"), Path(dir, "c")}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("List = %v, want %v", paths, want)
	}

	done, err := MarkDone(paths[0])
	if err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if done != filepath.Join(dir, SuccessDirName, "a.xml") {
		t.Fatalf("unexpected done path %q", done)
	}
	if _, err := os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Fatalf("expected staged file moved, stat err=%v", err)
	}

	paths, _ = List(dir)
	if len(paths) != 2 {
		t.Fatalf("success dir must not be listed, got %v", paths)
	}
	summary, err := Summarize(dir)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Pending != 2 || summary.Done != 1 || summary.OldestPending.IsZero() {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestListMissingDir(t *testing.T) {
	paths, err := List(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(paths) != 0 {
		t.Fatalf("expected empty listing, got %v err=%v", paths, err)
	}
}

func TestCleanDoneInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanDone(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanDoneRemovesOldRecords(t *testing.T) {
	dir := t.TempDir()
	var done []string
	for _, name := range []string{"old", "recent"} {
		path, err := Write(dir, Record{ProcessName: name})
		if err != nil {
			t.Fatal(err)
		}
		moved, err := MarkDone(path)
		if err != nil {
			t.Fatal(err)
		}
		done = append(done, moved)
	}
	oldTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(done[0], oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}
	pending, err := Write(dir, Record{ProcessName: "pending"})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(pending, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}

	result := CleanDone(context.Background(), dir, 24*time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != done[0] {
		t.Fatalf("expected only old done record removed, got %v", result.Removed)
	}
	if _, err := os.Stat(done[1]); err != nil {
		t.Fatalf("recent record should remain: %v", err)
	}
	if _, err := os.Stat(pending); err != nil {
		t.Fatalf("pending records are never cleaned: %v", err)
	}
}
