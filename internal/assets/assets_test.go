package assets_test

import (
	"os"
	"path/filepath"
	"testing"

	"oepma/internal/assets"
	"oepma/internal/logging"
)

func writeAsset(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"12/345":   "12345.pdf",
		"1/2/3":    "123.pdf",
		"AT 12345": "AT 12345.pdf",
		" 9/9 ":    "99.pdf",
	}
	for in, want := range tests {
		if got := assets.FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveFindsNestedFile(t *testing.T) {
	root := t.TempDir()
	want := filepath.Join(root, "box1", "folder", "12345.pdf")
	writeAsset(t, want)
	writeAsset(t, filepath.Join(root, "box1", "12346.pdf"))

	match, ok, err := assets.Resolve("12/345", root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ok || match.Path != want || match.Name != "12345.pdf" {
		t.Fatalf("unexpected match: %+v ok=%v", match, ok)
	}
}

func TestResolveIsCaseSensitive(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, filepath.Join(root, "AB1.PDF"))

	match, ok, err := assets.Resolve("AB1", root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Fatalf("expected no match for differently cased file, got %+v", match)
	}
	if match.Name != "AB1.pdf" {
		t.Fatalf("expected derived name even without a file, got %q", match.Name)
	}
}

func TestResolveBlankShelfmarkSkipsScan(t *testing.T) {
	// a root that does not exist would fail any scan attempt
	missing := filepath.Join(t.TempDir(), "missing")
	match, ok, err := assets.Resolve("   ", missing)
	if err != nil || ok || match != (assets.Match{}) {
		t.Fatalf("expected empty result without scanning, got %+v ok=%v err=%v", match, ok, err)
	}
}

func TestResolveIgnoresDirectoriesAndUnreadableFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "777.pdf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, ok, err := assets.Resolve("777", root); err != nil || ok {
		t.Fatalf("expected directory to be ignored, ok=%v err=%v", ok, err)
	}

	if os.Geteuid() == 0 {
		t.Skip("root can read files regardless of mode")
	}
	locked := filepath.Join(root, "888.pdf")
	writeAsset(t, locked)
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if _, ok, _ := assets.Resolve("888", root); ok {
		t.Fatal("expected unreadable file to be ignored")
	}
}

func TestIndexMatchesResolve(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, filepath.Join(root, "a", "12345.pdf"))
	writeAsset(t, filepath.Join(root, "b", "555.pdf"))

	idx, err := assets.NewIndex(root, logging.NewNop())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 indexed files, got %d", idx.Len())
	}
	for _, shelfmark := range []string{"12/345", "555", "000", ""} {
		want, wantOK, err := assets.Resolve(shelfmark, root)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", shelfmark, err)
		}
		got, gotOK := idx.Resolve(shelfmark)
		if got != want || gotOK != wantOK {
			t.Fatalf("shelfmark %q: index %+v/%v, scan %+v/%v", shelfmark, got, gotOK, want, wantOK)
		}
	}
}

func TestIndexMissingRootIsEmpty(t *testing.T) {
	idx, err := assets.NewIndex(filepath.Join(t.TempDir(), "Scans"), logging.NewNop())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if _, ok := idx.Resolve("12/345"); ok {
		t.Fatal("expected no match from empty index")
	}
}

func TestReadable(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "x.pdf")
	writeAsset(t, file)
	if !assets.Readable(file) {
		t.Fatal("expected file to be readable")
	}
	if assets.Readable(root) {
		t.Fatal("directories are not readable assets")
	}
	if assets.Readable("") {
		t.Fatal("blank path is not readable")
	}
}
