package testsupport

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"oepma/internal/config"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Row is one source table row as ordered child element name/value pairs.
type Row [][2]string

// TableXML renders rows as an export document with the given row element.
func TableXML(element string, rows ...Row) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<dataroot>\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "  <%s>\n", element)
		for _, field := range row {
			fmt.Fprintf(&b, "    <%s>%s</%s>\n", field[0], html.EscapeString(field[1]), field[0])
		}
		fmt.Fprintf(&b, "  </%s>\n", element)
	}
	b.WriteString("</dataroot>\n")
	return []byte(b.String())
}

// Applicant returns an applicant row.
func Applicant(key, name, place, country string) Row {
	return Row{{"Schluessel", key}, {"Name", name}, {"NeuOrt", place}, {"NeuLand", country}}
}

// Master returns a master row.
func Master(key, title, shelfmark string) Row {
	return Row{{"Schluessel", key}, {"ErtDat", "2001-01-01"}, {"TitelNeu", title}, {"AZNeu", shelfmark}}
}

// Priority returns a priority row.
func Priority(key, country, date string) Row {
	return Row{{"Schluessel", key}, {"Prio-Land", country}, {"Prio-Datum", date}}
}

// Sources holds the rows written by WriteSources.
type Sources struct {
	Applicants []Row
	Masters    []Row
	Priorities []Row
}

// WriteSources writes the three source documents where cfg expects them.
func WriteSources(t testing.TB, cfg *config.Config, src Sources) {
	t.Helper()
	applicants, masters, priorities := cfg.SourcePaths()
	WriteFile(t, applicants, TableXML("Anmelder", src.Applicants...))
	WriteFile(t, masters, TableXML("Master", src.Masters...))
	WriteFile(t, priorities, TableXML("Prio", src.Priorities...))
}

// WriteAsset places a small pdf below the configured asset directory.
func WriteAsset(t testing.TB, cfg *config.Config, rel string) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.AssetDir, rel)
	WriteFile(t, path, []byte("%PDF-1.4\n"))
	return path
}
