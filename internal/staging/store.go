package staging

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	// SuccessDirName is the subdirectory of the staging directory holding
	// materialized records.
	SuccessDirName = "success"
	fileExt        = ".xml"
)

// Path returns the staged file path for a process name.
func Path(dir, processName string) string {
	return filepath.Join(dir, processName+fileExt)
}

// Write stores rec as <dir>/<processname>.xml. The document is written to a
// temporary file first and renamed into place.
func Write(dir string, rec Record) (string, error) {
	if strings.TrimSpace(rec.ProcessName) == "" {
		return "", errors.New("staging: record has no process name")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	data, err := xml.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode record %s: %w", rec.ProcessName, err)
	}
	tmp, err := os.CreateTemp(dir, "."+rec.ProcessName+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(xml.Header); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("write record %s: %w", rec.ProcessName, err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("write record %s: %w", rec.ProcessName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("sync record %s: %w", rec.ProcessName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close record %s: %w", rec.ProcessName, err)
	}
	dest := Path(dir, rec.ProcessName)
	if err := os.Rename(tmpName, dest); err != nil {
		cleanup()
		return "", fmt.Errorf("publish record %s: %w", rec.ProcessName, err)
	}
	return dest, nil
}

// Read decodes a staged file.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read staged record: %w", err)
	}
	var rec Record
	if err := xml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode staged record %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

// List returns the pending staged files directly in dir in name order. A
// missing directory has no pending files.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list staging dir: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if !isRecordFile(entry) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

func isRecordFile(entry fs.DirEntry) bool {
	name := entry.Name()
	return entry.Type().IsRegular() && !strings.HasPrefix(name, ".") && strings.HasSuffix(name, fileExt)
}

// MarkDone moves a staged file into the success directory beside it and
// returns the new path.
func MarkDone(path string) (string, error) {
	successDir := filepath.Join(filepath.Dir(path), SuccessDirName)
	if err := os.MkdirAll(successDir, 0o755); err != nil {
		return "", fmt.Errorf("create success dir: %w", err)
	}
	dest := filepath.Join(successDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("move staged record: %w", err)
	}
	return dest, nil
}

// Summary describes the contents of a staging directory.
type Summary struct {
	Pending       int
	Done          int
	OldestPending time.Time
}

// Summarize counts pending and done records.
func Summarize(dir string) (Summary, error) {
	var summary Summary
	pending, err := List(dir)
	if err != nil {
		return summary, err
	}
	summary.Pending = len(pending)
	for _, path := range pending {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if summary.OldestPending.IsZero() || info.ModTime().Before(summary.OldestPending) {
			summary.OldestPending = info.ModTime()
		}
	}
	done, err := List(filepath.Join(dir, SuccessDirName))
	if err != nil {
		return summary, err
	}
	summary.Done = len(done)
	return summary, nil
}
