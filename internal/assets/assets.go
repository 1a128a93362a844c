package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"oepma/internal/logging"
)

// Extension is appended to the normalized shelfmark to form the asset file name.
const Extension = ".pdf"

// Match is a resolved asset. Name is always derived from the shelfmark; Path
// is empty when no readable file was found.
type Match struct {
	Name string
	Path string
}

// FileName derives the asset file name from a shelfmark: every '/' is removed
// and the extension appended. "12/345" becomes "12345.pdf".
func FileName(shelfmark string) string {
	return strings.ReplaceAll(strings.TrimSpace(shelfmark), "/", "") + Extension
}

// Resolve scans root recursively for a regular, readable file named
// FileName(shelfmark). When several files share the name the last one in walk
// order wins. A blank shelfmark returns no match without touching the
// filesystem.
func Resolve(shelfmark, root string) (Match, bool, error) {
	if strings.TrimSpace(shelfmark) == "" {
		return Match{}, false, nil
	}
	match := Match{Name: FileName(shelfmark)}
	err := walkReadable(root, func(name, path string) {
		if name == match.Name {
			match.Path = path
		}
	})
	if errors.Is(err, fs.ErrNotExist) {
		return match, false, nil
	}
	if err != nil {
		return match, false, err
	}
	return match, match.Path != "", nil
}

// Index answers Resolve from a single walk of the asset tree, so a batch with
// many master rows scans the tree once.
type Index struct {
	root   string
	byName map[string]string
}

// NewIndex walks root once and records every regular, readable file. A missing
// root yields an empty index.
func NewIndex(root string, logger *slog.Logger) (*Index, error) {
	logger = logging.NewComponentLogger(logger, "assets")
	idx := &Index{root: root, byName: make(map[string]string)}
	if strings.TrimSpace(root) == "" {
		return idx, nil
	}
	err := walkReadable(root, func(name, path string) {
		idx.byName[name] = path
	})
	if errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(logger, "asset directory missing; records will be staged without media", "asset_dir_missing",
			logging.String("asset_dir", root),
			logging.String(logging.FieldErrorHint, "check paths.asset_dir"),
			logging.String(logging.FieldImpact, "no documents will be attached"),
		)
		return idx, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Info("asset index built",
		logging.String("asset_dir", root),
		logging.Int("files", len(idx.byName)),
		logging.String(logging.FieldEventType, "asset_index_built"),
	)
	return idx, nil
}

// Len is the number of distinct file names indexed.
func (i *Index) Len() int {
	return len(i.byName)
}

// Resolve looks up the asset for shelfmark with the same rules as the package-level Resolve.
func (i *Index) Resolve(shelfmark string) (Match, bool) {
	if strings.TrimSpace(shelfmark) == "" {
		return Match{}, false
	}
	match := Match{Name: FileName(shelfmark)}
	match.Path = i.byName[match.Name]
	return match, match.Path != ""
}

// Readable reports whether path is a regular file the process may read.
func Readable(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return unix.Access(path, unix.R_OK) == nil
}

func walkReadable(root string, visit func(name, path string)) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// unreadable subdirectories are skipped
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !Readable(path) {
			return nil
		}
		visit(d.Name(), path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan assets in %s: %w", root, err)
	}
	return nil
}
