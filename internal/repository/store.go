package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"oepma/internal/config"
	"oepma/internal/fileutil"
)

// Store manages repository persistence backed by SQLite.
type Store struct {
	db       *sql.DB
	path     string
	mediaDir string
}

// Open connects to the repository database configured in cfg and seeds the
// workflow templates.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	return OpenPath(ctx, cfg.Repository.DBPath, cfg.Repository.MediaDir,
		cfg.Workflow.MediaTemplate, cfg.Workflow.NoMediaTemplate)
}

// OpenPath initializes or connects to the database at dbPath. Media files are
// placed below mediaDir. Every template title is created when missing.
func OpenPath(ctx context.Context, dbPath, mediaDir string, templates ...string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("repository: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create repository dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, mediaDir: mediaDir}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.EnsureTemplates(ctx, templates...); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EnsureTemplates creates the named templates when absent.
func (s *Store) EnsureTemplates(ctx context.Context, titles ...string) error {
	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO templates (title) VALUES (?)", title); err != nil {
			return fmt.Errorf("seed template %q: %w", title, err)
		}
	}
	return nil
}

// Create stores a new process. Titles are unique; a repeated title fails with
// ErrDuplicateTitle and nothing is written. The media file, when present, is
// placed before the transaction commits so a failed placement leaves no
// process behind.
func (s *Store) Create(ctx context.Context, req Request) (Artifact, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return Artifact{}, errors.New("repository: process title is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Artifact{}, fmt.Errorf("begin create tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var templateID int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM templates WHERE title = ?", req.Template).Scan(&templateID)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, req.Template)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("lookup template: %w", err)
	}

	var existing int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM processes WHERE title = ?", title).Scan(&existing); err != nil {
		return Artifact{}, fmt.Errorf("check title: %w", err)
	}
	if existing > 0 {
		return Artifact{}, fmt.Errorf("%w: %q", ErrDuplicateTitle, title)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO processes (title, template_id, publication_type, created_at) VALUES (?, ?, ?, ?)`,
		title, templateID, req.PublicationType, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Artifact{}, fmt.Errorf("insert process: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Artifact{}, fmt.Errorf("last insert id: %w", err)
	}

	if err := insertFields(ctx, tx, id, nil, req.Metadata); err != nil {
		return Artifact{}, err
	}
	for pos, group := range req.Groups {
		gres, err := tx.ExecContext(ctx,
			"INSERT INTO metadata_groups (process_id, type, position) VALUES (?, ?, ?)", id, group.Type, pos)
		if err != nil {
			return Artifact{}, fmt.Errorf("insert group %s: %w", group.Type, err)
		}
		groupID, err := gres.LastInsertId()
		if err != nil {
			return Artifact{}, fmt.Errorf("last group id: %w", err)
		}
		if err := insertFields(ctx, tx, id, &groupID, group.Fields); err != nil {
			return Artifact{}, err
		}
	}
	for pos, person := range req.Persons {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO persons (process_id, role, first_name, last_name, position) VALUES (?, ?, ?, ?, ?)",
			id, person.Role, person.FirstName, person.LastName, pos,
		); err != nil {
			return Artifact{}, fmt.Errorf("insert person: %w", err)
		}
	}
	properties := append([]Field{
		{Name: "Template", Value: req.Template},
		{Name: "TemplateID", Value: fmt.Sprint(templateID)},
	}, req.Properties...)
	for _, prop := range properties {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO properties (process_id, name, value) VALUES (?, ?, ?)", id, prop.Name, prop.Value,
		); err != nil {
			return Artifact{}, fmt.Errorf("insert property %s: %w", prop.Name, err)
		}
	}

	artifact := Artifact{ID: id, Title: title, TemplateID: templateID}
	if req.Media != nil && strings.TrimSpace(req.Media.Path) != "" {
		dst := s.mediaPath(id, req.Media)
		if _, err := fileutil.PlaceFile(req.Media.Path, dst); err != nil {
			_ = os.RemoveAll(filepath.Join(s.mediaDir, fmt.Sprint(id)))
			return Artifact{}, fmt.Errorf("place media: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE processes SET media_path = ? WHERE id = ?", dst, id); err != nil {
			_ = os.RemoveAll(filepath.Join(s.mediaDir, fmt.Sprint(id)))
			return Artifact{}, fmt.Errorf("record media: %w", err)
		}
		artifact.MediaPath = dst
	}

	if err := tx.Commit(); err != nil {
		if artifact.MediaPath != "" {
			_ = os.RemoveAll(filepath.Join(s.mediaDir, fmt.Sprint(id)))
		}
		return Artifact{}, fmt.Errorf("commit process: %w", err)
	}
	return artifact, nil
}

func (s *Store) mediaPath(id int64, media *Media) string {
	name := strings.TrimSpace(media.Name)
	if name == "" {
		name = filepath.Base(media.Path)
	}
	return filepath.Join(s.mediaDir, fmt.Sprint(id), "images", "orig", name)
}

func insertFields(ctx context.Context, tx *sql.Tx, processID int64, groupID *int64, fields []Field) error {
	for _, field := range fields {
		if strings.TrimSpace(field.Name) == "" {
			continue
		}
		var group any
		if groupID != nil {
			group = *groupID
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO metadata (process_id, group_id, name, value) VALUES (?, ?, ?, ?)",
			processID, group, field.Name, field.Value,
		); err != nil {
			return fmt.Errorf("insert metadata %s: %w", field.Name, err)
		}
	}
	return nil
}
