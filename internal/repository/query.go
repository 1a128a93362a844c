package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const processColumns = "p.id, p.title, t.title, p.publication_type, p.media_path, p.created_at"

func scanProcess(scanner interface{ Scan(dest ...any) error }) (*Process, error) {
	var (
		proc       Process
		mediaPath  sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&proc.ID, &proc.Title, &proc.Template, &proc.PublicationType, &mediaPath, &createdRaw); err != nil {
		return nil, err
	}
	proc.MediaPath = mediaPath.String
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		proc.CreatedAt = ts
	}
	return &proc, nil
}

// Count returns the number of stored processes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM processes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count processes: %w", err)
	}
	return n, nil
}

// List returns processes newest first without their attributes. A limit of
// zero or less returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Process, error) {
	query := "SELECT " + processColumns + " FROM processes p JOIN templates t ON t.id = p.template_id ORDER BY p.id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	defer rows.Close()

	var out []*Process
	for rows.Next() {
		proc, err := scanProcess(rows)
		if err != nil {
			return nil, fmt.Errorf("scan process: %w", err)
		}
		out = append(out, proc)
	}
	return out, rows.Err()
}

// Get returns one process by title including metadata, groups, persons and
// properties.
func (s *Store) Get(ctx context.Context, title string) (*Process, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+processColumns+" FROM processes p JOIN templates t ON t.id = p.template_id WHERE p.title = ?", title)
	proc, err := scanProcess(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	if err != nil {
		return nil, fmt.Errorf("get process: %w", err)
	}
	if err := s.loadAttributes(ctx, proc); err != nil {
		return nil, err
	}
	return proc, nil
}

func (s *Store) loadAttributes(ctx context.Context, proc *Process) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, value FROM metadata WHERE process_id = ? AND group_id IS NULL ORDER BY id", proc.ID)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	proc.Metadata, err = scanFields(rows)
	if err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT name, value FROM properties WHERE process_id = ? ORDER BY id", proc.ID)
	if err != nil {
		return fmt.Errorf("load properties: %w", err)
	}
	proc.Properties, err = scanFields(rows)
	if err != nil {
		return err
	}

	if err := s.loadGroups(ctx, proc); err != nil {
		return err
	}

	prows, err := s.db.QueryContext(ctx,
		"SELECT role, first_name, last_name FROM persons WHERE process_id = ? ORDER BY position", proc.ID)
	if err != nil {
		return fmt.Errorf("load persons: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var p Person
		if err := prows.Scan(&p.Role, &p.FirstName, &p.LastName); err != nil {
			return fmt.Errorf("scan person: %w", err)
		}
		proc.Persons = append(proc.Persons, p)
	}
	return prows.Err()
}

func (s *Store) loadGroups(ctx context.Context, proc *Process) error {
	rows, err := s.db.QueryContext(ctx, `
        SELECT g.id, g.type, m.name, m.value
        FROM metadata_groups g
        LEFT JOIN metadata m ON m.group_id = g.id
        WHERE g.process_id = ?
        ORDER BY g.position, m.id`, proc.ID)
	if err != nil {
		return fmt.Errorf("load groups: %w", err)
	}
	defer rows.Close()

	lastID := int64(-1)
	for rows.Next() {
		var (
			id          int64
			groupType   string
			name, value sql.NullString
		)
		if err := rows.Scan(&id, &groupType, &name, &value); err != nil {
			return fmt.Errorf("scan group: %w", err)
		}
		if id != lastID {
			proc.Groups = append(proc.Groups, Group{Type: groupType})
			lastID = id
		}
		if name.Valid {
			g := &proc.Groups[len(proc.Groups)-1]
			g.Fields = append(g.Fields, Field{Name: name.String, Value: value.String})
		}
	}
	return rows.Err()
}

func scanFields(rows *sql.Rows) ([]Field, error) {
	defer rows.Close()
	var out []Field
	for rows.Next() {
		var f Field
		if err := rows.Scan(&f.Name, &f.Value); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
