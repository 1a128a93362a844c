package repository

import "errors"

var (
	// ErrDuplicateTitle reports that a process with the requested title exists.
	ErrDuplicateTitle = errors.New("process title already exists")
	// ErrTemplateNotFound reports an unknown template title.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrNotFound reports an unknown process.
	ErrNotFound = errors.New("process not found")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
