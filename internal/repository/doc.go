// Package repository is the artifact store that materialized records end up
// in. A process is created from a template and carries flat metadata,
// metadata groups (priority claims), persons, properties and optionally one
// media file placed under <media_dir>/<process id>/images/orig.
//
// The SQLite implementation uses modernc.org/sqlite, WAL journaling and an
// embedded schema guarded by a schema_version row. Process titles are unique
// across all batches; creating a second process with the same title fails
// with ErrDuplicateTitle.
package repository
