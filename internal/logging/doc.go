// Package logging builds the slog loggers used across the importer.
//
// New composes a console or JSON handler with an optional JSON log file and,
// when a StreamHub is supplied, a stream handler that copies every info-level
// or higher record into the hub's bounded ring. The hub is what the daemon's
// /api/logs endpoint serves. Sinks registered on the hub see every event:
// Throttle turns them into rate-limited "update"/"error" signals for UI
// clients and EventArchive journals them to disk.
package logging
