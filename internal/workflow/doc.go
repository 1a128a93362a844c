// Package workflow runs import batches in the background.
//
// A Controller owns at most one run at a time. A run loads the three source
// tables, joins them, stages one record per key and/or materializes staged
// records into the repository, strictly one record after another with a
// configurable pause between records. Per-record failures are logged and
// counted; only control-loop failures (unreadable sources, host shutdown)
// abort the run. Progress, cancellation and status are safe to call from any
// goroutine.
package workflow
