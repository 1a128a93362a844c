package api

import (
	"time"

	"oepma/internal/logging"
	"oepma/internal/staging"
	"oepma/internal/workflow"
)

// FromWorkflowStatus converts controller status to its API payload.
func FromWorkflowStatus(status workflow.Status) WorkflowStatus {
	wf := WorkflowStatus{
		Running:   status.Progress.Running,
		Phase:     string(status.Progress.Phase),
		Current:   status.Progress.Current,
		Total:     status.Progress.Total,
		Percent:   status.Progress.Percent,
		RunID:     status.RunID,
		StartedAt: FormatTime(status.StartedAt),
		LastError: status.LastError,
	}
	if last := status.LastRun; last != nil {
		wf.LastRun = &RunSummary{
			ID:         last.ID,
			Phase:      string(last.Phase),
			StartedAt:  FormatTime(last.StartedAt),
			DurationMS: last.Duration.Milliseconds(),
			Staged:     last.Staged,
			Succeeded:  last.Succeeded,
			Failed:     last.Failed,
			Cancelled:  last.Cancelled,
			Error:      last.Error,
		}
	}
	return wf
}

// FromStagingSummary converts a staging directory summary.
func FromStagingSummary(summary staging.Summary) StagingSummary {
	return StagingSummary{
		Pending:       summary.Pending,
		Done:          summary.Done,
		OldestPending: FormatTime(summary.OldestPending),
	}
}

// FromLogEvents converts buffered log events.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:    evt.Sequence,
			Timestamp:   FormatTime(evt.Timestamp),
			Level:       evt.Level,
			Message:     evt.Message,
			Component:   evt.Component,
			Phase:       evt.Phase,
			ProcessName: evt.ProcessName,
			RunID:       evt.RunID,
			Fields:      evt.Fields,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
