package api

import (
	"testing"
	"time"

	"oepma/internal/logging"
	"oepma/internal/workflow"
)

func TestFromWorkflowStatus(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	status := workflow.Status{
		Progress:  workflow.Progress{Phase: workflow.PhaseStage, Current: 3, Total: 4, Percent: 75, Running: true},
		RunID:     "run-1",
		StartedAt: started,
		LastRun: &workflow.RunSummary{
			ID:        "run-0",
			Phase:     workflow.PhaseAll,
			StartedAt: started.Add(-time.Hour),
			Duration:  1500 * time.Millisecond,
			Failed:    2,
		},
	}
	wf := FromWorkflowStatus(status)
	if !wf.Running || wf.Phase != "stage" || wf.Current != 3 || wf.Percent != 75 {
		t.Fatalf("unexpected progress fields %+v", wf)
	}
	if wf.StartedAt != "2026-03-01T10:00:00.000Z" {
		t.Fatalf("unexpected startedAt %q", wf.StartedAt)
	}
	if wf.LastRun == nil || wf.LastRun.DurationMS != 1500 || wf.LastRun.Failed != 2 || wf.LastRun.Phase != "all" {
		t.Fatalf("unexpected last run %+v", wf.LastRun)
	}
}

func TestFromLogEventsEmpty(t *testing.T) {
	if got := FromLogEvents(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	got := FromLogEvents([]logging.LogEvent{{Sequence: 7, Level: "ERROR", Message: "record failed", ProcessName: "A_1"}})
	if len(got) != 1 || got[0].Sequence != 7 || got[0].ProcessName != "A_1" || got[0].Timestamp != "" {
		t.Fatalf("unexpected conversion %+v", got)
	}
}
