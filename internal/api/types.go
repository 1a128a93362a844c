package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// WorkflowStatus summarizes the current or last import run.
type WorkflowStatus struct {
	Running   bool        `json:"running"`
	Phase     string      `json:"phase,omitempty"`
	Current   int         `json:"current"`
	Total     int         `json:"total"`
	Percent   float64     `json:"percent"`
	RunID     string      `json:"runId,omitempty"`
	StartedAt string      `json:"startedAt,omitempty"`
	LastError string      `json:"lastError,omitempty"`
	LastRun   *RunSummary `json:"lastRun,omitempty"`
}

// RunSummary describes a finished run.
type RunSummary struct {
	ID         string `json:"id"`
	Phase      string `json:"phase"`
	StartedAt  string `json:"startedAt"`
	DurationMS int64  `json:"durationMs"`
	Staged     int    `json:"staged"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Cancelled  bool   `json:"cancelled"`
	Error      string `json:"error,omitempty"`
}

// StagingSummary counts staged records.
type StagingSummary struct {
	Pending       int    `json:"pending"`
	Done          int    `json:"done"`
	OldestPending string `json:"oldestPending,omitempty"`
}

// DaemonStatus aggregates runtime information.
type DaemonStatus struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	ImportDir      string         `json:"importDir"`
	LockFilePath   string         `json:"lockFilePath"`
	RepositoryPath string         `json:"repositoryPath"`
	Processes      int            `json:"processes"`
	Workflow       WorkflowStatus `json:"workflow"`
	Staging        StagingSummary `json:"staging"`
}

// StartRunRequest is the body of POST /api/runs.
type StartRunRequest struct {
	Phase string `json:"phase"`
}

// StartRunResponse acknowledges a started run.
type StartRunResponse struct {
	Phase   string `json:"phase"`
	Started bool   `json:"started"`
}

// CancelRunResponse reports whether a run was cancelled.
type CancelRunResponse struct {
	Cancelled bool `json:"cancelled"`
}

// LogEvent is a structured log entry for UI rendering.
type LogEvent struct {
	Sequence    uint64            `json:"seq"`
	Timestamp   string            `json:"ts"`
	Level       string            `json:"level"`
	Message     string            `json:"msg"`
	Component   string            `json:"component,omitempty"`
	Phase       string            `json:"phase,omitempty"`
	ProcessName string            `json:"processName,omitempty"`
	RunID       string            `json:"runId,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse wraps log events and the cursor for the next request.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// Signal is pushed to websocket clients when the log buffer changed.
type Signal struct {
	Type     string         `json:"type"`
	Workflow WorkflowStatus `json:"workflow"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
