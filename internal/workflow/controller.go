package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"oepma/internal/config"
	"oepma/internal/logging"
	"oepma/internal/notifications"
	"oepma/internal/repository"
)

// Controller coordinates import runs.
type Controller struct {
	cfg      *config.Config
	creator  repository.Creator
	notifier notifications.Service
	logger   *slog.Logger

	mu       sync.RWMutex
	active   *run
	lastErr  error
	lastRun  *RunSummary
	progress Progress
}

// NewController constructs a controller with ntfy notifications from cfg.
func NewController(cfg *config.Config, creator repository.Creator, logger *slog.Logger) *Controller {
	return NewControllerWithNotifier(cfg, creator, logger, notifications.NewService(cfg))
}

// NewControllerWithNotifier constructs a controller with a custom notifier (used in tests).
func NewControllerWithNotifier(cfg *config.Config, creator repository.Creator, logger *slog.Logger, notifier notifications.Service) *Controller {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Controller{
		cfg:      cfg,
		creator:  creator,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}
}

// Start launches a run of the given phase and returns immediately. ctx bounds
// the run's lifetime: cancelling it aborts the run with a FatalRunError.
func (c *Controller) Start(ctx context.Context, phase Phase) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return ErrAlreadyRunning
	}
	r := newRun(c, phase)
	c.active = r
	c.lastErr = nil
	c.progress = Progress{Phase: phase, Running: true}
	go r.execute(ctx)
	return nil
}

// Cancel asks the active run to stop before its next record. It reports
// whether a run was active.
func (c *Controller) Cancel() bool {
	c.mu.RLock()
	r := c.active
	c.mu.RUnlock()
	if r == nil {
		return false
	}
	r.requestCancel()
	c.logger.Info("import cancellation requested",
		logging.String(logging.FieldRunID, r.id),
		logging.String(logging.FieldEventType, "run_cancel_requested"),
	)
	return true
}

// Running reports whether a run is active.
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active != nil
}

// Wait blocks until the active run has finished and returns its fatal error,
// or nil for success and cancellation. Without an active run it returns the
// outcome of the last run.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.RLock()
	r := c.active
	c.mu.RUnlock()
	if r != nil {
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Progress is a snapshot of the current or last run. Current and Total count
// records of the step named by Phase: a PhaseAll run reports the stage step
// first and restarts at zero when it moves on to PhaseMaterialize.
type Progress struct {
	Phase   Phase   `json:"phase"`
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Running bool    `json:"running"`
}

// Progress returns the progress of the active run, or the final state of the
// last run.
func (c *Controller) Progress() Progress {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.progress
	p.Running = c.active != nil
	if p.Total > 0 {
		p.Percent = float64(p.Current) * 100 / float64(p.Total)
	}
	return p
}

// RunSummary describes a finished run.
type RunSummary struct {
	ID        string        `json:"id"`
	Phase     Phase         `json:"phase"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Staged    int           `json:"staged"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Cancelled bool          `json:"cancelled"`
	Error     string        `json:"error,omitempty"`
}

// Status combines progress with the outcome of the last run.
type Status struct {
	Progress  Progress    `json:"progress"`
	RunID     string      `json:"run_id,omitempty"`
	StartedAt time.Time   `json:"started_at,omitzero"`
	LastError string      `json:"last_error,omitempty"`
	LastRun   *RunSummary `json:"last_run,omitempty"`
}

// Status returns lightweight workflow diagnostics.
func (c *Controller) Status() Status {
	status := Status{Progress: c.Progress()}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active != nil {
		status.RunID = c.active.id
		status.StartedAt = c.active.startedAt
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	if c.lastRun != nil {
		summary := *c.lastRun
		status.LastRun = &summary
	}
	return status
}

func (c *Controller) setProgress(phase Phase, current, total int) {
	c.mu.Lock()
	c.progress.Phase = phase
	c.progress.Current = current
	c.progress.Total = total
	c.mu.Unlock()
}

func (c *Controller) finish(r *run, summary RunSummary, err error) {
	c.mu.Lock()
	c.active = nil
	c.lastErr = err
	c.lastRun = &summary
	c.progress.Running = false
	c.mu.Unlock()
	close(r.done)
}
