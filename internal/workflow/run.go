package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"oepma/internal/assets"
	"oepma/internal/join"
	"oepma/internal/logging"
	"oepma/internal/materialize"
	"oepma/internal/naming"
	"oepma/internal/sources"
	"oepma/internal/staging"
)

type run struct {
	c         *Controller
	id        string
	phase     Phase
	startedAt time.Time
	logger    *slog.Logger

	cancelOnce sync.Once
	cancelCh   chan struct{}
	cancelled  atomic.Bool
	done       chan struct{}

	summary RunSummary
}

func newRun(c *Controller, phase Phase) *run {
	id := uuid.NewString()
	now := time.Now()
	return &run{
		c:         c,
		id:        id,
		phase:     phase,
		startedAt: now,
		logger:    c.logger.With(logging.String(logging.FieldRunID, id)),
		cancelCh:  make(chan struct{}),
		done:      make(chan struct{}),
		summary:   RunSummary{ID: id, Phase: phase, StartedAt: now},
	}
}

func (r *run) requestCancel() {
	r.cancelOnce.Do(func() {
		r.cancelled.Store(true)
		close(r.cancelCh)
	})
}

func (r *run) execute(ctx context.Context) {
	r.logger.Info("import started",
		logging.String(logging.FieldPhase, string(r.phase)),
		logging.String(logging.FieldEventType, "run_started"),
	)

	err := r.steps(ctx)
	r.summary.Duration = time.Since(r.startedAt)
	notifyCtx := context.WithoutCancel(ctx)

	if err != nil {
		// an aborted run skips the completion hold and the "import completed"
		// line; "import aborted" is its final message
		r.summary.Error = err.Error()
		logging.ErrorWithContext(r.logger, "import aborted", "run_failed",
			logging.String(logging.FieldPhase, string(r.phase)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the source documents and import_dir"),
			logging.String(logging.FieldImpact, "remaining records were not processed"),
		)
		if nerr := r.c.notifier.NotifyRunFailed(notifyCtx, string(r.phase), err); nerr != nil {
			r.logger.Warn("run failure notification failed", logging.Error(nerr))
		}
		r.c.finish(r, r.summary, err)
		return
	}

	r.hold(ctx)
	succeeded := r.summary.Succeeded
	if r.phase == PhaseStage {
		succeeded = r.summary.Staged
	}
	if nerr := r.c.notifier.NotifyRunCompleted(notifyCtx, string(r.phase), succeeded, r.summary.Failed, r.summary.Duration); nerr != nil {
		r.logger.Warn("run completion notification failed", logging.Error(nerr))
	}
	r.logger.Info("import completed",
		logging.String(logging.FieldPhase, string(r.phase)),
		logging.Int("staged", r.summary.Staged),
		logging.Int("materialized", r.summary.Succeeded),
		logging.Int("failed", r.summary.Failed),
		logging.Bool("cancelled", r.summary.Cancelled),
		logging.Duration("duration", r.summary.Duration),
		logging.String(logging.FieldEventType, "run_completed"),
	)
	r.c.finish(r, r.summary, nil)
}

func (r *run) steps(ctx context.Context) error {
	if r.phase.includes(PhaseStage) {
		if err := r.stage(ctx); err != nil {
			return err
		}
	}
	if r.cancelled.Load() {
		return nil
	}
	if r.phase.includes(PhaseMaterialize) {
		return r.materialize(ctx)
	}
	return nil
}

func (r *run) stage(ctx context.Context) error {
	cfg := r.c.cfg
	logger := r.logger.With(logging.String(logging.FieldPhase, string(PhaseStage)))

	applicants, masters, priorities := cfg.SourcePaths()
	tables, err := sources.NewLoader(recordLimit(cfg.Import.MaxRecords), logger).LoadAll(applicants, masters, priorities)
	if err != nil {
		return &FatalRunError{Phase: PhaseStage, Err: err}
	}
	idx := join.Merge(tables.Applicants, tables.Masters, tables.Priorities)
	assetIdx, err := assets.NewIndex(cfg.Paths.AssetDir, logger)
	if err != nil {
		return &FatalRunError{Phase: PhaseStage, Err: err}
	}
	found := idx.ResolveAssets(assetIdx)
	keys := idx.Keys()
	logger.Info("sources joined",
		logging.Int("keys", len(keys)),
		logging.Int("entries", idx.EntryCount()),
		logging.Int("assets_found", found),
		logging.String(logging.FieldEventType, "sources_joined"),
	)

	r.c.setProgress(PhaseStage, 0, len(keys))
	r.notifyStarted(ctx, PhaseStage, len(keys), logger)

	alloc := naming.NewAllocator()
	inputDir := cfg.InputDir()
	for i, key := range keys {
		if err := r.pause(ctx); err != nil {
			return &FatalRunError{Phase: PhaseStage, Err: err}
		}
		if r.stopRequested(logger, i, len(keys)) {
			return nil
		}
		name := alloc.Allocate(key)
		group, _ := idx.Group(key)
		if _, err := staging.Write(inputDir, staging.RecordFromGroup(name, group)); err != nil {
			r.recordFailed(logger, &RecordError{Phase: PhaseStage, Name: name, Err: err}, key)
		} else {
			r.summary.Staged++
			logger.Debug("staged record",
				logging.String(logging.FieldProcessName, name),
				logging.String(logging.FieldRecordKey, key),
				logging.Int("persons", len(group.Persons)),
				logging.Bool("media", group.AssetPath != ""),
			)
		}
		r.c.setProgress(PhaseStage, i+1, len(keys))
	}
	return nil
}

func (r *run) materialize(ctx context.Context) error {
	cfg := r.c.cfg
	logger := r.logger.With(logging.String(logging.FieldPhase, string(PhaseMaterialize)))
	if r.c.creator == nil {
		return &FatalRunError{Phase: PhaseMaterialize, Err: errors.New("no repository configured")}
	}

	assetIdx, err := assets.NewIndex(cfg.Paths.AssetDir, logger)
	if err != nil {
		return &FatalRunError{Phase: PhaseMaterialize, Err: err}
	}
	paths, err := staging.List(cfg.InputDir())
	if err != nil {
		return &FatalRunError{Phase: PhaseMaterialize, Err: err}
	}

	r.c.setProgress(PhaseMaterialize, 0, len(paths))
	r.notifyStarted(ctx, PhaseMaterialize, len(paths), logger)

	m := materialize.New(cfg, r.c.creator, assetIdx, logger)
	for i, path := range paths {
		if err := r.pause(ctx); err != nil {
			return &FatalRunError{Phase: PhaseMaterialize, Err: err}
		}
		if r.stopRequested(logger, i, len(paths)) {
			return nil
		}
		result, err := m.Process(ctx, path)
		if err != nil {
			r.recordFailed(logger, &RecordError{Phase: PhaseMaterialize, Name: result.ProcessName, Err: err}, "")
		} else {
			r.summary.Succeeded++
		}
		r.c.setProgress(PhaseMaterialize, i+1, len(paths))
	}
	return nil
}

// pause waits for the per-record delay. It returns early without error when
// the run is cancelled, and with the context error on shutdown.
func (r *run) pause(ctx context.Context) error {
	delay := r.c.cfg.RecordDelay()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.cancelCh:
		return nil
	case <-timer.C:
		return nil
	}
}

func (r *run) hold(ctx context.Context) {
	delay := r.c.cfg.CompletionDelay()
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (r *run) stopRequested(logger *slog.Logger, processed, total int) bool {
	if !r.cancelled.Load() {
		return false
	}
	r.summary.Cancelled = true
	logger.Info("import cancelled",
		logging.Int("processed", processed),
		logging.Int("total", total),
		logging.String(logging.FieldEventType, "run_cancelled"),
	)
	return true
}

func (r *run) recordFailed(logger *slog.Logger, err *RecordError, key string) {
	r.summary.Failed++
	attrs := []logging.Attr{
		logging.String(logging.FieldProcessName, err.Name),
		logging.Error(err.Err),
		logging.String(logging.FieldErrorHint, "the staged record stays in input/ and is retried by the next run"),
	}
	if key != "" {
		attrs = append(attrs, logging.String(logging.FieldRecordKey, key))
	}
	logging.ErrorWithContext(logger, "record failed", "record_failed", attrs...)
}

func (r *run) notifyStarted(ctx context.Context, phase Phase, count int, logger *slog.Logger) {
	if err := r.c.notifier.NotifyRunStarted(context.WithoutCancel(ctx), string(phase), count); err != nil {
		logger.Warn("run start notification failed", logging.Error(err))
	}
}

// recordLimit maps the configured cap onto the loader limit; zero or less
// disables the cap.
func recordLimit(maxRecords int) int {
	if maxRecords <= 0 {
		return -1
	}
	return maxRecords
}
