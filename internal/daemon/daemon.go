package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"oepma/internal/api"
	"oepma/internal/config"
	"oepma/internal/logging"
	"oepma/internal/repository"
	"oepma/internal/staging"
	"oepma/internal/workflow"
)

// shutdownTimeout bounds how long Stop waits for an aborted run to settle.
const shutdownTimeout = 5 * time.Second

// Daemon coordinates the import controller and the HTTP API and enforces
// single-instance execution per import directory.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *repository.Store
	controller *workflow.Controller

	hub      *logging.StreamHub
	throttle *logging.Throttle
	archive  *logging.EventArchive
	events   *EventHub
	api      *apiServer

	lock        *flock.Flock
	running     atomic.Bool
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// LogSinks are the optional consumers of the daemon's log stream.
type LogSinks struct {
	Hub      *logging.StreamHub
	Throttle *logging.Throttle
	Archive  *logging.EventArchive
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	Workflow       workflow.Status
	Staging        staging.Summary
	Processes      int
	ImportDir      string
	LockFilePath   string
	RepositoryPath string
}

// New constructs a daemon. The throttle and archive, when set, are attached
// to the hub.
func New(cfg *config.Config, store *repository.Store, controller *workflow.Controller, logger *slog.Logger, sinks LogSinks) (*Daemon, error) {
	if cfg == nil || store == nil || controller == nil {
		return nil, errors.New("daemon requires config, repository store and workflow controller")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		controller: controller,
		hub:        sinks.Hub,
		throttle:   sinks.Throttle,
		archive:    sinks.Archive,
		events:     NewEventHub(logger),
	}
	if d.hub != nil {
		if d.throttle != nil {
			d.hub.AddSink(d.throttle)
		}
		if d.archive != nil {
			d.hub.AddSink(d.archive)
		}
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the import directory lock and starts the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	lock, err := AcquireLock(d.cfg.LockPath())
	if err != nil {
		return err
	}
	d.lock = lock
	d.ctx, d.cancel = context.WithCancel(ctx)

	if d.throttle != nil {
		d.unsubscribe = d.throttle.Subscribe(d.broadcastSignal)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.release()
		return fmt.Errorf("start api: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("oepma daemon started",
		logging.String("lock", d.cfg.LockPath()),
		logging.String("import_dir", d.cfg.Paths.ImportDir),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop aborts an active run, stops the API and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.cancel()
	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := d.controller.Wait(waitCtx); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn("import run ended with error during shutdown", logging.Error(err))
	}
	cancel()
	d.api.stop()
	d.release()
	d.running.Store(false)
	d.logger.Info("oepma daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

func (d *Daemon) release() {
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
	if d.cancel != nil {
		d.cancel()
	}
	if d.lock != nil {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release import lock", logging.Error(err))
		}
		d.lock = nil
	}
	d.events.CloseAll()
}

// StartRun launches an import run bound to the daemon's lifetime.
func (d *Daemon) StartRun(phase workflow.Phase) error {
	if !d.running.Load() {
		return errors.New("daemon not running")
	}
	return d.controller.Start(d.ctx, phase)
}

// CancelRun requests cancellation of the active run.
func (d *Daemon) CancelRun() bool {
	return d.controller.Cancel()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		Workflow:       d.controller.Status(),
		ImportDir:      d.cfg.Paths.ImportDir,
		LockFilePath:   d.cfg.LockPath(),
		RepositoryPath: d.store.Path(),
	}
	if summary, err := staging.Summarize(d.cfg.InputDir()); err == nil {
		status.Staging = summary
	} else {
		d.logger.Warn("failed to summarize staging dir", logging.Error(err))
	}
	if n, err := d.store.Count(ctx); err == nil {
		status.Processes = n
	} else {
		d.logger.Warn("failed to count repository processes", logging.Error(err))
	}
	return status
}

// Addr returns the API listen address, empty when the API is disabled.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// LogStream exposes the daemon log hub.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.hub
}

// LogArchive exposes the daemon log archive.
func (d *Daemon) LogArchive() *logging.EventArchive {
	return d.archive
}

func (d *Daemon) broadcastSignal(sig logging.Signal) {
	d.events.Broadcast(api.Signal{
		Type:     string(sig),
		Workflow: api.FromWorkflowStatus(d.controller.Status()),
	})
}
