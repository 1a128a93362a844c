package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"oepma/internal/config"
	"oepma/internal/daemon"
	"oepma/internal/logging"
	"oepma/internal/notifications"
	"oepma/internal/repository"
	"oepma/internal/staging"
	"oepma/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the import daemon with its HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, diagnostic)
		},
	}
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Also write DEBUG logs to log_dir/debug")
	return cmd
}

func serve(cmdCtx context.Context, cfg *config.Config, diagnostic bool) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessionID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("oepma-%s.log", sessionID))
	eventsPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("oepma-%s.events", sessionID))

	hub := logging.NewStreamHub(cfg.Logging.BufferSize)
	archive, err := logging.NewEventArchive(eventsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize log archive: %v\n", err)
		archive = nil
	}
	defer archive.Close()
	throttle := logging.NewThrottle(cfg.NotifyInterval())
	defer throttle.Close()

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		FilePath:    logPath,
		Hub:         hub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if diagnostic {
		debugPath := filepath.Join(cfg.Paths.LogDir, "debug", fmt.Sprintf("oepma-%s.log", sessionID))
		debugLogger, debugErr := logging.New(logging.Options{
			Level:       "debug",
			Format:      "json",
			OutputPaths: []string{debugPath},
			Development: true,
		})
		if debugErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", debugErr)
		} else {
			logger = logging.TeeLogger(logger, debugLogger.Handler())
			logger.Info("diagnostic mode enabled",
				logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
				logging.String("debug_log_path", debugPath),
			)
		}
	}

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "oepma-*.log", logPath)
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "oepma-*.events", eventsPath)
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, filepath.Join(cfg.Paths.LogDir, "debug"), "oepma-*.log")
	if days := cfg.Import.SuccessRetentionDays; days > 0 {
		staging.CleanDone(signalCtx, cfg.InputDir(), time.Duration(days)*24*time.Hour, logger)
	}

	store, err := repository.Open(signalCtx, cfg)
	if err != nil {
		logger.Error("open repository", logging.Error(err))
		return err
	}
	defer store.Close()

	ctrl := workflow.NewControllerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
	d, err := daemon.New(cfg, store, ctrl, logger, daemon.LogSinks{Hub: hub, Throttle: throttle, Archive: archive})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	logger.Info("api listening",
		logging.String("addr", d.Addr()),
		logging.String(logging.FieldEventType, "api_listening"),
	)
	<-signalCtx.Done()
	logger.Info("oepma daemon shutting down")
	return nil
}
