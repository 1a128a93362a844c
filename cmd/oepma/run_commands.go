package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"oepma/internal/config"
	"oepma/internal/daemon"
	"oepma/internal/logging"
	"oepma/internal/notifications"
	"oepma/internal/repository"
	"oepma/internal/workflow"
)

const progressInterval = 250 * time.Millisecond

func newRunCommands(ctx *commandContext) []*cobra.Command {
	stageCmd := &cobra.Command{
		Use:   "stage",
		Short: "Join the source tables and write one staged record per key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground(cmd, ctx, workflow.PhaseStage)
		},
	}

	materializeCmd := &cobra.Command{
		Use:   "materialize",
		Short: "Create repository processes from pending staged records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground(cmd, ctx, workflow.PhaseMaterialize)
		},
	}

	var maxRecords int
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Stage and materialize in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("max-records") {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				cfg.Import.MaxRecords = maxRecords
			}
			return runForeground(cmd, ctx, workflow.PhaseAll)
		},
	}
	runCmd.Flags().IntVar(&maxRecords, "max-records", 0, "Override import.max_records for this run (0 disables the cap)")

	return []*cobra.Command{stageCmd, materializeCmd, runCmd}
}

// runForeground executes one run in this process while holding the import
// directory lock, so it refuses to start next to a serving daemon.
func runForeground(cmd *cobra.Command, ctx *commandContext, phase workflow.Phase) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lock, err := daemon.AcquireLock(cfg.LockPath())
	if err != nil {
		if errors.Is(err, daemon.ErrLocked) {
			return fmt.Errorf("%w; use `oepma trigger` to start a run on the daemon", err)
		}
		return err
	}
	defer lock.Unlock() //nolint:errcheck

	logger, err := logging.NewFromConfig(cfg, nil)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	var creator repository.Creator
	if phase != workflow.PhaseStage {
		store, err := repository.Open(signalCtx, cfg)
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}
		defer store.Close()
		creator = store
	}

	ctrl := workflow.NewControllerWithNotifier(cfg, creator, logger, notifications.NewService(cfg))
	if err := ctrl.Start(signalCtx, phase); err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	if shouldColorize(stderr) && !ctx.JSONMode() {
		stop := watchProgress(ctrl, stderr)
		defer stop()
	}

	runErr := ctrl.Wait(context.Background())
	status := ctrl.Status()
	if ctx.JSONMode() {
		if err := writeJSON(cmd, status); err != nil {
			return err
		}
		return runErr
	}
	printRunSummary(cmd.OutOrStdout(), cfg, status)
	return runErr
}

// watchProgress redraws a progress bar on w until the returned func is called.
func watchProgress(ctrl *workflow.Controller, w io.Writer) func() {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			p := ctrl.Progress()
			fmt.Fprintf(w, "\r%s", renderProgressBar(string(p.Phase), p.Current, p.Total))
			select {
			case <-done:
				fmt.Fprintln(w)
				return
			case <-ticker.C:
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func printRunSummary(w io.Writer, cfg *config.Config, status workflow.Status) {
	run := status.LastRun
	if run == nil {
		fmt.Fprintln(w, "No run recorded")
		return
	}
	outcome := "completed"
	switch {
	case run.Error != "":
		outcome = "aborted"
	case run.Cancelled:
		outcome = "cancelled"
	}
	fmt.Fprint(w, renderKeyValues([][2]string{
		{"Run", run.ID},
		{"Phase", string(run.Phase)},
		{"Outcome", outcome},
		{"Staged", fmt.Sprint(run.Staged)},
		{"Materialized", fmt.Sprint(run.Succeeded)},
		{"Failed", fmt.Sprint(run.Failed)},
		{"Duration", run.Duration.Round(time.Millisecond).String()},
		{"Import dir", cfg.Paths.ImportDir},
	}))
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
}
