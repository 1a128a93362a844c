package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"oepma/internal/api"
	"oepma/internal/config"
	"oepma/internal/repository"
	"oepma/internal/staging"
	"oepma/internal/workflow"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, run and staging status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := resolveStatus(cmd.Context(), ctx, cfg)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd.OutOrStdout(), status, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}

	triggerCmd := &cobra.Command{
		Use:   "trigger [stage|materialize|all]",
		Short: "Start an import run on the daemon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase := ""
			if len(args) == 1 {
				phase = args[0]
			}
			if _, err := workflow.ParsePhase(phase); err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.StartRun(cmd.Context(), phase)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run started (phase %s)\n", resp.Phase)
			return nil
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Ask the daemon to stop the active run before its next record",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.CancelRun(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, resp)
			}
			if resp.Cancelled {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancellation requested")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No run is active")
			}
			return nil
		},
	}

	return []*cobra.Command{statusCmd, triggerCmd, cancelCmd}
}

// resolveStatus asks the daemon first and falls back to reading the import
// directory and repository directly when it is not running.
func resolveStatus(cmdCtx context.Context, ctx *commandContext, cfg *config.Config) (*api.DaemonStatus, error) {
	client, err := ctx.client()
	if err != nil {
		return nil, err
	}
	reqCtx, cancel := context.WithTimeout(cmdCtx, 3*time.Second)
	defer cancel()
	status, err := client.Status(reqCtx)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, errDaemonUnavailable) {
		return nil, err
	}

	local := &api.DaemonStatus{
		ImportDir:      cfg.Paths.ImportDir,
		LockFilePath:   cfg.LockPath(),
		RepositoryPath: cfg.Repository.DBPath,
	}
	summary, err := staging.Summarize(cfg.InputDir())
	if err != nil {
		return nil, fmt.Errorf("summarize staging: %w", err)
	}
	local.Staging = api.FromStagingSummary(summary)
	store, err := repository.Open(cmdCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	defer store.Close()
	if local.Processes, err = store.Count(cmdCtx); err != nil {
		return nil, err
	}
	return local, nil
}

func renderStatus(w io.Writer, status *api.DaemonStatus, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(w, line)
	}
	if status.Running {
		fmt.Fprintln(w, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		fmt.Fprintln(w, renderStatusLine("Daemon", statusInfo, "Not running", colorize))
	}
	fmt.Fprintln(w, renderStatusLine("Import dir", statusInfo, status.ImportDir, colorize))
	fmt.Fprintln(w, renderStatusLine("Repository", statusInfo, fmt.Sprintf("%s (%d processes)", status.RepositoryPath, status.Processes), colorize))
	fmt.Fprintln(w)

	for _, line := range renderSectionHeader("Import Run", colorize) {
		fmt.Fprintln(w, line)
	}
	wf := status.Workflow
	switch {
	case wf.Running:
		fmt.Fprintln(w, renderStatusLine("Active", statusOK, renderProgressBar(wf.Phase, wf.Current, wf.Total), colorize))
	case wf.LastError != "":
		fmt.Fprintln(w, renderStatusLine("Last run", statusError, wf.LastError, colorize))
	case wf.LastRun != nil:
		kind, outcome := statusOK, "completed"
		if wf.LastRun.Cancelled {
			kind, outcome = statusWarn, "cancelled"
		}
		detail := fmt.Sprintf("%s %s: %d staged, %d materialized, %d failed",
			wf.LastRun.Phase, outcome, wf.LastRun.Staged, wf.LastRun.Succeeded, wf.LastRun.Failed)
		fmt.Fprintln(w, renderStatusLine("Last run", kind, detail, colorize))
	default:
		fmt.Fprintln(w, renderStatusLine("Last run", statusInfo, "None", colorize))
	}
	fmt.Fprintln(w)

	for _, line := range renderSectionHeader("Staging", colorize) {
		fmt.Fprintln(w, line)
	}
	oldest := strings.TrimSpace(status.Staging.OldestPending)
	if oldest == "" {
		oldest = "-"
	}
	fmt.Fprint(w, renderTable(
		[]string{"Pending", "Done", "Oldest pending"},
		[][]string{{fmt.Sprint(status.Staging.Pending), fmt.Sprint(status.Staging.Done), oldest}},
		[]columnAlignment{alignRight, alignRight, alignLeft},
	))
}
