package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"oepma/internal/logging"
	"oepma/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and prune staged records",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

type stagedEntry struct {
	Name     string    `json:"name"`
	Title    string    `json:"title"`
	Media    bool      `json:"media"`
	Modified time.Time `json:"modified"`
	Error    string    `json:"error,omitempty"`
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	var done bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending staged records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := cfg.InputDir()
			if done {
				dir = cfg.SuccessDir()
			}
			paths, err := staging.List(dir)
			if err != nil {
				return err
			}

			entries := make([]stagedEntry, 0, len(paths))
			for _, path := range paths {
				entry := stagedEntry{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
				if info, err := os.Stat(path); err == nil {
					entry.Modified = info.ModTime()
				}
				rec, err := staging.Read(path)
				if err != nil {
					entry.Error = err.Error()
				} else {
					entry.Title = rec.Title
					entry.Media = rec.HasMedia()
				}
				entries = append(entries, entry)
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"dir": dir, "records": entries})
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No staged records in %s\n", dir)
				return nil
			}
			fmt.Fprintf(out, "Staging directory: %s\n\n", dir)
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				title := entry.Title
				if entry.Error != "" {
					title = "unreadable: " + entry.Error
				}
				rows = append(rows, []string{entry.Name, title, yesNo(entry.Media), entry.Modified.Format("2006-01-02 15:04")})
			}
			fmt.Fprint(out, renderTable([]string{"Name", "Title", "Media", "Modified"}, rows, nil))
			fmt.Fprintf(out, "\n%d record(s)\n", len(entries))
			return nil
		},
	}
	cmd.Flags().BoolVar(&done, "done", false, "List materialized records in the success directory instead")
	return cmd
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove materialized records from the success directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			maxAge := olderThan
			if !cmd.Flags().Changed("older-than") {
				maxAge = time.Duration(cfg.Import.SuccessRetentionDays) * 24 * time.Hour
			}

			result := staging.CleanDone(cmd.Context(), cfg.InputDir(), maxAge, logging.NewNop())
			if ctx.JSONMode() {
				errs := make([]map[string]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, map[string]string{"path": e.Path, "error": e.Error.Error()})
				}
				return writeJSON(cmd, map[string]any{"removed": result.Removed, "errors": errs})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d record(s) older than %s\n", len(result.Removed), maxAge)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  failed: %s: %v\n", e.Path, e.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d record(s) could not be removed", len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Minimum age of removed records (defaults to import.success_retention_days)")
	return cmd
}
