package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"oepma/internal/config"
	"oepma/internal/repository"
)

func newProcessesCommand(ctx *commandContext) *cobra.Command {
	processesCmd := &cobra.Command{
		Use:     "processes",
		Aliases: []string{"ps"},
		Short:   "Inspect repository processes",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List processes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(_ *config.Config, store *repository.Store) error {
				procs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if procs == nil {
						procs = []*repository.Process{}
					}
					return writeJSON(cmd, procs)
				}
				out := cmd.OutOrStdout()
				if len(procs) == 0 {
					fmt.Fprintln(out, "Repository is empty")
					return nil
				}
				rows := make([][]string, 0, len(procs))
				for _, p := range procs {
					rows = append(rows, []string{
						fmt.Sprint(p.ID),
						p.Title,
						p.Template,
						yesNo(p.MediaPath != ""),
						p.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Title", "Template", "Media", "Created"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of processes (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show <title>",
		Short: "Show one process with its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(_ *config.Config, store *repository.Store) error {
				proc, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, proc)
				}
				renderProcess(cmd.OutOrStdout(), proc)
				return nil
			})
		},
	}

	processesCmd.AddCommand(listCmd, showCmd)
	return processesCmd
}

func renderProcess(w io.Writer, proc *repository.Process) {
	media := proc.MediaPath
	if media == "" {
		media = "-"
	}
	fmt.Fprint(w, renderKeyValues([][2]string{
		{"ID", fmt.Sprint(proc.ID)},
		{"Title", proc.Title},
		{"Template", proc.Template},
		{"Publication type", proc.PublicationType},
		{"Media", media},
		{"Created", proc.CreatedAt.Local().Format("2006-01-02 15:04:05")},
	}))

	if len(proc.Metadata) > 0 {
		fmt.Fprintln(w, "\nMetadata")
		fmt.Fprint(w, renderTable([]string{"Name", "Value"}, fieldRows(proc.Metadata), nil))
	}
	for i, group := range proc.Groups {
		fmt.Fprintf(w, "\n%s #%d\n", group.Type, i+1)
		fmt.Fprint(w, renderTable([]string{"Name", "Value"}, fieldRows(group.Fields), nil))
	}
	if len(proc.Persons) > 0 {
		rows := make([][]string, 0, len(proc.Persons))
		for _, p := range proc.Persons {
			rows = append(rows, []string{p.Role, p.LastName, p.FirstName})
		}
		fmt.Fprintln(w, "\nPersons")
		fmt.Fprint(w, renderTable([]string{"Role", "Last name", "First name"}, rows, nil))
	}
	if len(proc.Properties) > 0 {
		fmt.Fprintln(w, "\nProperties")
		fmt.Fprint(w, renderTable([]string{"Name", "Value"}, fieldRows(proc.Properties), nil))
	}
}

func fieldRows(fields []repository.Field) [][]string {
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{f.Name, f.Value})
	}
	return rows
}
