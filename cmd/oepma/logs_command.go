package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"oepma/internal/api"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		follow bool
		lines  int
		level  string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log events",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Logs(cmd.Context(), logQuery{Limit: lines, Tail: true, Level: level})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printLogEvents(out, resp.Events)
			if !follow {
				return nil
			}
			next := resp.Next
			for {
				resp, err := client.Logs(cmd.Context(), logQuery{Since: next, Follow: true, Level: level})
				if err != nil {
					if errors.Is(err, context.Canceled) || cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				printLogEvents(out, resp.Events)
				if resp.Next > next {
					next = resp.Next
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new events")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of events to show")
	cmd.Flags().StringVar(&level, "level", "", "Only show events at this level (INFO, WARN, ERROR)")
	return cmd
}

func printLogEvents(w io.Writer, events []api.LogEvent) {
	for _, evt := range events {
		subject := evt.ProcessName
		if subject == "" {
			subject = evt.Component
		}
		line := fmt.Sprintf("%s %-5s %s", evt.Timestamp, evt.Level, evt.Message)
		if subject != "" {
			line = fmt.Sprintf("%s %-5s [%s] %s", evt.Timestamp, evt.Level, subject, evt.Message)
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
