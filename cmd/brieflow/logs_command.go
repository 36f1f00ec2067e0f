package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"brieflow/internal/logging"
	"brieflow/internal/logs"
)

const followWait = time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var runID string
	var raw bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the brieflow log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logging.FilePath(cfg)
			if path == "" {
				return errors.New("file logging is disabled; set [paths].log_dir")
			}

			render := logs.Format
			if raw {
				render = func(line string) string { return line }
			}

			opts := logs.TailOptions{Offset: -1, Limit: lines, Contains: strings.TrimSpace(runID)}
			if lines <= 0 {
				opts.Offset = 0
			}
			out := cmd.OutOrStdout()
			printed := false
			for {
				result, err := logs.Tail(cmd.Context(), path, opts)
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, line := range result.Lines {
					fmt.Fprintln(out, render(line))
					printed = true
				}
				if !follow {
					if !printed {
						fmt.Fprintln(out, "No log entries available")
					}
					return nil
				}
				if cmd.Context().Err() != nil {
					return nil
				}
				opts.Offset = result.Offset
				opts.Follow = true
				opts.Wait = followWait
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines mentioning this run ID")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print lines exactly as written")
	return cmd
}
