package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"brieflow/internal/pipeline"
	"brieflow/internal/store"
	"brieflow/internal/textutil"
)

const defaultRunListLimit = 20

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Brief", "Platform", "Preset", "Tokens", "Cost (USD)", "Created"},
					runRows(runs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultRunListLimit, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runRows(runs []store.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		presetLabel := "-"
		if r.PresetID != "" {
			presetLabel = r.PresetKind
		}
		rows = append(rows, []string{
			r.ID,
			string(r.Status),
			textutil.Preview(r.Brief, 40),
			r.Platform,
			presetLabel,
			fmt.Sprintf("%d", r.TotalTokens),
			formatCost(r.CostUSD),
			formatTimestamp(r.CreatedAt),
		})
	}
	return rows
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var showLogs bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				detail, err := st.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, detail)
				}
				printRunDetail(cmd.OutOrStdout(), detail, showLogs)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showLogs, "logs", false, "Include the run log")
	return cmd
}

func printRunDetail(out io.Writer, detail *store.RunDetail, showLogs bool) {
	colorize := shouldColorize(out)
	message := string(detail.Status)
	if detail.ErrorMessage != "" {
		message += ": " + detail.ErrorMessage
	}
	fmt.Fprintln(out, renderStatusLine("Run "+detail.ID, runStatusKind(detail.Status), message, colorize))
	fmt.Fprintf(out, "%sBrief:      %s\n", statusIndent, detail.Brief)
	fmt.Fprintf(out, "%sPlatform:   %s\n", statusIndent, detail.Platform)
	fmt.Fprintf(out, "%sCreativity: %d\n", statusIndent, detail.Creativity)
	if detail.PresetID != "" {
		fmt.Fprintf(out, "%sPreset:     %s (%s)\n", statusIndent, detail.PresetID, detail.PresetKind)
	}
	fmt.Fprintf(out, "%sCreated:    %s\n", statusIndent, formatTimestamp(detail.CreatedAt))

	if len(detail.Stages) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Stages", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, line := range renderStageLines(detail.Stages, colorize) {
			fmt.Fprintln(out, line)
		}
	}

	var prompts []pipeline.FinalPrompt
	if raw, ok := detail.Outputs[pipeline.SlotFinalPrompts]; ok {
		_ = json.Unmarshal(raw, &prompts)
	}
	if len(prompts) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Prompts", colorize) {
			fmt.Fprintln(out, line)
		}
		for i, p := range prompts {
			fmt.Fprintf(out, "%d. %s [%s]\n   %s\n", i+1, p.ConceptTitle, p.AspectRatio, p.Prompt)
		}
	}

	if len(detail.Usage) > 0 {
		usage := make(map[string]pipeline.UsageRecord, len(detail.Usage))
		order := make([]string, 0, len(detail.Usage))
		for _, u := range detail.Usage {
			usage[u.Stage] = u.UsageRecord
			order = append(order, u.Stage)
		}
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Usage", colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, renderTable(usageHeaders, usageRows(usage, order), usageAligns))
	}

	if showLogs && len(detail.Logs) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Log", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, line := range detail.Logs {
			fmt.Fprintln(out, line)
		}
	}
}
