package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"brieflow/internal/store"
	"brieflow/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stage readiness and the latest recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.LLM.APIKey) == "" {
				return errors.New("llm api key is not configured; set [llm].api_key or export OPENROUTER_API_KEY")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			orch, err := buildOrchestrator(cfg, logger, nil)
			if err != nil {
				return err
			}

			checkCtx, cancel := context.WithTimeout(cmd.Context(), healthCheckTimeout)
			summary := orch.Status(checkCtx)
			cancel()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := renderSectionHeader("Stages", colorize)
			unhealthy := 0
			for _, name := range cfg.Pipeline.Stages {
				health, ok := summary.StageHealth[name]
				label := textutil.Label(name)
				switch {
				case !ok:
					lines = append(lines, renderStatusLine(label, statusWarn, "not registered", colorize))
				case health.Ready:
					lines = append(lines, renderStatusLine(label, statusOK, health.Summary(), colorize))
				default:
					unhealthy++
					lines = append(lines, renderStatusLine(label, statusError, health.Summary(), colorize))
				}
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			err = ctx.withStore(cmd.Context(), func(st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), 1)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Last Run", colorize) {
					fmt.Fprintln(out, line)
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, renderStatusLine("Run", statusInfo, "none recorded", colorize))
					return nil
				}
				last := runs[0]
				fmt.Fprintln(out, renderStatusLine("Run", runStatusKind(last.Status), string(last.Status)+" "+last.ID, colorize))
				fmt.Fprintln(out, renderStatusLine("Brief", statusInfo, textutil.Preview(last.Brief, 60), colorize))
				fmt.Fprintln(out, renderStatusLine("Created", statusInfo, formatTimestamp(last.CreatedAt), colorize))
				return nil
			})
			if err != nil {
				return err
			}
			if unhealthy > 0 {
				return fmt.Errorf("%d stage(s) not ready", unhealthy)
			}
			return nil
		},
	}
}
