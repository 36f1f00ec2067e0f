package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"brieflow/internal/config"
	"brieflow/internal/retry"
	"brieflow/internal/services/llm"
)

const healthCheckTimeout = 30 * time.Second

func newLLMCommand(ctx *commandContext) *cobra.Command {
	llmCmd := &cobra.Command{
		Use:   "llm",
		Short: "LLM provider utilities",
	}
	llmCmd.AddCommand(newLLMHealthCommand(ctx))
	return llmCmd
}

func newLLMHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that every configured model answers with valid JSON",
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
			client := llm.WithRetry(llm.Select(cfg.GetLLM()), retry.FromConfig(cfg), logger)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var failed int
			for _, model := range configuredModels(cfg) {
				checkCtx, cancel := context.WithTimeout(cmd.Context(), healthCheckTimeout)
				started := time.Now()
				err := llm.HealthCheck(checkCtx, client, model)
				cancel()
				if err != nil {
					failed++
					fmt.Fprintln(out, renderStatusLine(model, statusError, err.Error(), colorize))
					continue
				}
				fmt.Fprintln(out, renderStatusLine(model, statusOK, "responded in "+formatDuration(time.Since(started)), colorize))
			}
			if failed > 0 {
				return fmt.Errorf("%d model(s) failed the health check", failed)
			}
			return nil
		},
	}
}

// configuredModels returns the distinct models used by the configured stages.
func configuredModels(cfg *config.Config) []string {
	var models []string
	for _, name := range cfg.Pipeline.Stages {
		model := cfg.ModelForStage(name)
		if model != "" && !slices.Contains(models, model) {
			models = append(models, model)
		}
	}
	if len(models) == 0 && cfg.LLM.Model != "" {
		models = append(models, cfg.LLM.Model)
	}
	return models
}
