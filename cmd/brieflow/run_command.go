package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"brieflow/internal/config"
	"brieflow/internal/cost"
	"brieflow/internal/creative"
	"brieflow/internal/language"
	"brieflow/internal/notifications"
	"brieflow/internal/pipeline"
	"brieflow/internal/preset"
	"brieflow/internal/retry"
	"brieflow/internal/services/llm"
	"brieflow/internal/store"
	"brieflow/internal/workflow"
)

type runOptions struct {
	brief        string
	briefFile    string
	platform     string
	creativity   int
	strategies   int
	language     string
	includeText  bool
	presetID     string
	brandKitPath string
	stylePath    string
	jsonOutput   bool
	noRecord     bool
}

type runOutput struct {
	RunID        string                          `json:"run_id"`
	Status       pipeline.RunStatus              `json:"status"`
	Error        string                          `json:"error,omitempty"`
	PresetID     string                          `json:"preset_id,omitempty"`
	Stages       []pipeline.StageRecord          `json:"stages"`
	Usage        map[string]pipeline.UsageRecord `json:"usage"`
	TotalUsage   pipeline.UsageRecord            `json:"total_usage"`
	FinalPrompts []pipeline.FinalPrompt          `json:"final_prompts,omitempty"`
	Assessments  []pipeline.Assessment           `json:"assessments,omitempty"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [brief]",
		Short: "Run the creative pipeline for a brief",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.brief = args[0]
			}
			return runPipeline(cmd, ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.briefFile, "brief-file", "f", "", "Read the brief from a file (- for stdin)")
	flags.StringVarP(&opts.platform, "platform", "p", "", "Target platform (defaults to pipeline.default_platform)")
	flags.IntVar(&opts.creativity, "creativity", 0, "Creativity level 1-3 (defaults to pipeline.default_creativity)")
	flags.IntVarP(&opts.strategies, "strategies", "n", 0, "Number of strategies to generate")
	flags.StringVar(&opts.language, "language", "", "Output language (defaults to pipeline.language)")
	flags.BoolVar(&opts.includeText, "include-text", false, "Allow rendered text in generated images")
	flags.StringVar(&opts.presetID, "preset", "", "Apply a saved preset by ID or name")
	flags.StringVar(&opts.brandKitPath, "brand-kit", "", "YAML or JSON file with a brand kit override")
	flags.StringVar(&opts.stylePath, "style", "", "YAML or JSON file with style overrides")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Output the run result as JSON")
	flags.BoolVar(&opts.noRecord, "no-record", false, "Do not record the run in the database")

	return cmd
}

func runPipeline(cmd *cobra.Command, ctx *commandContext, opts runOptions) error {
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

	brief, err := readBrief(cmd.InOrStdin(), opts)
	if err != nil {
		return err
	}
	overrides, err := loadOverrides(opts)
	if err != nil {
		return err
	}

	return ctx.withStore(cmd.Context(), func(st *store.Store) error {
		rc := pipeline.New(pipeline.Inputs{
			Brief:         brief,
			Platform:      strings.TrimSpace(opts.platform),
			Creativity:    opts.creativity,
			Language:      strings.TrimSpace(opts.language),
			NumStrategies: opts.strategies,
		})
		if opts.includeText {
			rc.Inputs.Flags = map[string]bool{creative.FlagIncludeText: true}
		}

		if id := strings.TrimSpace(opts.presetID); id != "" {
			if _, err := preset.Load(cmd.Context(), st, id, rc, overrides); err != nil {
				return fmt.Errorf("load preset %q: %w", id, err)
			}
		} else {
			rc.Inputs.BrandKit = overrides.BrandKit
			rc.Inputs.StyleOverrides = overrides.Style
		}
		applyRunDefaults(&rc.Inputs, cfg)
		if err := rc.Inputs.Validate(); err != nil {
			return fmt.Errorf("invalid run inputs: %w", err)
		}

		var sinks []workflow.Sink
		if !opts.noRecord {
			sinks = append(sinks, st)
		}
		if notifier := notifications.NewService(cfg); notifier.Enabled() {
			sinks = append(sinks, notifications.NewRunNotifier(notifier, cfg.Notifications.NotifyOnSuccess))
		}
		var observer workflow.Observer
		if !opts.jsonOutput {
			errOut := cmd.ErrOrStderr()
			observer = progressObserver{out: errOut, colorize: shouldColorize(errOut)}
		}
		orch, err := buildOrchestrator(cfg, logger, observer, sinks...)
		if err != nil {
			return err
		}

		result, err := orch.Run(cmd.Context(), rc)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			if err := writeJSON(cmd, newRunOutput(result)); err != nil {
				return err
			}
		} else {
			printRunResult(cmd.OutOrStdout(), result, cfg.Pipeline.Stages)
		}
		if result.Status == pipeline.RunFailed {
			return fmt.Errorf("run %s failed: %s", result.RunID, result.ErrorMessage)
		}
		return nil
	})
}

// buildOrchestrator wires the LLM client, retry policy, cost calculator, and
// stage registry from cfg. Nil sinks are ignored.
func buildOrchestrator(cfg *config.Config, logger *slog.Logger, observer workflow.Observer, sinks ...workflow.Sink) (*workflow.Orchestrator, error) {
	catalog, err := cost.CatalogFromConfig(cfg.Cost)
	if err != nil {
		return nil, fmt.Errorf("load model pricing: %w", err)
	}
	client := llm.WithRetry(llm.Select(cfg.GetLLM()), retry.FromConfig(cfg), logger)
	deps := creative.DepsFromConfig(cfg, client, cost.NewCalculator(catalog), logger)

	var opts []workflow.Option
	for _, sink := range sinks {
		opts = append(opts, workflow.WithSink(sink))
	}
	if observer != nil {
		opts = append(opts, workflow.WithObserver(observer))
	}
	orch, err := workflow.NewFromConfig(cfg, creative.Registry(deps), logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return orch, nil
}

func applyRunDefaults(in *pipeline.Inputs, cfg *config.Config) {
	if in.Platform == "" {
		in.Platform = cfg.Pipeline.DefaultPlatform
	}
	if in.Creativity == 0 {
		in.Creativity = cfg.Pipeline.DefaultCreativity
	}
	if in.Language == "" {
		in.Language = cfg.Pipeline.Language
	}
	if normalized := language.Normalize(in.Language); normalized != "" {
		in.Language = normalized
	}
	if in.NumStrategies == 0 {
		in.NumStrategies = cfg.Pipeline.NumStrategies
	}
}

func readBrief(stdin io.Reader, opts runOptions) (string, error) {
	brief := strings.TrimSpace(opts.brief)
	path := strings.TrimSpace(opts.briefFile)
	if path == "" {
		return brief, nil
	}
	if brief != "" {
		return "", errors.New("pass the brief as an argument or with --brief-file, not both")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read brief: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func loadOverrides(opts runOptions) (preset.Overrides, error) {
	var overrides preset.Overrides
	if path := strings.TrimSpace(opts.brandKitPath); path != "" {
		var kit pipeline.BrandKit
		if err := decodeYAMLFile(path, &kit); err != nil {
			return overrides, fmt.Errorf("brand kit: %w", err)
		}
		overrides.BrandKit = &kit
	}
	if path := strings.TrimSpace(opts.stylePath); path != "" {
		var style map[string]any
		if err := decodeYAMLFile(path, &style); err != nil {
			return overrides, fmt.Errorf("style overrides: %w", err)
		}
		overrides.Style = style
	}
	return overrides, nil
}

// decodeYAMLFile decodes a YAML file into target. JSON is valid YAML, so both
// formats are accepted.
func decodeYAMLFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

type progressObserver struct {
	out      io.Writer
	colorize bool
}

func (p progressObserver) BeforeStage(context.Context, *pipeline.Context, string) {}

func (p progressObserver) AfterStage(_ context.Context, _ *pipeline.Context, rec pipeline.StageRecord) {
	for _, line := range renderStageLines([]pipeline.StageRecord{rec}, p.colorize) {
		fmt.Fprintln(p.out, line)
	}
}

func newRunOutput(rc *pipeline.Context) runOutput {
	out := runOutput{
		RunID:      rc.RunID,
		Status:     rc.Status,
		Error:      rc.ErrorMessage,
		PresetID:   rc.PresetID,
		Stages:     rc.StageRecords,
		Usage:      rc.Usage(),
		TotalUsage: rc.TotalUsage(),
	}
	if prompts, ok := rc.FinalPrompts.Get(); ok {
		out.FinalPrompts = prompts
	}
	if assessments, ok := rc.Assessments.Get(); ok {
		out.Assessments = assessments
	}
	return out
}

func printRunResult(out io.Writer, rc *pipeline.Context, order []string) {
	colorize := shouldColorize(out)
	message := string(rc.Status)
	if rc.ErrorMessage != "" {
		message += ": " + rc.ErrorMessage
	}
	fmt.Fprintln(out, renderStatusLine("Run "+rc.RunID, runStatusKind(rc.Status), message, colorize))

	prompts, _ := rc.FinalPrompts.Get()
	if len(prompts) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Prompts", colorize) {
			fmt.Fprintln(out, line)
		}
		scores := assessmentScores(rc)
		for i, p := range prompts {
			title := p.ConceptTitle
			if score, ok := scores[i]; ok {
				title = fmt.Sprintf("%s (score %.1f)", title, score)
			}
			fmt.Fprintf(out, "%d. %s [%s]\n", i+1, title, p.AspectRatio)
			fmt.Fprintf(out, "   %s\n", p.Prompt)
			if p.NegativePrompt != "" {
				fmt.Fprintf(out, "   negative: %s\n", p.NegativePrompt)
			}
		}
	}

	if usage := rc.Usage(); len(usage) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Usage", colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, renderTable(usageHeaders, usageRows(usage, order), usageAligns))
	}
}

func assessmentScores(rc *pipeline.Context) map[int]float64 {
	assessments, ok := rc.Assessments.Get()
	if !ok {
		return nil
	}
	scores := make(map[int]float64, len(assessments))
	for _, a := range assessments {
		scores[a.PromptIndex] = a.Score
	}
	return scores
}
