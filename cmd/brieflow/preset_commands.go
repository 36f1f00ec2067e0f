package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"brieflow/internal/fanout"
	"brieflow/internal/pipeline"
	"brieflow/internal/preset"
	"brieflow/internal/services"
	"brieflow/internal/store"
	"brieflow/internal/textutil"
)

func newPresetCommand(ctx *commandContext) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage saved presets",
	}

	presetCmd.AddCommand(newPresetSaveCommand(ctx))
	presetCmd.AddCommand(newPresetListCommand(ctx))
	presetCmd.AddCommand(newPresetShowCommand(ctx))
	presetCmd.AddCommand(newPresetImportCommand(ctx))
	presetCmd.AddCommand(newPresetExportCommand(ctx))
	presetCmd.AddCommand(newPresetDeleteCommand(ctx))

	return presetCmd
}

type presetSaveOptions struct {
	kind         string
	fromRun      string
	brief        string
	platform     string
	creativity   int
	strategies   int
	brandKitPath string
	stylePath    string
}

func newPresetSaveCommand(ctx *commandContext) *cobra.Command {
	var opts presetSaveOptions

	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a preset from flags or from a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := preset.ParseKind(opts.kind)
			if err != nil {
				return err
			}
			overrides, err := loadOverrides(runOptions{brandKitPath: opts.brandKitPath, stylePath: opts.stylePath})
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				p := preset.Preset{Name: args[0], Kind: kind}
				if id := strings.TrimSpace(opts.fromRun); id != "" {
					detail, err := st.GetRun(cmd.Context(), id)
					if err != nil {
						return err
					}
					payload, err := payloadFromRun(detail, kind)
					if err != nil {
						return err
					}
					p.Payload = payload
				}
				if opts.brief != "" {
					p.Payload.Brief = opts.brief
				}
				if opts.platform != "" {
					p.Payload.Platform = opts.platform
				}
				if opts.creativity != 0 {
					p.Payload.Creativity = opts.creativity
				}
				if opts.strategies != 0 {
					p.Payload.NumStrategies = opts.strategies
				}
				if overrides.BrandKit != nil {
					p.Payload.BrandKit = overrides.BrandKit
				}
				if overrides.Style != nil {
					p.Payload.StyleOverrides = overrides.Style
				}

				if existing, err := st.GetPreset(cmd.Context(), p.Name); err == nil {
					p.ID = existing.ID
					p.CreatedAt = existing.CreatedAt
				} else if !errors.Is(err, services.ErrNotFound) {
					return err
				}
				saved, err := st.SavePreset(cmd.Context(), p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s preset %s (%s)\n", saved.Kind, saved.Name, saved.ID)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.kind, "kind", "k", string(preset.KindTemplate), "Preset kind (template or recipe)")
	flags.StringVar(&opts.fromRun, "from-run", "", "Capture inputs and artifacts from a recorded run")
	flags.StringVar(&opts.brief, "brief", "", "Brief text")
	flags.StringVarP(&opts.platform, "platform", "p", "", "Target platform")
	flags.IntVar(&opts.creativity, "creativity", 0, "Creativity level 1-3")
	flags.IntVarP(&opts.strategies, "strategies", "n", 0, "Number of strategies")
	flags.StringVar(&opts.brandKitPath, "brand-kit", "", "YAML or JSON brand kit file")
	flags.StringVar(&opts.stylePath, "style", "", "YAML or JSON style overrides file")
	return cmd
}

// payloadFromRun captures a recorded run's inputs and, for recipes, the
// artifacts the skipped stages would otherwise produce.
func payloadFromRun(detail *store.RunDetail, kind preset.Kind) (preset.Payload, error) {
	in := detail.Inputs
	payload := preset.Payload{
		Brief:          in.Brief,
		Platform:       in.Platform,
		Creativity:     in.Creativity,
		Language:       in.Language,
		NumStrategies:  in.NumStrategies,
		Flags:          in.Flags,
		BrandKit:       in.BrandKit,
		StyleOverrides: in.StyleOverrides,
	}
	if kind != preset.KindRecipe {
		return payload, nil
	}
	if err := decodeOutput(detail.Outputs, pipeline.SlotStrategies, &payload.Strategies); err != nil {
		return payload, err
	}
	if err := decodeOutput(detail.Outputs, pipeline.SlotStyleGuides, &payload.StyleGuides); err != nil {
		return payload, err
	}
	if err := decodeOutput(detail.Outputs, pipeline.SlotConcepts, &payload.Concepts); err != nil {
		return payload, err
	}
	if len(payload.Concepts) == 0 {
		return payload, fmt.Errorf("run %s produced no concepts to capture", detail.ID)
	}
	return payload, nil
}

func decodeOutput(outputs map[string]json.RawMessage, slot string, target any) error {
	raw, ok := outputs[slot]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode run %s: %w", slot, err)
	}
	return nil
}

func newPresetListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				presets, err := st.ListPresets(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, presets)
				}
				out := cmd.OutOrStdout()
				if len(presets) == 0 {
					fmt.Fprintln(out, "No presets saved")
					return nil
				}
				rows := make([][]string, 0, len(presets))
				for _, p := range presets {
					rows = append(rows, []string{
						p.Name,
						string(p.Kind),
						textutil.Preview(p.Payload.Brief, 40),
						fmt.Sprintf("%d", len(p.Payload.Concepts)),
						formatTimestamp(p.CreatedAt),
						p.ID,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Name", "Kind", "Brief", "Concepts", "Created", "ID"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newPresetShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id-or-name>",
		Short: "Show a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				p, err := st.GetPreset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, p)
				}
				data, err := preset.ExportYAML(p)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newPresetImportCommand(ctx *commandContext) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import presets from a YAML file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			incoming, err := preset.ParseYAML(data)
			if err != nil {
				return err
			}
			if len(incoming) == 0 {
				return errors.New("no presets found in input")
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				return importPresets(cmd, st, incoming, replace)
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace presets whose name already exists")
	return cmd
}

func importPresets(cmd *cobra.Command, st *store.Store, incoming []preset.Preset, replace bool) error {
	existing, err := st.ListPresets(cmd.Context())
	if err != nil {
		return err
	}
	pool := fanout.NewPool(0)
	known, err := preset.Fingerprints(cmd.Context(), pool, existing)
	if err != nil {
		return err
	}
	fingerprints, err := preset.Fingerprints(cmd.Context(), pool, incoming)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(known))
	for _, fp := range known {
		seen[fp] = struct{}{}
	}
	byName := make(map[string]preset.Preset, len(existing))
	for _, p := range existing {
		byName[p.Name] = p
	}

	out := cmd.OutOrStdout()
	var imported, skipped int
	for i, p := range incoming {
		if _, dup := seen[fingerprints[i]]; dup {
			fmt.Fprintf(out, "Skipped %s: identical preset already saved\n", p.Name)
			skipped++
			continue
		}
		if prior, ok := byName[p.Name]; ok {
			if !replace {
				return fmt.Errorf("preset %q already exists (use --replace to overwrite it)", p.Name)
			}
			p.ID = prior.ID
			p.CreatedAt = prior.CreatedAt
		}
		saved, err := st.SavePreset(cmd.Context(), p)
		if err != nil {
			return err
		}
		seen[fingerprints[i]] = struct{}{}
		fmt.Fprintf(out, "Imported %s preset %s (%s)\n", saved.Kind, saved.Name, saved.ID)
		imported++
	}
	fmt.Fprintf(out, "%d imported, %d skipped\n", imported, skipped)
	return nil
}

func newPresetExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export <id-or-name>",
		Short: "Export a preset as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				p, err := st.GetPreset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				data, err := preset.ExportYAML(p)
				if err != nil {
					return err
				}
				target := strings.TrimSpace(outputPath)
				if target == "" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if info, err := os.Stat(target); err == nil && info.IsDir() {
					target = filepath.Join(target, textutil.Token(p.Name)+".yaml")
				}
				if err := os.WriteFile(target, data, 0o644); err != nil {
					return fmt.Errorf("write preset: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", p.Name, target)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "File or directory to write (defaults to stdout)")
	return cmd
}

func newPresetDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id-or-name>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				p, err := st.GetPreset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := st.DeletePreset(cmd.Context(), p.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted preset %s (%s)\n", p.Name, p.ID)
				return nil
			})
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
