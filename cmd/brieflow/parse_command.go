package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"brieflow/internal/llmjson"
	"brieflow/internal/services"
)

type parseOutput struct {
	Strategy llmjson.Strategy `json:"strategy"`
	Repaired bool             `json:"repaired"`
	Repairs  []string         `json:"repairs,omitempty"`
	Value    any              `json:"value"`
}

func newParseCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "parse [file]",
		Short:       "Extract structured JSON from raw model output",
		Long:        "Runs the response parser on a file (or stdin when omitted or -) and reports which extraction strategy succeeded.",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			data, err := readInput(cmd.InOrStdin(), source)
			if err != nil {
				return err
			}
			res, err := llmjson.Extract(string(data))
			if err != nil {
				return fmt.Errorf("parse failed (%s): %w", services.KindOf(err), err)
			}
			if jsonOutput {
				return writeJSON(cmd, parseOutput{
					Strategy: res.Strategy,
					Repaired: res.Repaired,
					Repairs:  res.Repairs,
					Value:    res.Value,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Strategy: %s\n", res.Strategy)
			fmt.Fprintf(out, "Repaired: %s\n", yesNo(res.Repaired))
			for _, repair := range res.Repairs {
				fmt.Fprintf(out, "  - %s\n", repair)
			}
			pretty, err := json.MarshalIndent(res.Value, "", "  ")
			if err != nil {
				return fmt.Errorf("encode value: %w", err)
			}
			fmt.Fprintln(out, string(pretty))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
