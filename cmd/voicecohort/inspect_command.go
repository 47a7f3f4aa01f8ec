package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"voicecohort/internal/config"
	"voicecohort/internal/recording"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var strict bool
	var legacyClipping bool

	cmd := &cobra.Command{
		Use:   "inspect <wav>...",
		Short: "Validate individual recordings and print their measurements",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := recording.OptionsFromConfig(cfg.Validation)
			if legacyClipping {
				opts.ClippingMode = config.ClippingModeLegacy
			}
			validator := recording.NewValidator(opts)

			results := make([]recording.Result, len(args))
			invalid := 0
			for i, path := range args {
				results[i] = validator.ValidateFile(path)
				if !results[i].Valid {
					invalid++
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderInspectTable(out, args, results))
			if strict && invalid > 0 {
				return fmt.Errorf("%d of %d recordings failed validation", invalid, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any recording is invalid")
	cmd.Flags().BoolVar(&legacyClipping, "legacy-clipping", false, "Use the legacy clipped-ratio computation")
	return cmd
}

func renderInspectTable(out io.Writer, paths []string, results []recording.Result) string {
	rows := make([][]string, 0, len(results))
	for i, res := range results {
		status := colorize(out, "valid", text.Colors{text.FgGreen})
		if !res.Valid {
			status = colorize(out, res.Reason, text.Colors{text.FgYellow})
		}
		rows = append(rows, []string{
			filepath.Base(paths[i]),
			status,
			measurement(res.SampleRate > 0, fmt.Sprint(res.SampleRate)),
			measurement(res.Peak > 0, fmt.Sprintf("%.3f", res.Peak)),
			measurement(res.NormalizationFactor > 0, fmt.Sprintf("%.2f", res.NormalizationFactor)),
			measurement(res.TrimmedSeconds > 0, fmt.Sprintf("%.3f", res.TrimmedSeconds)),
			measurement(res.Valid || res.ClippedRatio > 0, fmt.Sprintf("%.4f", res.ClippedRatio)),
		})
	}
	return renderTable(
		[]string{"File", "Result", "Rate", "Peak", "Gain", "Trimmed (s)", "Clipped"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func measurement(ok bool, value string) string {
	if !ok {
		return "-"
	}
	return value
}
