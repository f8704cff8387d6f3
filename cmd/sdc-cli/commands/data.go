package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/inferloop/sdc/internal/dataset"
)

type AutoFixOptions struct {
	dataFlags
}

func NewAutoFixCmd(app *App) *cobra.Command {
	opts := &AutoFixOptions{}

	cmd := &cobra.Command{
		Use:   "autofix",
		Short: "Clean a dataset before assessment",
		Long: `Remove duplicate rows, unify case and whitespace variants of string
values and fill missing cells (numeric median, "Unknown" for strings).`,
		Example: `  sdc-cli autofix --input raw.csv --output clean.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(cmd, opts.Input, opts.InputFormat)
			if err != nil {
				return err
			}

			result, err := app.Fixer.AutoFix(cmd.Context(), ds)
			if err != nil {
				return err
			}

			if err := app.writeDataset(cmd.Context(), cmd, result.Dataset, opts.Output, opts.Format); err != nil {
				return err
			}

			if len(result.Fixes) == 0 {
				summary(cmd, "No fixes needed")
			}
			for _, fix := range result.Fixes {
				summary(cmd, "%s", fix)
			}
			summary(cmd, "Quality score: %.2f", result.Quality.QualityScore)
			return nil
		},
	}

	opts.dataFlags.register(cmd, "Output file for the cleaned dataset (- for stdout)")

	return cmd
}

type QualityOptions struct {
	Input       string
	InputFormat string
	JSON        bool
}

func NewQualityCmd(app *App) *cobra.Command {
	opts := &QualityOptions{}

	cmd := &cobra.Command{
		Use:   "quality",
		Short: "Report completeness and duplicate rows of a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(cmd, opts.Input, opts.InputFormat)
			if err != nil {
				return err
			}

			report := dataset.AssessQuality(ds)
			if opts.JSON {
				return writeJSON(cmd, "-", report)
			}
			return withOutput(cmd, "-", func(w io.Writer) error {
				fmt.Fprintf(w, "Cells:          %d (%d filled)\n", report.TotalCells, report.FilledCells)
				fmt.Fprintf(w, "Duplicate rows: %d\n", report.DuplicateRows)
				fmt.Fprintf(w, "Completeness:   %.2f\n", report.CompletenessScore)
				fmt.Fprintf(w, "Quality score:  %.2f\n", report.QualityScore)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Input dataset, csv or json (- for stdin)")
	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "Input format when it cannot be inferred (csv, json)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
