package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/inferloop/sdc/internal/privacy"
	"github.com/inferloop/sdc/pkg/models"
)

// transformFlags are shared by commands that emit a transformed dataset
type transformFlags struct {
	dataFlags
	Report string
}

func (t *transformFlags) register(cmd *cobra.Command) {
	t.dataFlags.register(cmd, "Output file for the transformed dataset (- for stdout)")
	cmd.Flags().StringVar(&t.Report, "report", "", "Also write the full result as JSON to this file")
}

// emit writes the transformed dataset, the optional report and a summary
func (a *App) emit(cmd *cobra.Command, flags transformFlags, result *models.AnonymizationResult) error {
	if err := a.writeDataset(cmd.Context(), cmd, result.Dataset, flags.Output, flags.Format); err != nil {
		return err
	}
	if flags.Report != "" {
		if err := writeJSON(cmd, flags.Report, result); err != nil {
			return err
		}
	}

	summary(cmd, "%s: %d of %d records kept, %d suppressed, %d generalized, information loss %.4f, compliant %t",
		result.Technique, result.Dataset.Len(), result.OriginalRecords,
		result.RecordsSuppressed, result.RecordsGeneralized, result.InformationLoss, result.Compliant)
	return nil
}

func NewAnonymizeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anonymize",
		Short: "Anonymize a dataset by suppression and generalization",
		Long: `Enforce a syntactic privacy model over quasi-identifier columns by
suppressing small classes within a budget and generalizing what remains.`,
	}

	cmd.AddCommand(newKAnonymityCmd(app))
	cmd.AddCommand(newLDiversityCmd(app))
	cmd.AddCommand(newTClosenessCmd(app))

	return cmd
}

type KAnonymityOptions struct {
	transformFlags
	QuasiIdentifiers []string
	K                int
	SuppressionLimit float64
}

func newKAnonymityCmd(app *App) *cobra.Command {
	opts := &KAnonymityOptions{}

	cmd := &cobra.Command{
		Use:   "k-anonymity",
		Short: "Make every quasi-identifier class at least k records large",
		Example: `  sdc-cli anonymize k-anonymity --input patients.csv --qi age,zip --k 5 --output anon.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(cmd, opts.Input, opts.InputFormat)
			if err != nil {
				return err
			}

			defaults := app.Defaults()
			result, err := app.Engine.ApplyKAnonymity(cmd.Context(), ds, privacy.KAnonymityConfig{
				QuasiIdentifiers: opts.QuasiIdentifiers,
				K:                intParam(cmd, "k", opts.K, defaults.K),
				SuppressionLimit: floatParam(cmd, "suppression-limit", opts.SuppressionLimit, defaults.SuppressionLimit),
			})
			if err != nil {
				return err
			}
			return app.emit(cmd, opts.transformFlags, result)
		},
	}

	opts.transformFlags.register(cmd)
	cmd.Flags().StringSliceVarP(&opts.QuasiIdentifiers, "qi", "q", nil, "Quasi-identifier columns (required)")
	cmd.Flags().IntVar(&opts.K, "k", 0, "Minimum class size")
	cmd.Flags().Float64Var(&opts.SuppressionLimit, "suppression-limit", 0, "Maximum share of records to suppress (0 to 1)")
	_ = cmd.MarkFlagRequired("qi")

	return cmd
}

type LDiversityOptions struct {
	transformFlags
	QuasiIdentifiers   []string
	SensitiveAttribute string
	L                  int
	Model              string
	RecursiveC         float64
	SuppressionLimit   float64
}

func newLDiversityCmd(app *App) *cobra.Command {
	opts := &LDiversityOptions{}

	cmd := &cobra.Command{
		Use:   "l-diversity",
		Short: "Make every class hold at least l well-represented sensitive values",
		Example: `  sdc-cli anonymize l-diversity --input patients.csv --qi age,zip --sensitive diagnosis --l 3 --model entropy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(cmd, opts.Input, opts.InputFormat)
			if err != nil {
				return err
			}

			defaults := app.Defaults()
			result, err := app.Engine.ApplyLDiversity(cmd.Context(), ds, privacy.LDiversityConfig{
				QuasiIdentifiers:   opts.QuasiIdentifiers,
				SensitiveAttribute: opts.SensitiveAttribute,
				L:                  intParam(cmd, "l", opts.L, defaults.L),
				Model:              strings.ToLower(stringParam(cmd, "model", opts.Model, defaults.DiversityModel)),
				RecursiveC:         opts.RecursiveC,
				SuppressionLimit:   floatParam(cmd, "suppression-limit", opts.SuppressionLimit, defaults.SuppressionLimit),
			})
			if err != nil {
				return err
			}
			return app.emit(cmd, opts.transformFlags, result)
		},
	}

	opts.transformFlags.register(cmd)
	cmd.Flags().StringSliceVarP(&opts.QuasiIdentifiers, "qi", "q", nil, "Quasi-identifier columns (required)")
	cmd.Flags().StringVarP(&opts.SensitiveAttribute, "sensitive", "s", "", "Sensitive attribute column (required)")
	cmd.Flags().IntVar(&opts.L, "l", 0, "Required diversity")
	cmd.Flags().StringVar(&opts.Model, "model", "", "Diversity model (distinct, entropy, recursive)")
	cmd.Flags().Float64Var(&opts.RecursiveC, "recursive-c", 0, "Constant c of recursive (c,l)-diversity")
	cmd.Flags().Float64Var(&opts.SuppressionLimit, "suppression-limit", 0, "Maximum share of records to suppress (0 to 1)")
	_ = cmd.MarkFlagRequired("qi")
	_ = cmd.MarkFlagRequired("sensitive")

	return cmd
}

type TClosenessOptions struct {
	transformFlags
	QuasiIdentifiers   []string
	SensitiveAttribute string
	T                  float64
	SuppressionLimit   float64
}

func newTClosenessCmd(app *App) *cobra.Command {
	opts := &TClosenessOptions{}

	cmd := &cobra.Command{
		Use:   "t-closeness",
		Short: "Keep each class's sensitive distribution within t of the whole table",
		Example: `  sdc-cli anonymize t-closeness --input patients.csv --qi age,zip --sensitive income --t 0.2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(cmd, opts.Input, opts.InputFormat)
			if err != nil {
				return err
			}

			defaults := app.Defaults()
			result, err := app.Engine.ApplyTCloseness(cmd.Context(), ds, privacy.TClosenessConfig{
				QuasiIdentifiers:   opts.QuasiIdentifiers,
				SensitiveAttribute: opts.SensitiveAttribute,
				T:                  floatParam(cmd, "t", opts.T, defaults.T),
				SuppressionLimit:   floatParam(cmd, "suppression-limit", opts.SuppressionLimit, defaults.SuppressionLimit),
			})
			if err != nil {
				return err
			}
			return app.emit(cmd, opts.transformFlags, result)
		},
	}

	opts.transformFlags.register(cmd)
	cmd.Flags().StringSliceVarP(&opts.QuasiIdentifiers, "qi", "q", nil, "Quasi-identifier columns (required)")
	cmd.Flags().StringVarP(&opts.SensitiveAttribute, "sensitive", "s", "", "Sensitive attribute column (required)")
	cmd.Flags().Float64Var(&opts.T, "t", 0, "Maximum distance between class and table distributions (0 to 1)")
	cmd.Flags().Float64Var(&opts.SuppressionLimit, "suppression-limit", 0, "Maximum share of records to suppress (0 to 1)")
	_ = cmd.MarkFlagRequired("qi")
	_ = cmd.MarkFlagRequired("sensitive")

	return cmd
}
