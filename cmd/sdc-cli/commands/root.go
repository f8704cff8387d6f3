package commands

import (
	"github.com/spf13/cobra"

	"github.com/inferloop/sdc/pkg/constants"
)

// NewRootCmd assembles the sdc-cli command tree
func NewRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:   "sdc-cli",
		Short: "Microdata privacy risk and anonymization CLI",
		Long: `A command-line interface for assessing re-identification risk in
tabular microdata, anonymizing it and measuring how much utility survives.`,
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.ConfigFile, "config", "", "config file (default is $HOME/.sdc.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewAssessCmd(app))
	rootCmd.AddCommand(NewAnonymizeCmd(app))
	rootCmd.AddCommand(NewNoiseCmd(app))
	rootCmd.AddCommand(NewSynthesizeCmd(app))
	rootCmd.AddCommand(NewUtilityCmd(app))
	rootCmd.AddCommand(NewAutoFixCmd(app))
	rootCmd.AddCommand(NewQualityCmd(app))
	rootCmd.AddCommand(NewConfigCmd(app))

	return rootCmd
}
