package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inferloop/sdc/internal/config"
	"github.com/inferloop/sdc/internal/dataset"
	"github.com/inferloop/sdc/internal/engine"
	"github.com/inferloop/sdc/internal/export"
	"github.com/inferloop/sdc/pkg/models"
)

// App carries what every command needs once the config is loaded
type App struct {
	ConfigFile string
	Verbose    bool

	Config    *config.Config
	Logger    *logrus.Logger
	Engine    *engine.Engine
	Exporters *export.Registry
	Fixer     *dataset.Fixer
}

// init loads the config and builds the engine. Results stay in memory for
// the lifetime of one command.
func (a *App) init(cmd *cobra.Command) error {
	cfg, err := config.Load(viper.New(), a.ConfigFile)
	if err != nil {
		return err
	}
	if a.Verbose {
		cfg.Log.Level = logrus.DebugLevel.String()
	}

	logger := cfg.Log.NewLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	if !a.Verbose && cfg.Log.Level == logrus.InfoLevel.String() {
		// per-operation info logs only with --verbose
		logger.SetLevel(logrus.WarnLevel)
	}

	var randSource *rand.Rand
	if cfg.Engine.RandomSeed != 0 {
		randSource = rand.New(rand.NewSource(cfg.Engine.RandomSeed))
	}

	a.Config = cfg
	a.Logger = logger
	a.Engine = engine.New(engine.Options{
		RandSource: randSource,
		MaxRecords: cfg.Engine.MaxRecords,
	}, logger)
	a.Exporters = export.NewRegistry()
	a.Fixer = dataset.NewFixer(logger)
	return nil
}

// Defaults returns the configured parameter defaults
func (a *App) Defaults() engine.Defaults {
	return a.Config.Engine.Defaults
}

// readDataset loads path, or stdin when path is "-". The format comes from
// the extension unless format is set.
func readDataset(cmd *cobra.Command, path, format string) (*models.Dataset, error) {
	if format == "" {
		if path == "-" {
			return nil, fmt.Errorf("--input-format is required when reading stdin")
		}
		var err error
		if format, err = dataset.FormatFromFilename(path); err != nil {
			return nil, err
		}
	}

	if path == "-" {
		return dataset.Load(cmd.InOrStdin(), format)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return dataset.Load(f, format)
}

// writeDataset exports ds to path, or stdout when path is "-"
func (a *App) writeDataset(ctx context.Context, cmd *cobra.Command, ds *models.Dataset, path, format string) error {
	if format == "" && path != "-" {
		if inferred, err := dataset.FormatFromFilename(path); err == nil {
			format = inferred
		}
	}

	exporter, err := a.Exporters.Get(format)
	if err != nil {
		return err
	}

	return withOutput(cmd, path, func(w io.Writer) error {
		return exporter.Export(ctx, w, ds)
	})
}

// writeJSON prints v as indented JSON to path, or stdout when path is "-"
func writeJSON(cmd *cobra.Command, path string, v interface{}) error {
	return withOutput(cmd, path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func withOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// summary prints a human readable line to stderr so stdout stays pipeable
func summary(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}

// dataFlags are shared by every command that reads one dataset
type dataFlags struct {
	Input       string
	InputFormat string
	Output      string
	Format      string
}

func (d *dataFlags) register(cmd *cobra.Command, outputHelp string) {
	cmd.Flags().StringVarP(&d.Input, "input", "i", "", "Input dataset, csv or json (- for stdin)")
	cmd.Flags().StringVar(&d.InputFormat, "input-format", "", "Input format when it cannot be inferred (csv, json)")
	cmd.Flags().StringVarP(&d.Output, "output", "o", "-", outputHelp)
	cmd.Flags().StringVar(&d.Format, "format", "", "Output format (csv, json); inferred from --output when empty")
	_ = cmd.MarkFlagRequired("input")
}

// The param helpers prefer an explicit flag over the configured default.

func intParam(cmd *cobra.Command, name string, value, def int) int {
	if cmd.Flags().Changed(name) {
		return value
	}
	return def
}

func floatParam(cmd *cobra.Command, name string, value, def float64) float64 {
	if cmd.Flags().Changed(name) {
		return value
	}
	return def
}

func stringParam(cmd *cobra.Command, name string, value, def string) string {
	if cmd.Flags().Changed(name) {
		return value
	}
	return def
}
