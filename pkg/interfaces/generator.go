package interfaces

import (
	"context"

	"github.com/inferloop/sdc/pkg/models"
)

// GenerationConfig parameterizes synthetic data generation.
type GenerationConfig struct {
	// Method selects the registered generator; empty selects resampling.
	Method string `json:"method"`
	// Columns to emit; empty emits every dataset column.
	Columns []string `json:"columns"`
	// TargetSizePct is the output size as a percentage of the source rows.
	TargetSizePct float64 `json:"target_size_pct"`
}

// SyntheticGenerator produces a synthetic dataset from a source dataset
type SyntheticGenerator interface {
	// Name returns the registered method name
	Name() string

	// Generate produces a new dataset. The source is never modified.
	Generate(ctx context.Context, source *models.Dataset, config GenerationConfig) (*models.AnonymizationResult, error)
}

// GeneratorFactory creates generator instances
type GeneratorFactory interface {
	// CreateGenerator creates a new generator instance
	CreateGenerator(method string) (SyntheticGenerator, error)

	// GetAvailableGenerators returns all registered methods
	GetAvailableGenerators() []string

	// RegisterGenerator registers a new generator method
	RegisterGenerator(method string, createFunc GeneratorCreateFunc) error

	// IsSupported checks if a method is registered
	IsSupported(method string) bool
}

// GeneratorCreateFunc is a function that creates a generator instance
type GeneratorCreateFunc func() SyntheticGenerator
