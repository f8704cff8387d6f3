package generators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/sdc/internal/generators/resample"
	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

type stubGenerator struct{}

func (stubGenerator) Name() string { return "stub" }

func (stubGenerator) Generate(ctx context.Context, source *models.Dataset, config interfaces.GenerationConfig) (*models.AnonymizationResult, error) {
	return &models.AnonymizationResult{Technique: "stub", Dataset: source}, nil
}

func TestFactoryDefaults(t *testing.T) {
	factory := NewFactory(nil)

	assert.Equal(t, []string{resample.Method}, factory.GetAvailableGenerators())
	assert.True(t, factory.IsSupported(resample.Method))

	gen, err := factory.CreateGenerator("")
	require.NoError(t, err)
	assert.Equal(t, resample.Method, gen.Name())
}

func TestFactoryRegister(t *testing.T) {
	factory := NewFactory(nil)

	require.NoError(t, factory.RegisterGenerator("stub", func() interfaces.SyntheticGenerator { return stubGenerator{} }))
	assert.Error(t, factory.RegisterGenerator("", func() interfaces.SyntheticGenerator { return stubGenerator{} }))
	assert.Error(t, factory.RegisterGenerator("nil", nil))

	gen, err := factory.CreateGenerator("stub")
	require.NoError(t, err)
	assert.Equal(t, "stub", gen.Name())
}

func TestFactoryUnknownMethod(t *testing.T) {
	_, err := NewFactory(nil).CreateGenerator("gan")
	assert.Error(t, err)
}
