package engine

import (
	"github.com/inferloop/sdc/pkg/constants"
)

// Defaults holds the parameter values used when a caller leaves one unset.
type Defaults struct {
	KThreshold           int     `mapstructure:"k_threshold" json:"k_threshold"`
	SampleSizePct        float64 `mapstructure:"sample_size_pct" json:"sample_size_pct"`
	PopulationMultiplier float64 `mapstructure:"population_multiplier" json:"population_multiplier"`

	K                int     `mapstructure:"k" json:"k"`
	SuppressionLimit float64 `mapstructure:"suppression_limit" json:"suppression_limit"`
	L                int     `mapstructure:"l" json:"l"`
	DiversityModel   string  `mapstructure:"diversity_model" json:"diversity_model"`
	T                float64 `mapstructure:"t" json:"t"`

	Epsilon   float64 `mapstructure:"epsilon" json:"epsilon"`
	Mechanism string  `mapstructure:"mechanism" json:"mechanism"`

	SyntheticMethod string  `mapstructure:"synthetic_method" json:"synthetic_method"`
	TargetSizePct   float64 `mapstructure:"target_size_pct" json:"target_size_pct"`
}

// DefaultParameters returns the built-in parameter defaults
func DefaultParameters() Defaults {
	return Defaults{
		KThreshold:           constants.DefaultKThreshold,
		SampleSizePct:        constants.DefaultSampleSizePct,
		PopulationMultiplier: constants.DefaultPopulationMultiplier,
		K:                    constants.DefaultKValue,
		SuppressionLimit:     constants.DefaultSuppressionLimit,
		L:                    constants.DefaultLValue,
		DiversityModel:       constants.DiversityDistinct,
		T:                    constants.DefaultTValue,
		Epsilon:              constants.DefaultEpsilon,
		Mechanism:            constants.MechanismLaplace,
		SyntheticMethod:      constants.SyntheticMethodResample,
		TargetSizePct:        constants.DefaultTargetSizePct,
	}
}
