package privacy

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

// Adversary model names.
const (
	ModelProsecutor = "prosecutor"
	ModelJournalist = "journalist"
	ModelMarketer   = "marketer"
)

// RiskOptions parameterizes a risk assessment. Zero SampleSizePct and
// PopulationMultiplier take the package defaults.
type RiskOptions struct {
	QuasiIdentifiers     []string `json:"quasi_identifiers"`
	KThreshold           int      `json:"k_threshold"`
	SampleSizePct        float64  `json:"sample_size_pct"`
	PopulationMultiplier float64  `json:"population_multiplier"`
}

// WithDefaults fills zero values.
func (o RiskOptions) WithDefaults() RiskOptions {
	if o.SampleSizePct == 0 {
		o.SampleSizePct = constants.DefaultSampleSizePct
	}
	if o.PopulationMultiplier == 0 {
		o.PopulationMultiplier = constants.DefaultPopulationMultiplier
	}
	return o
}

// Validate checks the options after defaults have been applied.
func (o RiskOptions) Validate() error {
	if o.KThreshold < 1 {
		return errors.InvalidArgument(errors.ErrInvalidK, errors.CodeInvalidK,
			fmt.Sprintf("k threshold must be at least 1, got %d", o.KThreshold))
	}
	if math.IsNaN(o.SampleSizePct) || o.SampleSizePct <= 0 || o.SampleSizePct > 100 {
		return errors.InvalidArgument(errors.ErrInvalidSampleSize, errors.CodeInvalidSampleSize,
			fmt.Sprintf("sample size percentage must be in (0, 100], got %g", o.SampleSizePct))
	}
	if math.IsNaN(o.PopulationMultiplier) || math.IsInf(o.PopulationMultiplier, 0) || o.PopulationMultiplier <= 0 {
		return errors.InvalidArgument(errors.ErrInvalidMultiplier, errors.CodeInvalidMultiplier,
			fmt.Sprintf("population multiplier must be positive, got %g", o.PopulationMultiplier))
	}
	return nil
}

// RiskAssessor scores re-identification risk under the prosecutor,
// journalist and marketer adversary models.
type RiskAssessor struct {
	logger *logrus.Logger
}

func NewRiskAssessor(logger *logrus.Logger) *RiskAssessor {
	if logger == nil {
		logger = logrus.New()
	}
	return &RiskAssessor{logger: logger}
}

// Assess builds the equivalence classes of ds and scores them. An empty
// dataset or an empty quasi-identifier set scores zero under every model.
func (a *RiskAssessor) Assess(ctx context.Context, ds *models.Dataset, opts RiskOptions) (*models.RiskMetrics, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var classes []*EquivalenceClass
	if len(opts.QuasiIdentifiers) > 0 {
		if err := checkColumns(ds, opts.QuasiIdentifiers...); err != nil {
			return nil, err
		}
		var err error
		classes, err = BuildEquivalenceClasses(ds, opts.QuasiIdentifiers)
		if err != nil {
			return nil, err
		}
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	n := totalRecords(classes)
	population := PopulationSize(ds.Len(), opts.PopulationMultiplier)
	sampled := int(math.Floor(float64(ds.Len()) * opts.SampleSizePct / 100))

	prosecutor := ProsecutorRisk(classes, opts.KThreshold)
	journalist := JournalistRisk(classes, opts.KThreshold, population, sampled)
	marketer := MarketerRisk(classes, opts.KThreshold)

	metrics := &models.RiskMetrics{
		QuasiIdentifiers:   opts.QuasiIdentifiers,
		KThreshold:         opts.KThreshold,
		TotalRecords:       ds.Len(),
		ProsecutorRisk:     prosecutor.Risk,
		JournalistRisk:     journalist.Risk,
		MarketerRisk:       marketer.Risk,
		RiskLevel:          prosecutor.Level,
		Prosecutor:         prosecutor,
		Journalist:         journalist,
		Marketer:           marketer,
		EquivalenceClasses: make([]models.EquivalenceClassSummary, 0, len(classes)),
	}

	for _, class := range classes {
		class.Risk = 1 / float64(class.Size)
		metrics.EquivalenceClasses = append(metrics.EquivalenceClasses, class.Summary())

		switch {
		case class.Size == 1:
			metrics.UniqueRecords++
			metrics.Histogram.Unique++
		case class.Size <= 4:
			metrics.Histogram.Small++
		case class.Size <= 10:
			metrics.Histogram.Medium++
		default:
			metrics.Histogram.Large++
		}

		if class.Size < opts.KThreshold {
			metrics.ViolatingClasses++
			metrics.ViolatingRecords += class.Size
			if class.Size > 1 {
				metrics.SmallGroups++
			}
		}
	}

	metrics.Recommendations = GenerateRecommendations(RecommendationInput{
		ProsecutorRisk:   prosecutor.Risk,
		JournalistRisk:   journalist.Risk,
		MarketerRisk:     marketer.Risk,
		UniqueRecords:    metrics.UniqueRecords,
		TotalRecords:     n,
		ViolatingClasses: metrics.ViolatingClasses,
		KThreshold:       opts.KThreshold,
	})

	a.logger.WithFields(logrus.Fields{
		"records":         n,
		"classes":         len(classes),
		"prosecutor_risk": prosecutor.Risk,
		"journalist_risk": journalist.Risk,
		"marketer_risk":   marketer.Risk,
	}).Debug("Risk assessment complete")

	return metrics, nil
}

// ProsecutorRisk assumes the adversary knows the target is in the dataset.
// Each class scores 1/size.
func ProsecutorRisk(classes []*EquivalenceClass, k int) models.AttackRisk {
	report := newAttackRisk(ModelProsecutor, classes, k)
	weighted := 0.0
	for _, class := range classes {
		risk := 1 / float64(class.Size)
		report.PerClass = append(report.PerClass, risk)
		report.MaxRisk = math.Max(report.MaxRisk, risk)
		weighted += risk * float64(class.Size)
	}
	report.Risk = aggregate(weighted, totalRecords(classes))
	report.Level = RiskLevel(report.Risk)
	return report
}

// JournalistRisk attenuates the prosecutor score because the adversary does
// not know whether the target was sampled.
func JournalistRisk(classes []*EquivalenceClass, k, populationSize, sampledRecords int) models.JournalistRisk {
	report := models.JournalistRisk{
		AttackRisk:     newAttackRisk(ModelJournalist, classes, k),
		PopulationSize: populationSize,
		SampledRecords: sampledRecords,
	}

	weighted := 0.0
	for _, class := range classes {
		risk := constants.JournalistAttenuation / float64(class.Size)
		report.PerClass = append(report.PerClass, risk)
		report.MaxRisk = math.Max(report.MaxRisk, risk)
		weighted += risk * float64(class.Size)
		if risk > constants.JournalistAtRiskThreshold {
			report.RecordsAtRisk += class.Size
		}
	}

	n := totalRecords(classes)
	report.Risk = aggregate(weighted, n)
	report.Level = RiskLevel(report.Risk)
	report.EstimatedPopulationUniques = PitmanPopulationUniques(report.UniqueClasses, n, populationSize)
	return report
}

// MarketerRisk amplifies the prosecutor score for bulk re-identification.
// Per-class values are capped at 1 for display but weighted uncapped.
func MarketerRisk(classes []*EquivalenceClass, k int) models.MarketerRisk {
	report := models.MarketerRisk{AttackRisk: newAttackRisk(ModelMarketer, classes, k)}

	weighted := 0.0
	for _, class := range classes {
		risk := constants.MarketerAmplification / float64(class.Size)
		capped := math.Min(1, risk)
		report.PerClass = append(report.PerClass, capped)
		report.MaxRisk = math.Max(report.MaxRisk, capped)
		weighted += risk * float64(class.Size)
		if risk > constants.MarketerMatchThreshold {
			report.SuccessfulMatches += int(math.Round(float64(class.Size) * capped))
		}
	}

	report.Risk = aggregate(weighted, totalRecords(classes))
	report.Level = RiskLevel(report.Risk)
	return report
}

// PopulationSize estimates the population a sample of n records was drawn
// from, never below MinPopulationSize.
func PopulationSize(n int, multiplier float64) int {
	estimate := int(math.Floor(float64(n) * multiplier))
	if estimate < constants.MinPopulationSize {
		return constants.MinPopulationSize
	}
	return estimate
}

// PitmanPopulationUniques estimates population uniques from sample uniques
// with a Beta(uniques+1, n-uniques+1) prior on the unique proportion.
func PitmanPopulationUniques(sampleUniques, sampleSize, populationSize int) int {
	if sampleSize <= 0 {
		return 0
	}
	alpha := float64(sampleUniques + 1)
	beta := float64(sampleSize - sampleUniques + 1)
	return int(math.Round(alpha / (alpha + beta) * float64(populationSize)))
}

// RiskLevel classifies an aggregate risk score.
func RiskLevel(risk float64) string {
	switch {
	case risk >= constants.RiskHighThreshold:
		return constants.RiskLevelHigh
	case risk >= constants.RiskMediumThreshold:
		return constants.RiskLevelMedium
	default:
		return constants.RiskLevelLow
	}
}

func newAttackRisk(model string, classes []*EquivalenceClass, k int) models.AttackRisk {
	report := models.AttackRisk{
		Model:    model,
		PerClass: make([]float64, 0, len(classes)),
	}
	for _, class := range classes {
		if class.Size == 1 {
			report.UniqueClasses++
		}
		if class.Size < k {
			report.Violations++
		}
	}
	return report
}

// aggregate is the record-weighted mean clamped to [0,1].
func aggregate(weighted float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return clamp01(weighted / float64(n))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
