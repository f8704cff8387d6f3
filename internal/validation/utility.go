package validation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

// UtilityOptions selects the columns to compare and optionally supplies
// precomputed scores. Nil scores are computed; nil information loss is 0.
type UtilityOptions struct {
	NumericColumns          []string `json:"numeric_columns"`
	CorrelationPreservation *float64 `json:"correlation_preservation,omitempty"`
	DistributionSimilarity  *float64 `json:"distribution_similarity,omitempty"`
	InformationLoss         *float64 `json:"information_loss,omitempty"`
}

func (o UtilityOptions) Validate() error {
	scores := map[string]*float64{
		"correlation_preservation": o.CorrelationPreservation,
		"distribution_similarity":  o.DistributionSimilarity,
		"information_loss":         o.InformationLoss,
	}
	for name, v := range scores {
		if v != nil && (math.IsNaN(*v) || *v < 0 || *v > 1) {
			return errors.InvalidArgument(errors.ErrInvalidScore, errors.CodeInvalidScore,
				fmt.Sprintf("%s must be in [0, 1], got %g", name, *v))
		}
	}
	return nil
}

// UtilityComparator scores how well statistical properties of an original
// dataset survive in a transformed one.
type UtilityComparator struct {
	logger *logrus.Logger
}

func NewUtilityComparator(logger *logrus.Logger) *UtilityComparator {
	if logger == nil {
		logger = logrus.New()
	}
	return &UtilityComparator{logger: logger}
}

// Measure compares processed against original. Overall utility is the mean
// of statistical similarity, correlation preservation, distribution
// similarity and one minus information loss.
func (u *UtilityComparator) Measure(original, processed *models.Dataset, opts UtilityOptions) (*models.UtilityMeasurement, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if original == nil {
		original = models.NewDataset(nil, nil)
	}
	if processed == nil {
		processed = models.NewDataset(nil, nil)
	}

	columns := opts.NumericColumns
	if len(columns) == 0 {
		columns = original.NumericColumns()
	} else if len(original.Columns) > 0 {
		if missing := original.MissingColumns(columns); len(missing) > 0 {
			return nil, errors.InvalidArgument(errors.ErrUnknownColumn, errors.CodeUnknownColumn,
				fmt.Sprintf("unknown column(s): %s", strings.Join(missing, ", ")))
		}
	}

	m := &models.UtilityMeasurement{
		StatisticalSimilarity: 1,
		Columns:               make([]models.ColumnUtility, 0, len(columns)),
	}

	for _, col := range columns {
		cu := columnUtility(col, original.Values(col), processed.Values(col))
		m.Columns = append(m.Columns, cu)
		m.StatisticalSimilarity = math.Min(m.StatisticalSimilarity, cu.Preservation)
	}

	if opts.CorrelationPreservation != nil {
		m.CorrelationPreservation = *opts.CorrelationPreservation
	} else {
		m.CorrelationPreservation = CorrelationPreservation(original, processed, columns)
	}

	if opts.DistributionSimilarity != nil {
		m.DistributionSimilarity = *opts.DistributionSimilarity
	} else {
		m.DistributionSimilarity = DistributionSimilarity(original, processed, columns)
	}

	if opts.InformationLoss != nil {
		m.InformationLoss = *opts.InformationLoss
	}

	m.OverallUtility = clamp01((m.StatisticalSimilarity + m.CorrelationPreservation +
		m.DistributionSimilarity + (1 - m.InformationLoss)) / 4)
	m.UtilityLevel = UtilityLevel(m.OverallUtility)

	u.logger.WithFields(logrus.Fields{
		"columns":         len(columns),
		"overall_utility": m.OverallUtility,
		"utility_level":   m.UtilityLevel,
	}).Debug("Utility measured")

	return m, nil
}

// columnUtility is 1 - |mean_o - mean_p| / |mean_o|, floored at 0. A zero
// original mean preserves fully.
func columnUtility(column string, original, processed []float64) models.ColumnUtility {
	cu := models.ColumnUtility{Column: column}

	switch {
	case len(original) == 0 && len(processed) == 0:
		cu.Preservation = 1
		return cu
	case len(processed) == 0:
		cu.OriginalMean = stat.Mean(original, nil)
		return cu
	}

	if len(original) > 0 {
		cu.OriginalMean = stat.Mean(original, nil)
	}
	cu.ProcessedMean = stat.Mean(processed, nil)

	// no relative scale to measure against; the column does not lower the minimum
	if cu.OriginalMean == 0 {
		cu.Preservation = 1
		return cu
	}
	cu.Preservation = math.Max(0, 1-math.Abs(cu.OriginalMean-cu.ProcessedMean)/math.Abs(cu.OriginalMean))
	return cu
}

// CorrelationPreservation is 1 - mean |r_o - r_p| / 2 over column pairs.
// Fewer than two columns preserve trivially.
func CorrelationPreservation(original, processed *models.Dataset, columns []string) float64 {
	if len(columns) < 2 {
		return 1
	}

	total := 0.0
	pairs := 0
	for i := 0; i < len(columns); i++ {
		for j := i + 1; j < len(columns); j++ {
			ro := pairCorrelation(original, columns[i], columns[j])
			rp := pairCorrelation(processed, columns[i], columns[j])
			total += math.Abs(ro - rp)
			pairs++
		}
	}
	return clamp01(1 - total/float64(pairs)/2)
}

// pairCorrelation is the Pearson correlation over rows where both columns are
// numeric. Undefined correlations are reported as 0.
func pairCorrelation(ds *models.Dataset, a, b string) float64 {
	var xs, ys []float64
	for _, r := range ds.Records {
		x, okx := models.IsNumeric(r[a])
		y, oky := models.IsNumeric(r[b])
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// DistributionSimilarity is the mean over columns of one minus the two-sample
// Kolmogorov-Smirnov statistic.
func DistributionSimilarity(original, processed *models.Dataset, columns []string) float64 {
	if len(columns) == 0 {
		return 1
	}

	total := 0.0
	for _, col := range columns {
		o := sortedCopy(original.Values(col))
		p := sortedCopy(processed.Values(col))
		switch {
		case len(o) == 0 && len(p) == 0:
			total++
		case len(o) == 0 || len(p) == 0:
			// one side lost every value
		default:
			total += 1 - stat.KolmogorovSmirnov(o, nil, p, nil)
		}
	}
	return clamp01(total / float64(len(columns)))
}

// UtilityLevel classifies an overall utility score.
func UtilityLevel(utility float64) string {
	switch {
	case utility >= constants.UtilityExcellentThreshold:
		return constants.UtilityLevelExcellent
	case utility >= constants.UtilityGoodThreshold:
		return constants.UtilityLevelGood
	case utility >= constants.UtilityFairThreshold:
		return constants.UtilityLevelFair
	default:
		return constants.UtilityLevelPoor
	}
}

func sortedCopy(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
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
