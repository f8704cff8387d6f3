package privacy

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

type TClosenessConfig struct {
	QuasiIdentifiers   []string `json:"quasi_identifiers"`
	SensitiveAttribute string   `json:"sensitive_attribute"`
	T                  float64  `json:"t"`
	SuppressionLimit   float64  `json:"suppression_limit"`
}

func (c TClosenessConfig) Validate() error {
	if err := validateQuasiIdentifiers(c.QuasiIdentifiers); err != nil {
		return err
	}
	if c.SensitiveAttribute == "" {
		return errors.InvalidArgument(errors.ErrMissingSensitive, errors.CodeMissingSensitive,
			"t-closeness needs a sensitive attribute")
	}
	if math.IsNaN(c.T) || c.T < 0 || c.T > 1 {
		return errors.InvalidArgument(errors.ErrInvalidT, errors.CodeInvalidT,
			fmt.Sprintf("t must be in [0, 1], got %g", c.T))
	}
	return validateSuppressionLimit(c.SuppressionLimit)
}

// Distribution is the relative frequency of each sensitive value.
type Distribution struct {
	Frequencies map[string]float64
	// Order lists the domain ascending when the attribute is numeric.
	Order   []string
	Numeric bool
}

// TClosenessAnonymizer bounds the Earth Mover's Distance between each class's
// sensitive distribution and the dataset-wide one.
type TClosenessAnonymizer struct {
	logger *logrus.Logger
}

func NewTClosenessAnonymizer(logger *logrus.Logger) *TClosenessAnonymizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &TClosenessAnonymizer{logger: logger}
}

func (t *TClosenessAnonymizer) Apply(ctx context.Context, ds *models.Dataset, config TClosenessConfig) (*models.AnonymizationResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ds = orEmpty(ds)
	if err := checkColumns(ds, config.QuasiIdentifiers...); err != nil {
		return nil, err
	}
	if err := checkColumns(ds, config.SensitiveAttribute); err != nil {
		return nil, err
	}

	result := &models.AnonymizationResult{
		Technique:       constants.TechniqueTCloseness,
		OriginalRecords: ds.Len(),
		Compliant:       true,
		Parameters: map[string]interface{}{
			"quasi_identifiers":   config.QuasiIdentifiers,
			"sensitive_attribute": config.SensitiveAttribute,
			"t":                   config.T,
			"suppression_limit":   config.SuppressionLimit,
		},
	}

	if ds.Len() == 0 {
		result.Dataset = models.NewDataset(append([]string(nil), ds.Columns...), nil)
		return result, nil
	}

	t.logger.WithFields(logrus.Fields{
		"dataset_size": ds.Len(),
		"t_value":      config.T,
	}).Info("Applying t-closeness")

	classes, err := BuildEquivalenceClasses(ds, config.QuasiIdentifiers)
	if err != nil {
		return nil, err
	}

	global := NewDistribution(ds.Records, config.SensitiveAttribute)
	budget := newSuppressionBudget(config.SuppressionLimit, ds.Len())
	actions := make(map[string]classAction, len(classes))
	var merged []models.Record

	for i, class := range classes {
		if i%ctxCheckInterval == 0 {
			if err := checkContext(ctx); err != nil {
				return nil, err
			}
		}

		distance := EarthMoversDistance(global.Restrict(class.Records, config.SensitiveAttribute), global)
		if distance <= config.T {
			actions[class.Key] = actionKeep
			result.MaxDistance = math.Max(result.MaxDistance, distance)
			continue
		}
		if budget.take(class.Size) {
			actions[class.Key] = actionSuppress
			result.RecordsSuppressed += class.Size
			continue
		}
		actions[class.Key] = actionGeneralize
		result.RecordsGeneralized += class.Size
		merged = append(merged, class.Records...)
	}

	records, err := applyActions(ctx, ds, config.QuasiIdentifiers, actions, maskRecord)
	if err != nil {
		return nil, err
	}

	if len(merged) > 0 {
		distance := EarthMoversDistance(global.Restrict(merged, config.SensitiveAttribute), global)
		result.MaxDistance = math.Max(result.MaxDistance, distance)
		result.Compliant = distance <= config.T
		if !result.Compliant {
			t.logger.WithField("distance", distance).Warn("Merged class exceeds t")
		}
	}

	result.Dataset = models.NewDataset(append([]string(nil), ds.Columns...), records)
	result.InformationLoss = informationLoss(result.RecordsSuppressed, ds.Len())

	t.logger.WithFields(logrus.Fields{
		"suppressed":   result.RecordsSuppressed,
		"generalized":  result.RecordsGeneralized,
		"max_distance": result.MaxDistance,
	}).Info("T-closeness complete")

	return result, nil
}

// NewDistribution builds the distribution of attribute over records. The
// attribute is treated as ordered when every value is numeric.
func NewDistribution(records []models.Record, attribute string) Distribution {
	dist := Distribution{Frequencies: make(map[string]float64), Numeric: len(records) > 0}
	numeric := make(map[string]float64)

	for _, r := range records {
		key := models.FormatValue(r[attribute])
		dist.Frequencies[key]++
		if f, ok := models.IsNumeric(r[attribute]); ok {
			numeric[key] = f
		} else {
			dist.Numeric = false
		}
	}

	for key := range dist.Frequencies {
		dist.Frequencies[key] /= float64(len(records))
		dist.Order = append(dist.Order, key)
	}

	if dist.Numeric {
		sort.Slice(dist.Order, func(i, j int) bool { return numeric[dist.Order[i]] < numeric[dist.Order[j]] })
	} else {
		sort.Strings(dist.Order)
	}
	return dist
}

// Restrict builds the distribution of a subset of records over the domain
// and ordering of d.
func (d Distribution) Restrict(records []models.Record, attribute string) Distribution {
	sub := Distribution{Frequencies: make(map[string]float64), Order: d.Order, Numeric: d.Numeric}
	if len(records) == 0 {
		return sub
	}
	for _, r := range records {
		sub.Frequencies[models.FormatValue(r[attribute])]++
	}
	for key := range sub.Frequencies {
		sub.Frequencies[key] /= float64(len(records))
	}
	return sub
}

// EarthMoversDistance between p and q over q's domain. Ordered attributes use
// the cumulative difference normalized by m-1. Categorical attributes use
// equal ground distance, which reduces to half the L1 distance.
func EarthMoversDistance(p, q Distribution) float64 {
	m := len(q.Order)
	if m <= 1 {
		return 0
	}

	if !q.Numeric {
		distance := 0.0
		for _, v := range q.Order {
			distance += math.Abs(p.Frequencies[v] - q.Frequencies[v])
		}
		return distance / 2
	}

	cumulative := 0.0
	distance := 0.0
	for _, v := range q.Order {
		cumulative += p.Frequencies[v] - q.Frequencies[v]
		distance += math.Abs(cumulative)
	}
	return distance / float64(m-1)
}
