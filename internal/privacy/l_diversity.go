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

// entropyTolerance absorbs rounding when a class is exactly ln(l) diverse.
const entropyTolerance = 1e-9

type LDiversityConfig struct {
	QuasiIdentifiers   []string `json:"quasi_identifiers"`
	SensitiveAttribute string   `json:"sensitive_attribute"`
	L                  int      `json:"l"`
	Model              string   `json:"model"`
	RecursiveC         float64  `json:"recursive_c"`
	SuppressionLimit   float64  `json:"suppression_limit"`
}

// WithDefaults fills an empty model and a zero recursive constant.
func (c LDiversityConfig) WithDefaults() LDiversityConfig {
	if c.Model == "" {
		c.Model = constants.DiversityDistinct
	}
	if c.Model == constants.DiversityRecursive && c.RecursiveC == 0 {
		c.RecursiveC = constants.DefaultRecursiveC
	}
	return c
}

func (c LDiversityConfig) Validate() error {
	if err := validateQuasiIdentifiers(c.QuasiIdentifiers); err != nil {
		return err
	}
	if c.SensitiveAttribute == "" {
		return errors.InvalidArgument(errors.ErrMissingSensitive, errors.CodeMissingSensitive,
			"l-diversity needs a sensitive attribute")
	}
	if c.L < 1 {
		return errors.InvalidArgument(errors.ErrInvalidL, errors.CodeInvalidL,
			fmt.Sprintf("l must be at least 1, got %d", c.L))
	}
	switch c.Model {
	case constants.DiversityDistinct, constants.DiversityEntropy:
	case constants.DiversityRecursive:
		if math.IsNaN(c.RecursiveC) || c.RecursiveC <= 0 {
			return errors.InvalidArgument(errors.ErrInvalidL, errors.CodeInvalidL,
				fmt.Sprintf("recursive c must be positive, got %g", c.RecursiveC))
		}
	default:
		return errors.InvalidArgument(errors.ErrInvalidDiversityModel, errors.CodeInvalidDiversityModel,
			fmt.Sprintf("unknown l-diversity model %q", c.Model))
	}
	return validateSuppressionLimit(c.SuppressionLimit)
}

// LDiversityAnonymizer makes every equivalence class carry enough variety in
// its sensitive attribute. Classes that fail are suppressed within budget and
// the rest are merged into one masked class.
type LDiversityAnonymizer struct {
	logger *logrus.Logger
}

func NewLDiversityAnonymizer(logger *logrus.Logger) *LDiversityAnonymizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &LDiversityAnonymizer{logger: logger}
}

func (l *LDiversityAnonymizer) Apply(ctx context.Context, ds *models.Dataset, config LDiversityConfig) (*models.AnonymizationResult, error) {
	config = config.WithDefaults()
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
		Technique:       constants.TechniqueLDiversity,
		OriginalRecords: ds.Len(),
		Compliant:       true,
		Parameters: map[string]interface{}{
			"quasi_identifiers":   config.QuasiIdentifiers,
			"sensitive_attribute": config.SensitiveAttribute,
			"l":                   config.L,
			"model":               config.Model,
			"recursive_c":         config.RecursiveC,
			"suppression_limit":   config.SuppressionLimit,
		},
	}

	if ds.Len() == 0 {
		result.Dataset = models.NewDataset(append([]string(nil), ds.Columns...), nil)
		return result, nil
	}

	l.logger.WithFields(logrus.Fields{
		"dataset_size": ds.Len(),
		"l_value":      config.L,
		"model":        config.Model,
	}).Info("Applying l-diversity")

	classes, err := BuildEquivalenceClasses(ds, config.QuasiIdentifiers)
	if err != nil {
		return nil, err
	}

	budget := newSuppressionBudget(config.SuppressionLimit, ds.Len())
	actions := make(map[string]classAction, len(classes))
	merged := make(map[string]int)

	for i, class := range classes {
		if i%ctxCheckInterval == 0 {
			if err := checkContext(ctx); err != nil {
				return nil, err
			}
		}

		counts := sensitiveCounts(class.Records, config.SensitiveAttribute)
		if IsDiverse(counts, config) {
			actions[class.Key] = actionKeep
			continue
		}
		if budget.take(class.Size) {
			actions[class.Key] = actionSuppress
			result.RecordsSuppressed += class.Size
			continue
		}
		actions[class.Key] = actionGeneralize
		result.RecordsGeneralized += class.Size
		for v, n := range counts {
			merged[v] += n
		}
	}

	records, err := applyActions(ctx, ds, config.QuasiIdentifiers, actions, maskRecord)
	if err != nil {
		return nil, err
	}

	// The merged class is re-checked; merging may still fall short.
	if result.RecordsGeneralized > 0 {
		result.Compliant = IsDiverse(merged, config)
		if !result.Compliant {
			l.logger.WithField("records", result.RecordsGeneralized).Warn("Merged class is not l-diverse")
		}
	}

	result.Dataset = models.NewDataset(append([]string(nil), ds.Columns...), records)
	result.InformationLoss = informationLoss(result.RecordsSuppressed, ds.Len())

	l.logger.WithFields(logrus.Fields{
		"suppressed":  result.RecordsSuppressed,
		"generalized": result.RecordsGeneralized,
		"compliant":   result.Compliant,
	}).Info("L-diversity complete")

	return result, nil
}

// IsDiverse applies the configured l-diversity model to a distribution of
// sensitive values.
func IsDiverse(counts map[string]int, config LDiversityConfig) bool {
	switch config.Model {
	case constants.DiversityEntropy:
		return entropy(counts)+entropyTolerance >= math.Log(float64(config.L))
	case constants.DiversityRecursive:
		return recursiveDiverse(counts, config.L, config.RecursiveC)
	default:
		return len(counts) >= config.L
	}
}

func sensitiveCounts(records []models.Record, attribute string) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[models.FormatValue(r[attribute])]++
	}
	return counts
}

func entropy(counts map[string]int) float64 {
	total := 0
	for _, count := range counts {
		total += count
	}
	if total == 0 {
		return 0
	}

	h := 0.0
	for _, count := range counts {
		if count > 0 {
			p := float64(count) / float64(total)
			h -= p * math.Log(p)
		}
	}
	return h
}

// recursiveDiverse checks r1 < c * (r_l + ... + r_m) over counts sorted in
// descending order.
func recursiveDiverse(counts map[string]int, l int, c float64) bool {
	if len(counts) < l {
		return false
	}

	sorted := make([]int, 0, len(counts))
	for _, count := range counts {
		sorted = append(sorted, count)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	tail := 0
	for i := l - 1; i < len(sorted); i++ {
		tail += sorted[i]
	}
	return float64(sorted[0]) < c*float64(tail)
}
