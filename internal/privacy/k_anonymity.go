package privacy

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

type KAnonymityConfig struct {
	QuasiIdentifiers []string `json:"quasi_identifiers"`
	K                int      `json:"k"`
	SuppressionLimit float64  `json:"suppression_limit"`
}

func (c KAnonymityConfig) Validate() error {
	if err := validateQuasiIdentifiers(c.QuasiIdentifiers); err != nil {
		return err
	}
	if c.K < 1 {
		return errors.InvalidArgument(errors.ErrInvalidK, errors.CodeInvalidK,
			fmt.Sprintf("k must be at least 1, got %d", c.K))
	}
	return validateSuppressionLimit(c.SuppressionLimit)
}

// KAnonymizer enforces a minimum equivalence class size by suppressing small
// classes within a budget and generalizing the rest.
type KAnonymizer struct {
	logger *logrus.Logger
}

func NewKAnonymizer(logger *logrus.Logger) *KAnonymizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &KAnonymizer{logger: logger}
}

func (k *KAnonymizer) Apply(ctx context.Context, ds *models.Dataset, config KAnonymityConfig) (*models.AnonymizationResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ds = orEmpty(ds)
	if err := checkColumns(ds, config.QuasiIdentifiers...); err != nil {
		return nil, err
	}

	result := &models.AnonymizationResult{
		Technique:       constants.TechniqueKAnonymity,
		OriginalRecords: ds.Len(),
		Parameters: map[string]interface{}{
			"quasi_identifiers": config.QuasiIdentifiers,
			"k":                 config.K,
			"suppression_limit": config.SuppressionLimit,
		},
	}

	if ds.Len() == 0 {
		result.Dataset = models.NewDataset(append([]string(nil), ds.Columns...), nil)
		result.Compliant = true
		return result, nil
	}

	k.logger.WithFields(logrus.Fields{
		"dataset_size":      ds.Len(),
		"k_value":           config.K,
		"suppression_limit": config.SuppressionLimit,
	}).Info("Applying k-anonymity")

	// Step 1: Create equivalence classes
	classes, err := BuildEquivalenceClasses(ds, config.QuasiIdentifiers)
	if err != nil {
		return nil, err
	}

	// Step 2: Decide per class, suppressing while the budget lasts
	budget := newSuppressionBudget(config.SuppressionLimit, ds.Len())
	actions := make(map[string]classAction, len(classes))
	for _, class := range classes {
		if class.Size >= config.K {
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
	}

	// Step 3: Rebuild the dataset in row order
	records, err := applyActions(ctx, ds, config.QuasiIdentifiers, actions, generalizeRecord)
	if err != nil {
		return nil, err
	}

	result.Dataset = models.NewDataset(append([]string(nil), ds.Columns...), records)
	result.InformationLoss = informationLoss(result.RecordsSuppressed, ds.Len())
	outClasses, err := BuildEquivalenceClasses(result.Dataset, config.QuasiIdentifiers)
	if err != nil {
		return nil, err
	}
	generalized := generalizedClassKeys(classes, actions, config.QuasiIdentifiers)
	result.Compliant = true
	if class := undersizedClass(outClasses, config.K, generalized); class != nil {
		result.Compliant = false
		k.logger.WithFields(logrus.Fields{
			"class": class.Values,
			"size":  class.Size,
		}).Warn("K-anonymity output has an undersized class")
	}

	k.logger.WithFields(logrus.Fields{
		"suppressed":  result.RecordsSuppressed,
		"generalized": result.RecordsGeneralized,
		"total":       ds.Len(),
	}).Info("K-anonymity complete")

	return result, nil
}

// ValidateKAnonymity reports whether every class of ds has at least k
// members. Classes carrying the wildcard marker are exempt; numerically
// generalized classes cannot be told apart from raw ones here.
func (k *KAnonymizer) ValidateKAnonymity(ds *models.Dataset, quasiIdentifiers []string, kValue int) (bool, error) {
	classes, err := BuildEquivalenceClasses(ds, quasiIdentifiers)
	if err != nil {
		return false, err
	}

	if class := undersizedClass(classes, kValue, nil); class != nil {
		return false, fmt.Errorf("equivalence class %v has size %d, less than k=%d",
			class.Values, class.Size, kValue)
	}

	return true, nil
}

// generalizedClassKeys maps every generalized input class to the key its
// records carry in the output.
func generalizedClassKeys(classes []*EquivalenceClass, actions map[string]classAction, quasiIdentifiers []string) map[string]bool {
	keys := make(map[string]bool)
	for _, class := range classes {
		if actions[class.Key] != actionGeneralize {
			continue
		}
		out := generalizeRecord(class.Records[0], quasiIdentifiers)
		keys[strings.Join(quasiIdentifierValues(out, quasiIdentifiers), keySeparator)] = true
	}
	return keys
}

// undersizedClass returns the first class below k that is neither in
// generalized nor marked with the wildcard.
func undersizedClass(classes []*EquivalenceClass, kValue int, generalized map[string]bool) *EquivalenceClass {
	for _, class := range classes {
		if class.Size >= kValue || generalized[class.Key] || isGeneralizedClass(class) {
			continue
		}
		return class
	}
	return nil
}
