package privacy

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

type DPConfig struct {
	Columns   []string `json:"columns"`
	Epsilon   float64  `json:"epsilon"`
	Mechanism string   `json:"mechanism"`
}

func (c DPConfig) Validate() error {
	if math.IsNaN(c.Epsilon) || math.IsInf(c.Epsilon, 0) || c.Epsilon <= 0 {
		return errors.InvalidArgument(errors.ErrInvalidEpsilon, errors.CodeInvalidEpsilon,
			fmt.Sprintf("epsilon must be positive and finite, got %g", c.Epsilon))
	}
	return nil
}

// NoiseInjector adds calibrated noise to numeric columns.
type NoiseInjector struct {
	logger     *logrus.Logger
	mechanisms map[string]NoiseMechanism
}

// NewNoiseInjector registers the laplace and secure-laplace mechanisms. The
// laplace mechanism draws from randSource, which may be nil.
func NewNoiseInjector(logger *logrus.Logger, randSource *rand.Rand) *NoiseInjector {
	if logger == nil {
		logger = logrus.New()
	}
	injector := &NoiseInjector{
		logger:     logger,
		mechanisms: make(map[string]NoiseMechanism),
	}
	injector.Register(NewLaplaceMechanism(randSource))
	injector.Register(NewSecureLaplaceMechanism())
	return injector
}

// Register adds or replaces a mechanism under its name.
func (n *NoiseInjector) Register(mechanism NoiseMechanism) {
	n.mechanisms[mechanism.Name()] = mechanism
}

// Mechanisms lists the registered mechanism names.
func (n *NoiseInjector) Mechanisms() []string {
	names := make([]string, 0, len(n.mechanisms))
	for name := range n.mechanisms {
		names = append(names, name)
	}
	return names
}

// Apply perturbs every numeric cell of the chosen columns. With no columns
// given, the numeric columns of the first record are used.
func (n *NoiseInjector) Apply(ctx context.Context, ds *models.Dataset, config DPConfig) (*models.AnonymizationResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Mechanism == "" {
		config.Mechanism = constants.MechanismLaplace
	}
	mechanism, ok := n.mechanisms[config.Mechanism]
	if !ok {
		return nil, errors.InvalidArgument(errors.ErrInvalidMechanism, errors.CodeInvalidMechanism,
			fmt.Sprintf("unknown noise mechanism %q", config.Mechanism))
	}

	ds = orEmpty(ds)
	columns := config.Columns
	if len(columns) == 0 {
		columns = ds.NumericColumns()
	}
	if err := checkColumns(ds, columns...); err != nil {
		return nil, err
	}

	n.logger.WithFields(logrus.Fields{
		"dataset_size": ds.Len(),
		"columns":      columns,
		"epsilon":      config.Epsilon,
		"mechanism":    mechanism.Name(),
	}).Info("Applying differential privacy")

	records := make([]models.Record, len(ds.Records))
	for i, record := range ds.Records {
		if i%ctxCheckInterval == 0 {
			if err := checkContext(ctx); err != nil {
				return nil, err
			}
		}

		noisy := record.Clone()
		for _, col := range columns {
			value, ok := models.IsNumeric(record[col])
			if !ok {
				continue
			}
			perturbed, err := mechanism.AddNoise(value, constants.DefaultSensitivity, config.Epsilon)
			if err != nil {
				return nil, errors.WrapError(err, errors.ErrorTypePrivacy, errors.CodeNoiseFailed,
					fmt.Sprintf("adding noise to column %s", col))
			}
			noisy[col] = perturbed
		}
		records[i] = noisy
	}

	return &models.AnonymizationResult{
		Technique:       constants.TechniqueDifferentialPrivacy,
		Dataset:         models.NewDataset(append([]string(nil), ds.Columns...), records),
		OriginalRecords: ds.Len(),
		InformationLoss: DPInformationLoss(config.Epsilon),
		Compliant:       true,
		NoiseScale:      NoiseScale(constants.DefaultSensitivity, config.Epsilon),
		Parameters: map[string]interface{}{
			"columns":     columns,
			"epsilon":     config.Epsilon,
			"mechanism":   mechanism.Name(),
			"sensitivity": constants.DefaultSensitivity,
		},
	}, nil
}

// DPInformationLoss is min(1, 0.1/epsilon). It decreases as epsilon grows.
func DPInformationLoss(epsilon float64) float64 {
	if epsilon <= 0 {
		return 1
	}
	return math.Min(1, constants.DPLossCoefficient/epsilon)
}
