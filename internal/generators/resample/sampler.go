package resample

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

// Method is the name the sampler registers under.
const Method = constants.SyntheticMethodResample

// Config is the sampler configuration.
type Config = interfaces.GenerationConfig

// Sampler draws rows uniformly with replacement and applies a bounded
// multiplicative jitter to numeric fields. It has no fitting phase.
type Sampler struct {
	logger     *logrus.Logger
	mu         sync.Mutex
	randSource *rand.Rand
	jitter     float64
}

// NewSampler creates a sampler; nil randSource seeds from the clock.
func NewSampler(logger *logrus.Logger, randSource *rand.Rand) *Sampler {
	if logger == nil {
		logger = logrus.New()
	}
	if randSource == nil {
		randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sampler{
		logger:     logger,
		randSource: randSource,
		jitter:     constants.SyntheticJitter,
	}
}

// Name returns the registered method name
func (s *Sampler) Name() string {
	return Method
}

// Generate produces floor(n * TargetSizePct / 100) synthetic rows. A zero
// TargetSizePct reproduces the source size.
func (s *Sampler) Generate(ctx context.Context, source *models.Dataset, config Config) (*models.AnonymizationResult, error) {
	if config.TargetSizePct == 0 {
		config.TargetSizePct = constants.DefaultTargetSizePct
	}
	if math.IsNaN(config.TargetSizePct) || math.IsInf(config.TargetSizePct, 0) || config.TargetSizePct < 0 {
		return nil, errors.InvalidArgument(errors.ErrInvalidTargetSize, errors.CodeInvalidTargetSize,
			fmt.Sprintf("target size percentage must be positive, got %g", config.TargetSizePct))
	}
	if source == nil {
		source = models.NewDataset(nil, nil)
	}

	columns := config.Columns
	if len(columns) == 0 {
		columns = source.Columns
	}
	if len(source.Columns) > 0 {
		if missing := source.MissingColumns(columns); len(missing) > 0 {
			return nil, errors.InvalidArgument(errors.ErrUnknownColumn, errors.CodeUnknownColumn,
				fmt.Sprintf("unknown column(s): %s", strings.Join(missing, ", ")))
		}
	}

	n := source.Len()
	target := 0
	if n > 0 {
		target = int(math.Floor(float64(n) * config.TargetSizePct / 100))
	}

	s.logger.WithFields(logrus.Fields{
		"source_size": n,
		"target_size": target,
		"columns":     len(columns),
	}).Info("Generating synthetic data")

	records := make([]models.Record, 0, target)
	for i := 0; i < target; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.WrapError(err, errors.ErrorTypeCancelled, errors.CodeCancelled, "synthetic generation cancelled")
			}
		}
		records = append(records, s.sampleRow(source.Records, columns))
	}

	return &models.AnonymizationResult{
		Technique:       constants.TechniqueSyntheticData,
		Dataset:         models.NewDataset(append([]string(nil), columns...), records),
		OriginalRecords: n,
		InformationLoss: constants.SyntheticInformationLoss,
		Compliant:       true,
		Parameters: map[string]interface{}{
			"method":          Method,
			"columns":         columns,
			"target_size_pct": config.TargetSizePct,
			"jitter":          s.jitter,
		},
	}, nil
}

func (s *Sampler) sampleRow(source []models.Record, columns []string) models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := source[s.randSource.Intn(len(source))]
	row := make(models.Record, len(columns))
	for _, col := range columns {
		if value, ok := models.IsNumeric(src[col]); ok {
			row[col] = value * (1 - s.jitter + 2*s.jitter*s.randSource.Float64())
			continue
		}
		row[col] = src[col]
	}
	return row
}
