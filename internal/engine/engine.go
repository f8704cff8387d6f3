package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/internal/generators"
	"github.com/inferloop/sdc/internal/privacy"
	"github.com/inferloop/sdc/internal/storage/implementations/memory"
	"github.com/inferloop/sdc/internal/validation"
	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

// MetricsRecorder receives engine observations
type MetricsRecorder interface {
	RecordOperation(operation, status string, duration time.Duration)
	AddRecordsProcessed(n int)
	SetRiskScore(model string, risk float64)
	SetUtilityScore(utility float64)
	SetInformationLoss(technique string, loss float64)
}

// Options configures an Engine. Zero values are usable.
type Options struct {
	// Store persists every result; nil means an in-memory store
	Store interfaces.ResultStore
	// Metrics may be nil
	Metrics MetricsRecorder
	// RandSource seeds the laplace mechanism; nil seeds from the clock
	RandSource *rand.Rand
	// MaxRecords rejects larger inputs; zero disables the ceiling
	MaxRecords int
}

// Engine runs risk assessment, anonymization and utility measurement, stamps
// each result with an operation ID and persists it.
type Engine struct {
	logger     *logrus.Logger
	store      interfaces.ResultStore
	metrics    MetricsRecorder
	maxRecords int

	risk       *privacy.RiskAssessor
	kAnon      *privacy.KAnonymizer
	lDiversity *privacy.LDiversityAnonymizer
	tCloseness *privacy.TClosenessAnonymizer
	noise      *privacy.NoiseInjector
	generators *generators.Factory
	utility    *validation.UtilityComparator

	now   func() time.Time
	newID func() string
}

// New creates an Engine
func New(opts Options, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}

	store := opts.Store
	if store == nil {
		store = memory.NewMemoryStore(logger)
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Engine{
		logger:     logger,
		store:      store,
		metrics:    metrics,
		maxRecords: opts.MaxRecords,
		risk:       privacy.NewRiskAssessor(logger),
		kAnon:      privacy.NewKAnonymizer(logger),
		lDiversity: privacy.NewLDiversityAnonymizer(logger),
		tCloseness: privacy.NewTClosenessAnonymizer(logger),
		noise:      privacy.NewNoiseInjector(logger, opts.RandSource),
		generators: generators.NewFactory(logger),
		utility:    validation.NewUtilityComparator(logger),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// Store returns the result store
func (e *Engine) Store() interfaces.ResultStore {
	return e.store
}

// Mechanisms lists the registered noise mechanisms
func (e *Engine) Mechanisms() []string {
	return e.noise.Mechanisms()
}

// SyntheticMethods lists the registered synthetic generators
func (e *Engine) SyntheticMethods() []string {
	return e.generators.GetAvailableGenerators()
}

// ComputeRiskMetrics scores re-identification risk of ds
func (e *Engine) ComputeRiskMetrics(ctx context.Context, ds *models.Dataset, opts privacy.RiskOptions) (*models.RiskMetrics, error) {
	var metrics *models.RiskMetrics

	err := e.run(ctx, constants.OperationRiskAssessment, ds, func() error {
		var err error
		metrics, err = e.risk.Assess(ctx, ds, opts)
		if err != nil {
			return err
		}

		metrics.OperationID, metrics.CreatedAt = e.stamp()
		return e.store.Save(ctx, models.NewRiskOperation(metrics))
	})
	if err != nil {
		return nil, err
	}

	e.metrics.SetRiskScore(privacy.ModelProsecutor, metrics.ProsecutorRisk)
	e.metrics.SetRiskScore(privacy.ModelJournalist, metrics.JournalistRisk)
	e.metrics.SetRiskScore(privacy.ModelMarketer, metrics.MarketerRisk)

	return metrics, nil
}

// ApplyKAnonymity suppresses or generalizes classes smaller than k
func (e *Engine) ApplyKAnonymity(ctx context.Context, ds *models.Dataset, config privacy.KAnonymityConfig) (*models.AnonymizationResult, error) {
	return e.anonymize(ctx, constants.TechniqueKAnonymity, ds, func() (*models.AnonymizationResult, error) {
		return e.kAnon.Apply(ctx, ds, config)
	})
}

// ApplyLDiversity enforces sensitive-value diversity per class
func (e *Engine) ApplyLDiversity(ctx context.Context, ds *models.Dataset, config privacy.LDiversityConfig) (*models.AnonymizationResult, error) {
	return e.anonymize(ctx, constants.TechniqueLDiversity, ds, func() (*models.AnonymizationResult, error) {
		return e.lDiversity.Apply(ctx, ds, config)
	})
}

// ApplyTCloseness bounds the distance of each class distribution from the
// whole-table distribution
func (e *Engine) ApplyTCloseness(ctx context.Context, ds *models.Dataset, config privacy.TClosenessConfig) (*models.AnonymizationResult, error) {
	return e.anonymize(ctx, constants.TechniqueTCloseness, ds, func() (*models.AnonymizationResult, error) {
		return e.tCloseness.Apply(ctx, ds, config)
	})
}

// ApplyDifferentialPrivacy adds calibrated noise to numeric columns
func (e *Engine) ApplyDifferentialPrivacy(ctx context.Context, ds *models.Dataset, config privacy.DPConfig) (*models.AnonymizationResult, error) {
	return e.anonymize(ctx, constants.TechniqueDifferentialPrivacy, ds, func() (*models.AnonymizationResult, error) {
		return e.noise.Apply(ctx, ds, config)
	})
}

// GenerateSynthetic produces synthetic rows with the configured generator
func (e *Engine) GenerateSynthetic(ctx context.Context, ds *models.Dataset, config interfaces.GenerationConfig) (*models.AnonymizationResult, error) {
	generator, err := e.generators.CreateGenerator(config.Method)
	if err != nil {
		return nil, err
	}

	return e.anonymize(ctx, constants.TechniqueSyntheticData, ds, func() (*models.AnonymizationResult, error) {
		return generator.Generate(ctx, ds, config)
	})
}

// MeasureUtility compares processed against original
func (e *Engine) MeasureUtility(ctx context.Context, original, processed *models.Dataset, opts validation.UtilityOptions) (*models.UtilityMeasurement, error) {
	return e.measure(ctx, original, processed, opts, "")
}

// MeasureOperationUtility compares original against the dataset produced by
// a stored anonymization. The stored information loss is used unless opts
// supplies one.
func (e *Engine) MeasureOperationUtility(ctx context.Context, original *models.Dataset, operationID string, opts validation.UtilityOptions) (*models.UtilityMeasurement, error) {
	op, err := e.store.Get(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if op.Anonymization == nil || op.Anonymization.Dataset == nil {
		return nil, errors.InvalidArgument(errors.ErrNotAnonymization, errors.CodeNotAnonymization,
			fmt.Sprintf("operation %s is a %s operation", operationID, op.Kind))
	}

	if opts.InformationLoss == nil {
		loss := op.Anonymization.InformationLoss
		opts.InformationLoss = &loss
	}

	return e.measure(ctx, original, op.Anonymization.Dataset, opts, operationID)
}

// GetOperation returns a stored result
func (e *Engine) GetOperation(ctx context.Context, id string) (*models.Operation, error) {
	return e.store.Get(ctx, id)
}

// ListOperations returns stored results, newest first
func (e *Engine) ListOperations(ctx context.Context, filter interfaces.ListFilter) ([]*models.Operation, error) {
	return e.store.List(ctx, filter)
}

// DeleteOperation removes a stored result
func (e *Engine) DeleteOperation(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

func (e *Engine) measure(ctx context.Context, original, processed *models.Dataset, opts validation.UtilityOptions, sourceID string) (*models.UtilityMeasurement, error) {
	var measurement *models.UtilityMeasurement

	err := e.run(ctx, constants.OperationUtility, original, func() error {
		if err := e.checkSize(processed); err != nil {
			return err
		}

		var err error
		measurement, err = e.utility.Measure(original, processed, opts)
		if err != nil {
			return err
		}

		measurement.SourceOperationID = sourceID
		measurement.OperationID, measurement.CreatedAt = e.stamp()
		return e.store.Save(ctx, models.NewUtilityOperation(measurement))
	})
	if err != nil {
		return nil, err
	}

	e.metrics.SetUtilityScore(measurement.OverallUtility)
	return measurement, nil
}

func (e *Engine) anonymize(ctx context.Context, technique string, ds *models.Dataset, apply func() (*models.AnonymizationResult, error)) (*models.AnonymizationResult, error) {
	var result *models.AnonymizationResult

	err := e.run(ctx, technique, ds, func() error {
		var err error
		result, err = apply()
		if err != nil {
			return err
		}

		result.OperationID, result.CreatedAt = e.stamp()
		return e.store.Save(ctx, models.NewAnonymizationOperation(result))
	})
	if err != nil {
		return nil, err
	}

	e.metrics.SetInformationLoss(technique, result.InformationLoss)
	return result, nil
}

// run applies the record ceiling, then times fn and reports its outcome
func (e *Engine) run(ctx context.Context, operation string, ds *models.Dataset, fn func() error) error {
	logger := e.logger.WithFields(logrus.Fields{
		"operation": operation,
		"records":   ds.Len(),
	})

	if err := e.checkSize(ds); err != nil {
		logger.WithError(err).Warn("Operation rejected")
		e.metrics.RecordOperation(operation, "error", 0)
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeCancelled, errors.CodeCancelled, "operation cancelled")
	}

	logger.Debug("Operation started")
	start := time.Now()

	err := fn()
	duration := time.Since(start)

	if err != nil {
		e.metrics.RecordOperation(operation, "error", duration)
		logger.WithError(err).WithField("duration", duration).Warn("Operation failed")
		return err
	}

	e.metrics.RecordOperation(operation, "success", duration)
	e.metrics.AddRecordsProcessed(ds.Len())
	logger.WithField("duration", duration).Info("Operation completed")

	return nil
}

func (e *Engine) checkSize(ds *models.Dataset) error {
	if e.maxRecords > 0 && ds.Len() > e.maxRecords {
		return errors.InvalidArgument(errors.ErrTooManyRecords, errors.CodeTooManyRecords,
			fmt.Sprintf("dataset has %d records, limit is %d", ds.Len(), e.maxRecords))
	}
	return nil
}

func (e *Engine) stamp() (string, time.Time) {
	return e.newID(), e.now().UTC()
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(string, string, time.Duration) {}
func (noopMetrics) AddRecordsProcessed(int) {}
func (noopMetrics) SetRiskScore(string, float64) {}
func (noopMetrics) SetUtilityScore(float64) {}
func (noopMetrics) SetInformationLoss(string, float64) {}
