package generators

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/internal/generators/resample"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
)

// Factory implements the GeneratorFactory interface
type Factory struct {
	creators map[string]interfaces.GeneratorCreateFunc
	mu       sync.RWMutex
	logger   *logrus.Logger
}

// NewFactory creates a generator factory with the default methods registered
func NewFactory(logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
	}

	factory := &Factory{
		creators: make(map[string]interfaces.GeneratorCreateFunc),
		logger:   logger,
	}

	// The sampler is shared so concurrent requests draw from one guarded source
	sampler := resample.NewSampler(logger, nil)
	factory.RegisterGenerator(resample.Method, func() interfaces.SyntheticGenerator {
		return sampler
	})

	return factory
}

// CreateGenerator returns the generator registered under method. An empty
// method selects resampling.
func (f *Factory) CreateGenerator(method string) (interfaces.SyntheticGenerator, error) {
	if method == "" {
		method = resample.Method
	}

	f.mu.RLock()
	createFunc, exists := f.creators[method]
	f.mu.RUnlock()

	if !exists {
		return nil, errors.NewValidationError(errors.CodeInvalidInput,
			fmt.Sprintf("synthetic method '%s' is not supported", method))
	}

	return createFunc(), nil
}

// GetAvailableGenerators returns all registered methods in sorted order
func (f *Factory) GetAvailableGenerators() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	methods := make([]string, 0, len(f.creators))
	for method := range f.creators {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// RegisterGenerator registers a new generator method
func (f *Factory) RegisterGenerator(method string, createFunc interfaces.GeneratorCreateFunc) error {
	if method == "" {
		return errors.NewValidationError(errors.CodeMissingField, "generator method cannot be empty")
	}
	if createFunc == nil {
		return errors.NewValidationError(errors.CodeMissingField, "generator create function cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.creators[method] = createFunc

	f.logger.WithField("method", method).Debug("Registered generator")
	return nil
}

// IsSupported checks if a method is registered
func (f *Factory) IsSupported(method string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, exists := f.creators[method]
	return exists
}
