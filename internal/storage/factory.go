package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/internal/storage/implementations/memory"
	"github.com/inferloop/sdc/internal/storage/implementations/postgres"
	"github.com/inferloop/sdc/internal/storage/implementations/redis"
	"github.com/inferloop/sdc/internal/storage/implementations/s3"
	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
)

// Factory builds result stores by backend type
type Factory struct {
	creators map[string]interfaces.ResultStoreCreateFunc
	mu       sync.RWMutex
	logger   *logrus.Logger
}

// NewFactory creates a new storage factory
func NewFactory(logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
	}

	factory := &Factory{
		creators: make(map[string]interfaces.ResultStoreCreateFunc),
		logger:   logger,
	}

	factory.registerDefaults()

	return factory
}

// CreateStore builds the configured backend and connects it when the
// backend needs a server. An empty type selects the memory store.
func (f *Factory) CreateStore(ctx context.Context, config interfaces.StoreConfig) (interfaces.ResultStore, error) {
	storeType := config.Type
	if storeType == "" {
		storeType = constants.StorageTypeMemory
	}

	f.mu.RLock()
	createFunc, exists := f.creators[storeType]
	f.mu.RUnlock()

	if !exists {
		return nil, errors.NewConfigurationError(errors.CodeInvalidConfig,
			fmt.Sprintf("Storage type '%s' is not supported", storeType))
	}

	store, err := createFunc(config)
	if err != nil {
		return nil, err
	}

	if connector, ok := store.(interfaces.Connector); ok {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = constants.DefaultStorageTimeout
		}

		connectCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := connector.Connect(connectCtx); err != nil {
			return nil, err
		}
	}

	f.logger.WithField("storage_type", storeType).Info("Created result store")

	return store, nil
}

// GetSupportedTypes returns all supported storage types
func (f *Factory) GetSupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.creators))
	for storageType := range f.creators {
		types = append(types, storageType)
	}
	sort.Strings(types)

	return types
}

// RegisterStorage registers a new storage type
func (f *Factory) RegisterStorage(storageType string, createFunc interfaces.ResultStoreCreateFunc) error {
	if storageType == "" {
		return errors.NewValidationError(errors.CodeInvalidInput, "Storage type cannot be empty")
	}

	if createFunc == nil {
		return errors.NewValidationError(errors.CodeInvalidInput, "Storage create function cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.creators[storageType] = createFunc
	return nil
}

// IsSupported checks if a storage type is supported
func (f *Factory) IsSupported(storageType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, exists := f.creators[storageType]
	return exists
}

func (f *Factory) registerDefaults() {
	f.RegisterStorage(constants.StorageTypeMemory, func(config interfaces.StoreConfig) (interfaces.ResultStore, error) {
		return memory.NewMemoryStore(f.logger), nil
	})

	f.RegisterStorage(constants.StorageTypeRedis, func(config interfaces.StoreConfig) (interfaces.ResultStore, error) {
		prefix := config.KeyPrefix
		if prefix == "" {
			prefix = constants.DefaultKeyPrefix
		}
		ttl := config.TTL
		if ttl == 0 {
			ttl = constants.DefaultResultTTL
		}

		return redis.NewRedisStorage(&redis.RedisConfig{
			Addr:         config.Addr,
			Password:     config.Password,
			DB:           config.DB,
			DialTimeout:  config.Timeout,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			MaxRetries:   3,
			TTL:          ttl,
			KeyPrefix:    prefix,
		}, f.logger)
	})

	f.RegisterStorage(constants.StorageTypePostgres, func(config interfaces.StoreConfig) (interfaces.ResultStore, error) {
		return postgres.NewPostgresStorage(&postgres.PostgresConfig{
			DSN:             config.DSN,
			Table:           config.Table,
			QueryTimeout:    config.Timeout,
			MaxConnections:  10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		}, f.logger)
	})

	f.RegisterStorage(constants.StorageTypeS3, func(config interfaces.StoreConfig) (interfaces.ResultStore, error) {
		prefix := config.KeyPrefix
		if prefix == "" {
			prefix = constants.DefaultKeyPrefix
		}

		return s3.NewS3Storage(&s3.S3Config{
			Region:          config.Region,
			Bucket:          config.Bucket,
			AccessKeyID:     config.AccessKeyID,
			SecretAccessKey: config.SecretAccessKey,
			Endpoint:        config.Endpoint,
			ForcePathStyle:  config.ForcePathStyle,
			Prefix:          prefix,
			Timeout:         config.Timeout,
			MaxRetries:      3,
			UseCompression:  config.Compress,
		}, f.logger)
	})
}
