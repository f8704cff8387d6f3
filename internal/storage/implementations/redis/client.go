package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

// RedisConfig holds configuration for Redis storage
type RedisConfig struct {
	Addr         string        `json:"addr"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	PoolSize     int           `json:"pool_size"`
	MaxRetries   int           `json:"max_retries"`
	TTL          time.Duration `json:"ttl"`
	KeyPrefix    string        `json:"key_prefix"`
}

// RedisStorage stores operations as JSON strings with an index sorted set
// scored by creation time.
type RedisStorage struct {
	config *RedisConfig
	client redis.UniversalClient
	logger *logrus.Logger
	mu     sync.RWMutex
	closed bool
}

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(config *RedisConfig, logger *logrus.Logger) (*RedisStorage, error) {
	if config == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidConfig, "Redis config cannot be nil")
	}

	if config.Addr == "" {
		return nil, errors.NewConfigurationError(errors.CodeInvalidConfig, "Redis address is required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &RedisStorage{
		config: config,
		logger: logger,
	}, nil
}

// Connect establishes connection to Redis
func (r *RedisStorage) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         r.config.Addr,
		Password:     r.config.Password,
		DB:           r.config.DB,
		DialTimeout:  r.config.DialTimeout,
		ReadTimeout:  r.config.ReadTimeout,
		WriteTimeout: r.config.WriteTimeout,
		PoolSize:     r.config.PoolSize,
		MaxRetries:   r.config.MaxRetries,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "Failed to connect to Redis")
	}

	r.client = client
	r.closed = false

	r.logger.WithFields(logrus.Fields{
		"addr": r.config.Addr,
		"db":   r.config.DB,
	}).Info("Connected to Redis")

	return nil
}

// Close closes the Redis connection
func (r *RedisStorage) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.client == nil {
		r.closed = true
		return nil
	}

	err := r.client.Close()
	r.client = nil
	r.closed = true
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeStorageError, "Failed to close Redis connection")
	}

	r.logger.Info("Redis connection closed")
	return nil
}

// Ping tests the Redis connection
func (r *RedisStorage) Ping(ctx context.Context) error {
	client, err := r.connectedClient()
	if err != nil {
		return err
	}

	if _, err := client.Ping(ctx).Result(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "Redis ping failed")
	}
	return nil
}

// Save writes the operation and indexes it by creation time
func (r *RedisStorage) Save(ctx context.Context, op *models.Operation) error {
	if op == nil || op.ID == "" {
		return errors.NewValidationError(errors.CodeMissingField, "operation ID is required")
	}

	client, err := r.connectedClient()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(op)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeWriteFailed, "Failed to serialize operation")
	}

	pipe := client.TxPipeline()
	pipe.Set(ctx, r.generateOperationKey(op.ID), payload, r.config.TTL)
	pipe.ZAdd(ctx, r.generateIndexKey(), &redis.Z{
		Score:  float64(op.CreatedAt.UnixNano()),
		Member: op.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to write to Redis")
	}

	r.logger.WithFields(logrus.Fields{
		"operation_id": op.ID,
		"kind":         op.Kind,
	}).Debug("Stored operation in Redis")

	return nil
}

// Get reads one operation
func (r *RedisStorage) Get(ctx context.Context, id string) (*models.Operation, error) {
	client, err := r.connectedClient()
	if err != nil {
		return nil, err
	}

	payload, err := client.Get(ctx, r.generateOperationKey(id)).Bytes()
	if err == redis.Nil {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to read from Redis")
	}

	return decodeOperation(payload)
}

// List reads the index newest first and drops members whose value expired
func (r *RedisStorage) List(ctx context.Context, filter interfaces.ListFilter) ([]*models.Operation, error) {
	client, err := r.connectedClient()
	if err != nil {
		return nil, err
	}

	ids, err := client.ZRevRange(ctx, r.generateIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to read Redis index")
	}
	if len(ids) == 0 {
		return []*models.Operation{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.generateOperationKey(id)
	}

	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to read operations from Redis")
	}

	ops := make([]*models.Operation, 0, len(values))
	var expired []interface{}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}

		op, err := decodeOperation([]byte(raw))
		if err != nil {
			return nil, err
		}
		if !filter.Matches(op) {
			continue
		}

		ops = append(ops, op)
		if filter.Limit > 0 && len(ops) == filter.Limit {
			break
		}
	}

	if len(expired) > 0 {
		if err := client.ZRem(ctx, r.generateIndexKey(), expired...).Err(); err != nil {
			r.logger.WithError(err).Warn("Failed to prune expired Redis index members")
		}
	}

	return ops, nil
}

// Delete removes the operation and its index entry
func (r *RedisStorage) Delete(ctx context.Context, id string) error {
	client, err := r.connectedClient()
	if err != nil {
		return err
	}

	pipe := client.TxPipeline()
	pipe.Del(ctx, r.generateOperationKey(id))
	pipe.ZRem(ctx, r.generateIndexKey(), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to delete from Redis")
	}
	return nil
}

func (r *RedisStorage) connectedClient() (redis.UniversalClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed || r.client == nil {
		return nil, errors.WrapError(errors.ErrStorageConnectionFailed, errors.ErrorTypeStorage,
			errors.CodeConnectionFailed, "Redis not connected")
	}
	return r.client, nil
}

func (r *RedisStorage) generateOperationKey(id string) string {
	if r.config.KeyPrefix != "" {
		return fmt.Sprintf("%s:operation:%s", r.config.KeyPrefix, id)
	}
	return fmt.Sprintf("operation:%s", id)
}

func (r *RedisStorage) generateIndexKey() string {
	if r.config.KeyPrefix != "" {
		return fmt.Sprintf("%s:operations", r.config.KeyPrefix)
	}
	return "operations"
}

func decodeOperation(payload []byte) (*models.Operation, error) {
	var op models.Operation
	if err := json.Unmarshal(payload, &op); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to decode stored operation")
	}
	return &op, nil
}

func notFound(id string) error {
	return errors.WrapError(errors.ErrOperationNotFound, errors.ErrorTypeStorage,
		errors.CodeDataNotFound, "operation not found").WithDetails(id)
}
