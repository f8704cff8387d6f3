package redis

import (
	"context"
	stderrors "errors"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

func TestNewRedisStorage(t *testing.T) {
	config := &RedisConfig{Addr: "localhost:6379"}
	logger := logrus.New()

	storage, err := NewRedisStorage(config, logger)
	require.NoError(t, err)
	assert.Equal(t, config, storage.config)
	assert.Equal(t, logger, storage.logger)
}

func TestNewRedisStorageInvalidConfig(t *testing.T) {
	_, err := NewRedisStorage(nil, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")

	_, err = NewRedisStorage(&RedisConfig{}, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address is required")
}

func TestRedisStorageGenerateKeys(t *testing.T) {
	storage, err := NewRedisStorage(&RedisConfig{Addr: "localhost:6379", KeyPrefix: "sdc"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "sdc:operation:op-1", storage.generateOperationKey("op-1"))
	assert.Equal(t, "sdc:operations", storage.generateIndexKey())
}

func TestRedisStorageGenerateKeysNoPrefix(t *testing.T) {
	storage, err := NewRedisStorage(&RedisConfig{Addr: "localhost:6379"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "operation:op-1", storage.generateOperationKey("op-1"))
	assert.Equal(t, "operations", storage.generateIndexKey())
}

func TestRedisStorageNotConnected(t *testing.T) {
	storage, err := NewRedisStorage(&RedisConfig{Addr: "localhost:6379"}, nil)
	require.NoError(t, err)

	err = storage.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrStorageConnectionFailed))

	_, err = storage.Get(context.Background(), "op-1")
	assert.Error(t, err)
	assert.NoError(t, storage.Close())
}

func TestRedisStorageIntegration(t *testing.T) {
	addr := os.Getenv("SDC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Integration test - set SDC_TEST_REDIS_ADDR to a running Redis instance")
	}

	storage, err := NewRedisStorage(&RedisConfig{
		Addr:      addr,
		DB:        15,
		TTL:       time.Hour,
		KeyPrefix: "sdc-test",
	}, logrus.New())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, storage.Connect(ctx))
	defer storage.Close()

	base := time.Now().UTC()
	older := &models.Operation{ID: "it-1", Kind: models.OperationKindRisk, CreatedAt: base}
	newer := &models.Operation{ID: "it-2", Kind: models.OperationKindUtility, CreatedAt: base.Add(time.Second)}
	require.NoError(t, storage.Save(ctx, older))
	require.NoError(t, storage.Save(ctx, newer))
	defer storage.Delete(ctx, older.ID)
	defer storage.Delete(ctx, newer.ID)

	got, err := storage.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.Kind, got.Kind)

	list, err := storage.List(ctx, interfaces.ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)

	require.NoError(t, storage.Delete(ctx, older.ID))
	_, err = storage.Get(ctx, older.ID)
	assert.True(t, stderrors.Is(err, errors.ErrOperationNotFound))
}
