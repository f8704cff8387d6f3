package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/sdc/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	config, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, Default(), config)
	assert.Equal(t, "memory", config.Storage.Type)
	assert.Equal(t, 5, config.Engine.Defaults.K)
	assert.Equal(t, 15*time.Second, config.Server.ReadTimeout)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := writeFile(t, "sdc.yaml", `
log:
  level: debug
  format: text
server:
  port: 9000
  read_timeout: 3s
storage:
  type: redis
  addr: localhost:6379
  ttl: 1h
engine:
  max_records: 500
  defaults:
    k: 3
    epsilon: 0.5
`)
	t.Setenv("SDC_SERVER_PORT", "9100")
	t.Setenv("SDC_ENGINE_DEFAULTS_MECHANISM", "secure-laplace")

	config, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, 3*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, "redis", config.Storage.Type)
	assert.Equal(t, "localhost:6379", config.Storage.Addr)
	assert.Equal(t, time.Hour, config.Storage.TTL)
	assert.Equal(t, 500, config.Engine.MaxRecords)
	assert.Equal(t, 3, config.Engine.Defaults.K)
	assert.Equal(t, 0.5, config.Engine.Defaults.Epsilon)
	assert.Equal(t, "secure-laplace", config.Engine.Defaults.Mechanism)

	// untouched keys keep their defaults
	assert.Equal(t, 0.1, config.Engine.Defaults.SuppressionLimit)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, "bad.yaml", "log:\n  level: loud\n")
	_, err := Load(viper.New(), path)
	assert.Error(t, err)

	path = writeFile(t, "bad-port.yaml", "server:\n  port: 70000\n")
	_, err = Load(viper.New(), path)
	assert.Error(t, err)

	_, err = Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	config := Default()
	config.Log.Level = "loud"
	config.Log.Format = "xml"
	config.Engine.MaxRecords = -1
	config.Server.Port = 0

	err := config.Validate()
	require.Error(t, err)

	var ve *errors.ValidationErrors
	require.True(t, stderrors.As(err, &ve))
	require.Len(t, ve.Errors, 4)
	assert.Equal(t, "log.level", ve.Errors[0].Field)
	assert.Equal(t, errors.CodeOutOfRange, ve.Errors[2].Code)
	assert.Equal(t, "server.port", ve.Errors[3].Field)
	assert.Contains(t, err.Error(), "log.format")

	assert.NoError(t, Default().Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	config := Default()
	config.Engine.Defaults.K = 7
	config.Storage.Type = "postgres"
	config.Storage.DSN = "postgres://localhost/sdc"

	path, err := Save(config, filepath.Join(t.TempDir(), "nested", "sdc.yaml"))
	require.NoError(t, err)

	loaded, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}

func TestNewLogger(t *testing.T) {
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger()
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = LogConfig{Level: "nope", Format: "text"}.NewLogger()
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
