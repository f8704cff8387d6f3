package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/inferloop/sdc/internal/engine"
	"github.com/inferloop/sdc/internal/observability/metrics"
	"github.com/inferloop/sdc/internal/server"
	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
)

const (
	// EnvPrefix namespaces environment overrides, e.g. SDC_SERVER_PORT
	EnvPrefix = "SDC"
	// FileName is the config file looked up in $HOME
	FileName = ".sdc"
)

// Config is the full application configuration
type Config struct {
	Log     LogConfig                `mapstructure:"log"`
	Server  server.Config            `mapstructure:"server"`
	Metrics metrics.PrometheusConfig `mapstructure:"metrics"`
	Storage interfaces.StoreConfig   `mapstructure:"storage"`
	Engine  EngineConfig             `mapstructure:"engine"`
}

// LogConfig selects the logrus level and formatter
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig configures the engine and its parameter defaults
type EngineConfig struct {
	// MaxRecords rejects larger datasets; zero disables the ceiling
	MaxRecords int `mapstructure:"max_records"`
	// RandomSeed makes laplace noise reproducible; zero seeds from the clock
	RandomSeed int64 `mapstructure:"random_seed"`

	Defaults engine.Defaults `mapstructure:"defaults"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  constants.DefaultLogLevel,
			Format: constants.DefaultLogFormat,
		},
		Server:  *server.DefaultConfig(),
		Metrics: *metrics.DefaultPrometheusConfig(),
		Storage: interfaces.StoreConfig{
			Type:      constants.StorageTypeMemory,
			KeyPrefix: constants.DefaultKeyPrefix,
			Table:     constants.DefaultPostgresTable,
			TTL:       constants.DefaultResultTTL,
			Timeout:   constants.DefaultStorageTimeout,
		},
		Engine: EngineConfig{
			MaxRecords: constants.DefaultMaxRecords,
			Defaults:   engine.DefaultParameters(),
		},
	}
}

// Load reads cfgFile, or $HOME/.sdc.yaml when cfgFile is empty, applies SDC_
// environment overrides and returns the merged configuration. A missing
// default file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	ve := errors.NewValidationErrors()

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		ve.Add("log.level", errors.CodeInvalidConfig, "unknown log level", c.Log.Level)
	}

	switch c.Log.Format {
	case constants.LogFormatJSON, constants.LogFormatText:
	default:
		ve.Add("log.format", errors.CodeInvalidConfig, "log format must be json or text", c.Log.Format)
	}

	if c.Engine.MaxRecords < 0 {
		ve.Add("engine.max_records", errors.CodeOutOfRange, "max records cannot be negative", c.Engine.MaxRecords)
	}

	c.Server.CollectErrors(ve)

	if ve.HasErrors() {
		return ve
	}
	return nil
}

// NewLogger builds a logger from the log section
func (c LogConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(c.Level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if c.Format == constants.LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// Save writes config as YAML to cfgFile, or $HOME/.sdc.yaml when empty
func Save(config *Config, cfgFile string) (string, error) {
	if cfgFile == "" {
		cfgFile = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(cfgFile), 0o755); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, config)
	v.SetConfigType("yaml")

	if err := v.WriteConfigAs(cfgFile); err != nil {
		return "", err
	}
	return cfgFile, nil
}

// DefaultPath returns $HOME/.sdc.yaml
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, FileName+".yaml")
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, c *Config) {
	values := map[string]interface{}{
		"log.level":  c.Log.Level,
		"log.format": c.Log.Format,

		"server.host":             c.Server.Host,
		"server.port":             c.Server.Port,
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.idle_timeout":     c.Server.IdleTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"server.request_timeout":  c.Server.RequestTimeout,
		"server.enable_metrics":   c.Server.EnableMetrics,
		"server.enable_cors":      c.Server.EnableCORS,
		"server.max_request_size": c.Server.MaxRequestSize,
		"server.tls_cert_file":    c.Server.TLSCertFile,
		"server.tls_key_file":     c.Server.TLSKeyFile,

		"metrics.enabled":   c.Metrics.Enabled,
		"metrics.port":      c.Metrics.Port,
		"metrics.path":      c.Metrics.Path,
		"metrics.namespace": c.Metrics.Namespace,

		"storage.type":       c.Storage.Type,
		"storage.addr":       c.Storage.Addr,
		"storage.password":   c.Storage.Password,
		"storage.db":         c.Storage.DB,
		"storage.dsn":        c.Storage.DSN,
		"storage.table":      c.Storage.Table,
		"storage.key_prefix": c.Storage.KeyPrefix,
		"storage.ttl":        c.Storage.TTL,
		"storage.timeout":    c.Storage.Timeout,

		"storage.bucket":            c.Storage.Bucket,
		"storage.region":            c.Storage.Region,
		"storage.endpoint":          c.Storage.Endpoint,
		"storage.access_key_id":     c.Storage.AccessKeyID,
		"storage.secret_access_key": c.Storage.SecretAccessKey,
		"storage.force_path_style":  c.Storage.ForcePathStyle,
		"storage.compress":          c.Storage.Compress,

		"engine.max_records": c.Engine.MaxRecords,
		"engine.random_seed": c.Engine.RandomSeed,

		"engine.defaults.k_threshold":           c.Engine.Defaults.KThreshold,
		"engine.defaults.sample_size_pct":       c.Engine.Defaults.SampleSizePct,
		"engine.defaults.population_multiplier": c.Engine.Defaults.PopulationMultiplier,
		"engine.defaults.k":                     c.Engine.Defaults.K,
		"engine.defaults.suppression_limit":     c.Engine.Defaults.SuppressionLimit,
		"engine.defaults.l":                     c.Engine.Defaults.L,
		"engine.defaults.diversity_model":       c.Engine.Defaults.DiversityModel,
		"engine.defaults.t":                     c.Engine.Defaults.T,
		"engine.defaults.epsilon":               c.Engine.Defaults.Epsilon,
		"engine.defaults.mechanism":             c.Engine.Defaults.Mechanism,
		"engine.defaults.synthetic_method":      c.Engine.Defaults.SyntheticMethod,
		"engine.defaults.target_size_pct":       c.Engine.Defaults.TargetSizePct,
	}

	for key, value := range values {
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		v.SetDefault(key, value)
	}
}
