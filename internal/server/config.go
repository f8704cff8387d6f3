package server

import (
	"fmt"
	"time"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
)

// Config contains server configuration
type Config struct {
	Host            string        `mapstructure:"host" json:"host"`
	Port            int           `mapstructure:"port" json:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
	EnableMetrics   bool          `mapstructure:"enable_metrics" json:"enable_metrics"`
	EnableCORS      bool          `mapstructure:"enable_cors" json:"enable_cors"`
	MaxRequestSize  int64         `mapstructure:"max_request_size" json:"max_request_size"`
	TLSCertFile     string        `mapstructure:"tls_cert_file" json:"tls_cert_file,omitempty"`
	TLSKeyFile      string        `mapstructure:"tls_key_file" json:"tls_key_file,omitempty"`
}

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            constants.DefaultHost,
		Port:            constants.DefaultPort,
		ReadTimeout:     constants.DefaultReadTimeout,
		WriteTimeout:    constants.DefaultWriteTimeout,
		IdleTimeout:     constants.DefaultIdleTimeout,
		ShutdownTimeout: constants.DefaultShutdownTimeout,
		RequestTimeout:  constants.DefaultWriteTimeout,
		EnableMetrics:   true,
		EnableCORS:      true,
		MaxRequestSize:  constants.DefaultMaxRequestSize,
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	ve := errors.NewValidationErrors()
	c.CollectErrors(ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// CollectErrors appends every problem with the server section to ve
func (c *Config) CollectErrors(ve *errors.ValidationErrors) {
	if c.Port < 1 || c.Port > 65535 {
		ve.Add("server.port", errors.CodeOutOfRange, "port must be between 1 and 65535", c.Port)
	}

	if c.ReadTimeout <= 0 {
		ve.Add("server.read_timeout", errors.CodeOutOfRange, "read timeout must be positive", c.ReadTimeout.String())
	}

	if c.WriteTimeout <= 0 {
		ve.Add("server.write_timeout", errors.CodeOutOfRange, "write timeout must be positive", c.WriteTimeout.String())
	}

	if c.MaxRequestSize <= 0 {
		ve.Add("server.max_request_size", errors.CodeOutOfRange, "max request size must be positive", c.MaxRequestSize)
	}

	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		ve.Add("server.tls", errors.CodeMissingField, "TLS needs both a certificate and a key", nil)
	}
}

// GetAddress returns the server address
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
