package interfaces

import (
	"context"
	"time"

	"github.com/inferloop/sdc/pkg/models"
)

// ResultStore persists operation results between the call that produced
// them and later lookups or downloads.
type ResultStore interface {
	// Save stores an operation under its ID, replacing any previous value
	Save(ctx context.Context, op *models.Operation) error

	// Get returns the operation or an error matching errors.ErrOperationNotFound
	Get(ctx context.Context, id string) (*models.Operation, error)

	// List returns stored operations, newest first
	List(ctx context.Context, filter ListFilter) ([]*models.Operation, error)

	// Delete removes an operation. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// Ping tests the connection
	Ping(ctx context.Context) error

	// Close closes the connection and cleans up resources
	Close() error
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Kind  models.OperationKind `json:"kind,omitempty"`
	Limit int                  `json:"limit,omitempty"`
}

// Matches reports whether op passes the filter, ignoring Limit.
func (f ListFilter) Matches(op *models.Operation) bool {
	return f.Kind == "" || op.Kind == f.Kind
}

// StoreConfig selects and configures a result store backend
type StoreConfig struct {
	Type      string        `json:"type" mapstructure:"type"`
	Addr      string        `json:"addr" mapstructure:"addr"`
	Password  string        `json:"password" mapstructure:"password"`
	DB        int           `json:"db" mapstructure:"db"`
	DSN       string        `json:"dsn" mapstructure:"dsn"`
	Table     string        `json:"table" mapstructure:"table"`
	KeyPrefix string        `json:"key_prefix" mapstructure:"key_prefix"`
	TTL       time.Duration `json:"ttl" mapstructure:"ttl"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`

	// S3 backend
	Bucket          string `json:"bucket" mapstructure:"bucket"`
	Region          string `json:"region" mapstructure:"region"`
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `json:"force_path_style" mapstructure:"force_path_style"`
	Compress        bool   `json:"compress" mapstructure:"compress"`
}

// ResultStoreCreateFunc builds a backend from its configuration
type ResultStoreCreateFunc func(config StoreConfig) (ResultStore, error)

// Connector is implemented by stores that must dial a server before use
type Connector interface {
	Connect(ctx context.Context) error
}
