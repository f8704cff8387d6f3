package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

// PostgresConfig holds configuration for PostgreSQL storage
type PostgresConfig struct {
	DSN             string        `json:"dsn"`
	Table           string        `json:"table"`
	QueryTimeout    time.Duration `json:"query_timeout"`
	MaxConnections  int           `json:"max_connections"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// PostgresStorage stores each operation as one JSONB row
type PostgresStorage struct {
	config  *PostgresConfig
	db      *sql.DB
	logger  *logrus.Logger
	mu      sync.RWMutex
	closed  bool
	queries queries
}

type queries struct {
	schema []string
	upsert string
	get    string
	list   string
	delete string
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(config *PostgresConfig, logger *logrus.Logger) (*PostgresStorage, error) {
	if config == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidConfig, "Postgres config cannot be nil")
	}

	if config.DSN == "" {
		return nil, errors.NewConfigurationError(errors.CodeInvalidConfig, "Postgres DSN is required")
	}

	if config.Table == "" {
		config.Table = constants.DefaultPostgresTable
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = constants.DefaultStorageTimeout
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &PostgresStorage{
		config:  config,
		logger:  logger,
		queries: buildQueries(config.Table),
	}, nil
}

// Connect opens the pool and creates the table if needed
func (ps *PostgresStorage) Connect(ctx context.Context) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", ps.config.DSN)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "Failed to open database connection")
	}

	if ps.config.MaxConnections > 0 {
		db.SetMaxOpenConns(ps.config.MaxConnections)
	}
	if ps.config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(ps.config.MaxIdleConns)
	}
	if ps.config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(ps.config.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(ctx, ps.config.QueryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "Failed to ping database")
	}

	for _, stmt := range ps.queries.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return wrapPQ(err, errors.CodeStorageError, "Failed to initialize schema")
		}
	}

	ps.db = db
	ps.closed = false

	ps.logger.WithField("table", ps.config.Table).Info("Connected to PostgreSQL")
	return nil
}

// Close closes the database connection
func (ps *PostgresStorage) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed || ps.db == nil {
		ps.closed = true
		return nil
	}

	err := ps.db.Close()
	ps.db = nil
	ps.closed = true
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeStorageError, "Failed to close database connection")
	}

	ps.logger.Info("PostgreSQL connection closed")
	return nil
}

// Ping tests the database connection
func (ps *PostgresStorage) Ping(ctx context.Context) error {
	db, err := ps.connectedDB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, ps.config.QueryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "Database ping failed")
	}
	return nil
}

// Save upserts the operation row
func (ps *PostgresStorage) Save(ctx context.Context, op *models.Operation) error {
	if op == nil || op.ID == "" {
		return errors.NewValidationError(errors.CodeMissingField, "operation ID is required")
	}

	db, err := ps.connectedDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(op)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeWriteFailed, "Failed to serialize operation")
	}

	ctx, cancel := context.WithTimeout(ctx, ps.config.QueryTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, ps.queries.upsert,
		op.ID, string(op.Kind), op.Technique(), op.CreatedAt, payload); err != nil {
		return wrapPQ(err, errors.CodeWriteFailed, "Failed to write operation")
	}

	return nil
}

// Get reads one operation
func (ps *PostgresStorage) Get(ctx context.Context, id string) (*models.Operation, error) {
	db, err := ps.connectedDB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, ps.config.QueryTimeout)
	defer cancel()

	var payload []byte
	err = db.QueryRowContext(ctx, ps.queries.get, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.WrapError(errors.ErrOperationNotFound, errors.ErrorTypeStorage,
			errors.CodeDataNotFound, "operation not found").WithDetails(id)
	}
	if err != nil {
		return nil, wrapPQ(err, errors.CodeReadFailed, "Failed to read operation")
	}

	return decodeOperation(payload)
}

// List returns operations newest first
func (ps *PostgresStorage) List(ctx context.Context, filter interfaces.ListFilter) ([]*models.Operation, error) {
	db, err := ps.connectedDB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, ps.config.QueryTimeout)
	defer cancel()

	var limit sql.NullInt64
	if filter.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(filter.Limit), Valid: true}
	}

	rows, err := db.QueryContext(ctx, ps.queries.list, string(filter.Kind), limit)
	if err != nil {
		return nil, wrapPQ(err, errors.CodeReadFailed, "Failed to list operations")
	}
	defer rows.Close()

	ops := make([]*models.Operation, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, wrapPQ(err, errors.CodeReadFailed, "Failed to scan operation")
		}

		op, err := decodeOperation(payload)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapPQ(err, errors.CodeReadFailed, "Failed to list operations")
	}

	return ops, nil
}

// Delete removes an operation row
func (ps *PostgresStorage) Delete(ctx context.Context, id string) error {
	db, err := ps.connectedDB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, ps.config.QueryTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, ps.queries.delete, id); err != nil {
		return wrapPQ(err, errors.CodeWriteFailed, "Failed to delete operation")
	}
	return nil
}

func (ps *PostgresStorage) connectedDB() (*sql.DB, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed || ps.db == nil {
		return nil, errors.WrapError(errors.ErrStorageConnectionFailed, errors.ErrorTypeStorage,
			errors.CodeConnectionFailed, "Database not connected")
	}
	return ps.db, nil
}

func buildQueries(table string) queries {
	t := pq.QuoteIdentifier(table)
	idx := pq.QuoteIdentifier("idx_" + table + "_created_at")

	return queries{
		schema: []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(64) PRIMARY KEY,
		kind VARCHAR(32) NOT NULL,
		technique VARCHAR(64) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL
	)`, t),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (created_at DESC)", idx, t),
		},
		upsert: fmt.Sprintf(`INSERT INTO %s (id, kind, technique, created_at, payload)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		kind = EXCLUDED.kind,
		technique = EXCLUDED.technique,
		created_at = EXCLUDED.created_at,
		payload = EXCLUDED.payload`, t),
		get: fmt.Sprintf("SELECT payload FROM %s WHERE id = $1", t),
		list: fmt.Sprintf(`SELECT payload FROM %s
	WHERE ($1::text = '' OR kind = $1::text)
	ORDER BY created_at DESC, id ASC
	LIMIT $2`, t),
		delete: fmt.Sprintf("DELETE FROM %s WHERE id = $1", t),
	}
}

// wrapPQ keeps the SQLSTATE name of server errors in the details
func wrapPQ(err error, code, message string) error {
	appErr := errors.WrapError(err, errors.ErrorTypeStorage, code, message)
	if pqErr, ok := err.(*pq.Error); ok {
		appErr.WithDetails(fmt.Sprintf("%s (%s)", pqErr.Code.Name(), pqErr.Message))
	}
	return appErr
}

func decodeOperation(payload []byte) (*models.Operation, error) {
	var op models.Operation
	if err := json.Unmarshal(payload, &op); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to decode stored operation")
	}
	return &op, nil
}
