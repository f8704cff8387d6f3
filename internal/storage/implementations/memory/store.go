package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

// MemoryStore keeps operations in process memory
type MemoryStore struct {
	logger     *logrus.Logger
	mu         sync.RWMutex
	operations map[string]*models.Operation
	closed     bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(logger *logrus.Logger) *MemoryStore {
	if logger == nil {
		logger = logrus.New()
	}

	return &MemoryStore{
		logger:     logger,
		operations: make(map[string]*models.Operation),
	}
}

// Save stores an operation under its ID
func (m *MemoryStore) Save(ctx context.Context, op *models.Operation) error {
	if op == nil || op.ID == "" {
		return errors.NewValidationError(errors.CodeMissingField, "operation ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return notConnected()
	}

	m.operations[op.ID] = op
	m.logger.WithFields(logrus.Fields{
		"operation_id": op.ID,
		"kind":         op.Kind,
	}).Debug("Stored operation")

	return nil
}

// Get returns a stored operation
func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, notConnected()
	}

	op, ok := m.operations[id]
	if !ok {
		return nil, errors.WrapError(errors.ErrOperationNotFound, errors.ErrorTypeStorage,
			errors.CodeDataNotFound, "operation not found").WithDetails(id)
	}

	return op, nil
}

// List returns operations matching filter, newest first
func (m *MemoryStore) List(ctx context.Context, filter interfaces.ListFilter) ([]*models.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, notConnected()
	}

	ops := make([]*models.Operation, 0, len(m.operations))
	for _, op := range m.operations {
		if filter.Matches(op) {
			ops = append(ops, op)
		}
	}

	SortNewestFirst(ops)
	if filter.Limit > 0 && len(ops) > filter.Limit {
		ops = ops[:filter.Limit]
	}

	return ops, nil
}

// Delete removes an operation
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return notConnected()
	}

	delete(m.operations, id)
	return nil
}

// Ping reports whether the store is open
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return notConnected()
	}
	return nil
}

// Close releases all operations
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.operations = nil
	return nil
}

// SortNewestFirst orders operations by creation time descending, then ID.
func SortNewestFirst(ops []*models.Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].CreatedAt.Equal(ops[j].CreatedAt) {
			return ops[i].ID < ops[j].ID
		}
		return ops[i].CreatedAt.After(ops[j].CreatedAt)
	})
}

func notConnected() error {
	return errors.WrapError(errors.ErrStorageConnectionFailed, errors.ErrorTypeStorage,
		errors.CodeConnectionFailed, "memory store is closed")
}
