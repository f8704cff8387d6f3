package storage

import (
	"context"
	"time"

	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

// Recorder receives one observation per store call
type Recorder interface {
	RecordStorageOperation(backend, operation, status string, duration time.Duration)
}

// InstrumentedStore reports latency and outcome of every call to a Recorder
type InstrumentedStore struct {
	interfaces.ResultStore
	backend  string
	recorder Recorder
}

// Instrument wraps store; a nil recorder returns store unchanged
func Instrument(store interfaces.ResultStore, backend string, recorder Recorder) interfaces.ResultStore {
	if recorder == nil {
		return store
	}
	return &InstrumentedStore{ResultStore: store, backend: backend, recorder: recorder}
}

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.recorder.RecordStorageOperation(s.backend, operation, status, time.Since(start))
}

func (s *InstrumentedStore) Save(ctx context.Context, op *models.Operation) error {
	start := time.Now()
	err := s.ResultStore.Save(ctx, op)
	s.observe("save", start, err)
	return err
}

func (s *InstrumentedStore) Get(ctx context.Context, id string) (*models.Operation, error) {
	start := time.Now()
	op, err := s.ResultStore.Get(ctx, id)
	s.observe("get", start, err)
	return op, err
}

func (s *InstrumentedStore) List(ctx context.Context, filter interfaces.ListFilter) ([]*models.Operation, error) {
	start := time.Now()
	ops, err := s.ResultStore.List(ctx, filter)
	s.observe("list", start, err)
	return ops, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.ResultStore.Delete(ctx, id)
	s.observe("delete", start, err)
	return err
}
