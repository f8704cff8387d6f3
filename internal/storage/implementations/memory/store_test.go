package memory

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

func operation(id string, kind models.OperationKind, at time.Time) *models.Operation {
	return &models.Operation{ID: id, Kind: kind, CreatedAt: at}
}

func TestSaveAndGet(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	op := operation("op-1", models.OperationKindRisk, time.Now())
	require.NoError(t, store.Save(ctx, op))

	got, err := store.Get(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, op, got)
}

func TestGetMissing(t *testing.T) {
	store := NewMemoryStore(nil)

	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrOperationNotFound))
	assert.Equal(t, 404, errors.StatusCode(err))
}

func TestSaveRequiresID(t *testing.T) {
	store := NewMemoryStore(nil)
	assert.Error(t, store.Save(context.Background(), &models.Operation{}))
	assert.Error(t, store.Save(context.Background(), nil))
}

func TestListNewestFirstWithFilter(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, operation("a", models.OperationKindRisk, base)))
	require.NoError(t, store.Save(ctx, operation("b", models.OperationKindAnonymization, base.Add(time.Minute))))
	require.NoError(t, store.Save(ctx, operation("c", models.OperationKindAnonymization, base.Add(2*time.Minute))))

	all, err := store.List(ctx, interfaces.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	anon, err := store.List(ctx, interfaces.ListFilter{Kind: models.OperationKindAnonymization, Limit: 1})
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, "c", anon[0].ID)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, operation("a", models.OperationKindRisk, time.Now())))
	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "a"))

	_, err := store.Get(ctx, "a")
	assert.Error(t, err)
}

func TestClosedStore(t *testing.T) {
	store := NewMemoryStore(nil)
	require.NoError(t, store.Close())

	assert.Error(t, store.Ping(context.Background()))
	assert.Error(t, store.Save(context.Background(), operation("a", models.OperationKindRisk, time.Now())))
}
