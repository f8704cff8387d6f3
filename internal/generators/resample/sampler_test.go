package resample

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/sdc/pkg/constants"
	sdcerrors "github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

func sourceDataset() *models.Dataset {
	records := make([]models.Record, 0, 20)
	for i := 0; i < 20; i++ {
		records = append(records, models.Record{
			"age":  float64(20 + i),
			"city": []string{"Oslo", "Bergen"}[i%2],
			"note": nil,
		})
	}
	return models.NewDataset([]string{"age", "city", "note"}, records)
}

func newTestSampler(seed int64) *Sampler {
	return NewSampler(nil, rand.New(rand.NewSource(seed)))
}

func TestSamplerTargetSize(t *testing.T) {
	tests := []struct {
		pct  float64
		want int
	}{
		{100, 20},
		{50, 10},
		{12.5, 2},
		{250, 50},
		{1, 0},
		{0, 20},
	}

	for _, tt := range tests {
		result, err := newTestSampler(1).Generate(context.Background(), sourceDataset(), Config{TargetSizePct: tt.pct})
		require.NoError(t, err)
		assert.Equal(t, tt.want, result.Dataset.Len(), "pct %v", tt.pct)
	}
}

func TestSamplerJitterBounds(t *testing.T) {
	source := sourceDataset()
	result, err := newTestSampler(9).Generate(context.Background(), source, Config{TargetSizePct: 500})
	require.NoError(t, err)

	cities := map[interface{}]bool{"Oslo": true, "Bergen": true}
	for _, r := range result.Dataset.Records {
		age, ok := r["age"].(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, age, 20*0.9)
		assert.LessOrEqual(t, age, 39*1.1)
		assert.True(t, cities[r["city"]])
		assert.Nil(t, r["note"])
	}

	assert.Equal(t, constants.TechniqueSyntheticData, result.Technique)
	assert.Equal(t, constants.SyntheticInformationLoss, result.InformationLoss)
	assert.Equal(t, 20, result.OriginalRecords)
	assert.Equal(t, 20.0, source.Records[0]["age"])
}

func TestSamplerSelectsColumns(t *testing.T) {
	result, err := newTestSampler(2).Generate(context.Background(), sourceDataset(), Config{
		Columns:       []string{"city"},
		TargetSizePct: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"city"}, result.Dataset.Columns)
	for _, r := range result.Dataset.Records {
		assert.Len(t, r, 1)
	}
}

func TestSamplerDeterministicWithSeed(t *testing.T) {
	a, err := newTestSampler(5).Generate(context.Background(), sourceDataset(), Config{TargetSizePct: 100})
	require.NoError(t, err)
	b, err := newTestSampler(5).Generate(context.Background(), sourceDataset(), Config{TargetSizePct: 100})
	require.NoError(t, err)
	assert.Equal(t, a.Dataset.Records, b.Dataset.Records)
}

func TestSamplerEmptySource(t *testing.T) {
	result, err := newTestSampler(1).Generate(context.Background(), models.NewDataset([]string{"age"}, nil), Config{TargetSizePct: 300})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Dataset.Len())
}

func TestSamplerValidation(t *testing.T) {
	_, err := newTestSampler(1).Generate(context.Background(), sourceDataset(), Config{TargetSizePct: -10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdcerrors.ErrInvalidTargetSize))

	_, err = newTestSampler(1).Generate(context.Background(), sourceDataset(), Config{Columns: []string{"zip"}, TargetSizePct: 100})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdcerrors.ErrUnknownColumn))
}

func TestSamplerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSampler(1).Generate(ctx, sourceDataset(), Config{TargetSizePct: 100})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
