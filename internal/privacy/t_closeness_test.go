package privacy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/sdc/pkg/constants"
	sdcerrors "github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

func skewedDataset() *models.Dataset {
	return models.NewDataset([]string{"zip", "disease"}, []models.Record{
		{"zip": "1", "disease": "a"},
		{"zip": "1", "disease": "a"},
		{"zip": "2", "disease": "b"},
		{"zip": "2", "disease": "b"},
	})
}

func TestEarthMoversDistanceCategorical(t *testing.T) {
	ds := skewedDataset()
	global := NewDistribution(ds.Records, "disease")
	require.False(t, global.Numeric)

	class := global.Restrict(ds.Records[:2], "disease")
	assert.InDelta(t, 0.5, EarthMoversDistance(class, global), 1e-12)
	assert.InDelta(t, 0.0, EarthMoversDistance(global, global), 1e-12)
}

func TestEarthMoversDistanceOrdered(t *testing.T) {
	records := []models.Record{{"salary": 3.0}, {"salary": 1.0}, {"salary": 2.0}}
	global := NewDistribution(records, "salary")
	require.True(t, global.Numeric)
	assert.Equal(t, []string{"1", "2", "3"}, global.Order)

	lowest := global.Restrict(records[1:2], "salary")
	assert.InDelta(t, 0.5, EarthMoversDistance(lowest, global), 1e-12)

	highest := global.Restrict(records[:1], "salary")
	assert.InDelta(t, 0.5, EarthMoversDistance(highest, global), 1e-12)

	middle := global.Restrict(records[2:], "salary")
	assert.InDelta(t, 1.0/3.0, EarthMoversDistance(middle, global), 1e-12)
}

func TestEarthMoversDistanceSingleValue(t *testing.T) {
	records := []models.Record{{"x": "a"}, {"x": "a"}}
	global := NewDistribution(records, "x")
	assert.Equal(t, 0.0, EarthMoversDistance(global, global))
}

func TestTClosenessMergesToGlobal(t *testing.T) {
	result, err := NewTClosenessAnonymizer(nil).Apply(context.Background(), skewedDataset(), TClosenessConfig{
		QuasiIdentifiers:   []string{"zip"},
		SensitiveAttribute: "disease",
		T:                  0.4,
	})
	require.NoError(t, err)

	assert.Equal(t, constants.TechniqueTCloseness, result.Technique)
	assert.Equal(t, 4, result.RecordsGeneralized)
	assert.True(t, result.Compliant)
	assert.InDelta(t, 0.0, result.MaxDistance, 1e-12)
	for _, r := range result.Dataset.Records {
		assert.Equal(t, constants.GeneralizedMarker, r["zip"])
	}
}

func TestTClosenessSuppressThenGeneralize(t *testing.T) {
	result, err := NewTClosenessAnonymizer(nil).Apply(context.Background(), skewedDataset(), TClosenessConfig{
		QuasiIdentifiers:   []string{"zip"},
		SensitiveAttribute: "disease",
		T:                  0.4,
		SuppressionLimit:   0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.RecordsSuppressed)
	assert.Equal(t, 2, result.RecordsGeneralized)
	assert.Equal(t, 0.5, result.InformationLoss)
	assert.False(t, result.Compliant)
	assert.InDelta(t, 0.5, result.MaxDistance, 1e-12)
}

func TestTClosenessKeepsCloseClasses(t *testing.T) {
	ds := models.NewDataset([]string{"zip", "disease"}, []models.Record{
		{"zip": "1", "disease": "a"},
		{"zip": "1", "disease": "b"},
		{"zip": "2", "disease": "a"},
		{"zip": "2", "disease": "b"},
	})

	result, err := NewTClosenessAnonymizer(nil).Apply(context.Background(), ds, TClosenessConfig{
		QuasiIdentifiers:   []string{"zip"},
		SensitiveAttribute: "disease",
		T:                  0,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.RecordsGeneralized)
	assert.Equal(t, 0, result.RecordsSuppressed)
	assert.Equal(t, ds.Records, result.Dataset.Records)
}

func TestTClosenessValidation(t *testing.T) {
	tests := []struct {
		name   string
		config TClosenessConfig
		want   error
	}{
		{"no quasi-identifiers", TClosenessConfig{SensitiveAttribute: "disease", T: 0.2}, sdcerrors.ErrEmptyQuasiIdentifiers},
		{"no sensitive", TClosenessConfig{QuasiIdentifiers: []string{"zip"}, T: 0.2}, sdcerrors.ErrMissingSensitive},
		{"negative t", TClosenessConfig{QuasiIdentifiers: []string{"zip"}, SensitiveAttribute: "disease", T: -1}, sdcerrors.ErrInvalidT},
		{"t above one", TClosenessConfig{QuasiIdentifiers: []string{"zip"}, SensitiveAttribute: "disease", T: 1.5}, sdcerrors.ErrInvalidT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTClosenessAnonymizer(nil).Apply(context.Background(), skewedDataset(), tt.config)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
