package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/sdc/pkg/constants"
	sdcerrors "github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

func surveyDataset() *models.Dataset {
	records := make([]models.Record, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, models.Record{
			"age":    float64(20 + 3*i),
			"income": float64(1000 + 250*i + (i%3)*40),
			"city":   []string{"Oslo", "Bergen"}[i%2],
		})
	}
	return models.NewDataset([]string{"age", "income", "city"}, records)
}

func floatPtr(v float64) *float64 { return &v }

func TestMeasureIdentity(t *testing.T) {
	ds := surveyDataset()

	m, err := NewUtilityComparator(nil).Measure(ds, ds.Clone(), UtilityOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, m.StatisticalSimilarity)
	assert.InDelta(t, 1.0, m.CorrelationPreservation, 1e-12)
	assert.Equal(t, 1.0, m.DistributionSimilarity)
	assert.Equal(t, 0.0, m.InformationLoss)
	assert.InDelta(t, 1.0, m.OverallUtility, 1e-12)
	assert.Equal(t, constants.UtilityLevelExcellent, m.UtilityLevel)
	require.Len(t, m.Columns, 2)
	assert.Equal(t, "age", m.Columns[0].Column)
}

func TestMeasureMeanShift(t *testing.T) {
	original := models.NewDataset([]string{"x"}, []models.Record{{"x": 10.0}, {"x": 10.0}})
	processed := models.NewDataset([]string{"x"}, []models.Record{{"x": 12.0}, {"x": 12.0}})

	m, err := NewUtilityComparator(nil).Measure(original, processed, UtilityOptions{
		CorrelationPreservation: floatPtr(1),
		DistributionSimilarity:  floatPtr(1),
		InformationLoss:         floatPtr(0.4),
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.8, m.StatisticalSimilarity, 1e-12)
	assert.InDelta(t, 0.85, m.OverallUtility, 1e-12)
	assert.Equal(t, constants.UtilityLevelGood, m.UtilityLevel)
}

func TestMeasureWorstColumnDominates(t *testing.T) {
	original := models.NewDataset([]string{"a", "b"}, []models.Record{{"a": 10.0, "b": 10.0}})
	processed := models.NewDataset([]string{"a", "b"}, []models.Record{{"a": 10.0, "b": 35.0}})

	m, err := NewUtilityComparator(nil).Measure(original, processed, UtilityOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, m.Columns[0].Preservation)
	assert.Equal(t, 0.0, m.Columns[1].Preservation)
	assert.Equal(t, 0.0, m.StatisticalSimilarity)
}

func TestMeasureZeroMean(t *testing.T) {
	original := models.NewDataset([]string{"x"}, []models.Record{{"x": -1.0}, {"x": 1.0}})

	same, err := NewUtilityComparator(nil).Measure(original, original, UtilityOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, same.StatisticalSimilarity)

	shifted := models.NewDataset([]string{"x"}, []models.Record{{"x": -0.5}, {"x": 1.5}})
	m, err := NewUtilityComparator(nil).Measure(original, shifted, UtilityOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.Columns[0].ProcessedMean, 1e-12)
	assert.Equal(t, 1.0, m.Columns[0].Preservation)
	assert.Equal(t, 1.0, m.StatisticalSimilarity)
}

func TestMeasureZeroMeanLargeScaleColumn(t *testing.T) {
	original := models.NewDataset([]string{"delta", "y"}, []models.Record{
		{"delta": -1000.0, "y": 10.0},
		{"delta": 1000.0, "y": 10.0},
	})
	processed := models.NewDataset([]string{"delta", "y"}, []models.Record{
		{"delta": -999.0, "y": 9.0},
		{"delta": 1001.0, "y": 9.0},
	})

	m, err := NewUtilityComparator(nil).Measure(original, processed, UtilityOptions{
		NumericColumns: []string{"delta", "y"},
	})
	require.NoError(t, err)

	// only the non-zero-mean column sets the minimum
	assert.InDelta(t, 0.9, m.StatisticalSimilarity, 1e-12)
	assert.Equal(t, 1.0, m.Columns[0].Preservation)
}

func TestMeasureEmptyProcessed(t *testing.T) {
	m, err := NewUtilityComparator(nil).Measure(surveyDataset(), models.NewDataset(nil, nil), UtilityOptions{
		InformationLoss: floatPtr(1),
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.StatisticalSimilarity)
	assert.Equal(t, 0.0, m.DistributionSimilarity)
	assert.Equal(t, constants.UtilityLevelPoor, m.UtilityLevel)
}

func TestMeasureNoNumericColumns(t *testing.T) {
	ds := models.NewDataset([]string{"city"}, []models.Record{{"city": "Oslo"}})

	m, err := NewUtilityComparator(nil).Measure(ds, ds, UtilityOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.OverallUtility)
	assert.Empty(t, m.Columns)
}

func TestMeasureValidation(t *testing.T) {
	_, err := NewUtilityComparator(nil).Measure(surveyDataset(), surveyDataset(), UtilityOptions{InformationLoss: floatPtr(1.5)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdcerrors.ErrInvalidScore))

	_, err = NewUtilityComparator(nil).Measure(surveyDataset(), surveyDataset(), UtilityOptions{NumericColumns: []string{"salary"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdcerrors.ErrUnknownColumn))
}

func TestCorrelationPreservation(t *testing.T) {
	original := models.NewDataset([]string{"x", "y"}, []models.Record{
		{"x": 1.0, "y": 1.0}, {"x": 2.0, "y": 2.0}, {"x": 3.0, "y": 3.0},
	})
	inverted := models.NewDataset([]string{"x", "y"}, []models.Record{
		{"x": 1.0, "y": 3.0}, {"x": 2.0, "y": 2.0}, {"x": 3.0, "y": 1.0},
	})

	assert.InDelta(t, 1.0, CorrelationPreservation(original, original, []string{"x", "y"}), 1e-12)
	assert.InDelta(t, 0.0, CorrelationPreservation(original, inverted, []string{"x", "y"}), 1e-12)
	assert.Equal(t, 1.0, CorrelationPreservation(original, inverted, []string{"x"}))
}

func TestDistributionSimilarity(t *testing.T) {
	a := models.NewDataset([]string{"x"}, []models.Record{{"x": 1.0}, {"x": 2.0}})
	b := models.NewDataset([]string{"x"}, []models.Record{{"x": 10.0}, {"x": 20.0}})

	assert.Equal(t, 1.0, DistributionSimilarity(a, a, []string{"x"}))
	assert.Equal(t, 0.0, DistributionSimilarity(a, b, []string{"x"}))
	assert.Equal(t, 1.0, DistributionSimilarity(a, b, nil))
}

func TestUtilityLevel(t *testing.T) {
	tests := []struct {
		utility float64
		want    string
	}{
		{1, constants.UtilityLevelExcellent},
		{0.9, constants.UtilityLevelExcellent},
		{0.8999, constants.UtilityLevelGood},
		{0.75, constants.UtilityLevelGood},
		{0.7499, constants.UtilityLevelFair},
		{0.5, constants.UtilityLevelFair},
		{0.4999, constants.UtilityLevelPoor},
		{0, constants.UtilityLevelPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, UtilityLevel(tt.utility), "utility %v", tt.utility)
	}
}
