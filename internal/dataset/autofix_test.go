package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/sdc/pkg/models"
)

func TestAutoFix(t *testing.T) {
	ds := &models.Dataset{
		Columns: []string{"city", "age"},
		Records: []models.Record{
			{"city": "New York", "age": 30.0},
			{"city": "new  york", "age": 40.0},
			{"city": "New York", "age": 30.0},
			{"city": "", "age": nil},
			{"city": "Boston", "age": 50.0},
		},
	}

	result, err := NewFixer(nil).AutoFix(context.Background(), ds)
	require.NoError(t, err)

	out := result.Dataset
	require.Len(t, out.Records, 4)
	assert.Equal(t, 1, result.DuplicatesRemoved)
	assert.Equal(t, 1, result.ValuesStandardized)
	assert.Equal(t, 2, result.MissingFilled)

	assert.Equal(t, "New York", out.Records[1]["city"])
	assert.Equal(t, UnknownValue, out.Records[2]["city"])
	assert.Equal(t, 40.0, out.Records[2]["age"])

	assert.Equal(t, []string{
		"Removed 1 duplicate records",
		"Standardized city: 3 unique values normalized to consistent casing",
		"Filled missing values with appropriate defaults",
	}, result.Fixes)

	assert.Equal(t, 1.0, result.Quality.CompletenessScore)
	assert.Equal(t, 0.99, result.Quality.QualityScore)

	assert.Len(t, ds.Records, 5)
	assert.Equal(t, "new  york", ds.Records[1]["city"])
}

func TestAutoFixCleanDataset(t *testing.T) {
	ds := &models.Dataset{
		Columns: []string{"city"},
		Records: []models.Record{{"city": "Boston"}, {"city": "Austin"}},
	}

	result, err := NewFixer(nil).AutoFix(context.Background(), ds)
	require.NoError(t, err)
	assert.Empty(t, result.Fixes)
	assert.Len(t, result.Dataset.Records, 2)
}

func TestAutoFixCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFixer(nil).AutoFix(ctx, &models.Dataset{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssessQuality(t *testing.T) {
	ds := &models.Dataset{
		Columns: []string{"a", "b"},
		Records: []models.Record{
			{"a": 1, "b": ""},
			{"a": 1, "b": ""},
		},
	}

	report := AssessQuality(ds)
	assert.Equal(t, 4, report.TotalCells)
	assert.Equal(t, 2, report.FilledCells)
	assert.Equal(t, 1, report.DuplicateRows)
	assert.Equal(t, 0.5, report.CompletenessScore)
	assert.InDelta(t, 0.6, report.QualityScore, 1e-12)

	assert.Zero(t, AssessQuality(nil).QualityScore)
}
