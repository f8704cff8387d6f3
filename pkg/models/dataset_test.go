package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNumeric(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want float64
		ok   bool
	}{
		{"float64", 3.5, 3.5, true},
		{"int", 42, 42, true},
		{"int64", int64(-7), -7, true},
		{"uint8", uint8(9), 9, true},
		{"float32", float32(1.5), 1.5, true},
		{"string", "42", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
		{"nan", math.NaN(), 0, false},
		{"inf", math.Inf(1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IsNumeric(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "abc", FormatValue("abc"))
	assert.Equal(t, "30", FormatValue(30.0))
	assert.Equal(t, "30.25", FormatValue(30.25))
	assert.Equal(t, "12", FormatValue(12))
	assert.Equal(t, "true", FormatValue(true))
}

func TestDatasetClone(t *testing.T) {
	ds := NewDataset([]string{"age"}, []Record{{"age": 30.0}})
	clone := ds.Clone()
	clone.Records[0]["age"] = 99.0
	clone.Columns[0] = "changed"

	assert.Equal(t, 30.0, ds.Records[0]["age"])
	assert.Equal(t, "age", ds.Columns[0])
}

func TestNewDatasetInfersColumns(t *testing.T) {
	ds := NewDataset(nil, []Record{{"zip": "1", "age": 3.0}})
	assert.Equal(t, []string{"age", "zip"}, ds.Columns)

	empty := NewDataset(nil, nil)
	require.NotNil(t, empty.Records)
	assert.Equal(t, 0, empty.Len())
}

func TestColumnDetection(t *testing.T) {
	ds := NewDataset([]string{"age", "zip", "flag"}, []Record{
		{"age": 30.0, "zip": "12345", "flag": true},
		{"age": "n/a", "zip": "12345", "flag": false},
	})

	assert.Equal(t, []string{"age"}, ds.NumericColumns())
	assert.Equal(t, []string{"zip"}, ds.StringColumns())
	assert.Equal(t, []float64{30}, ds.Values("age"))
	assert.Equal(t, []string{"missing"}, ds.MissingColumns([]string{"age", "missing"}))
}

func TestColumnDetectionSkipsLeadingNils(t *testing.T) {
	ds := NewDataset([]string{"income", "city"}, []Record{
		{"income": nil, "city": nil},
		{"income": 1200.0, "city": "Oslo"},
	})

	assert.Equal(t, []string{"income"}, ds.NumericColumns())
	assert.Equal(t, []string{"city"}, ds.StringColumns())
	assert.Empty(t, NewDataset([]string{"x"}, nil).NumericColumns())
}
