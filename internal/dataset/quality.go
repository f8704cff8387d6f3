package dataset

import (
	"encoding/json"
	"math"

	"github.com/inferloop/sdc/pkg/models"
)

// QualityReport summarizes dataset completeness and duplication
type QualityReport struct {
	TotalCells        int     `json:"total_cells"`
	FilledCells       int     `json:"filled_cells"`
	DuplicateRows     int     `json:"duplicate_rows"`
	CompletenessScore float64 `json:"completeness_score"`
	QualityScore      float64 `json:"quality_score"`
}

// AssessQuality counts filled cells over the declared columns and exact
// duplicate rows.
func AssessQuality(ds *models.Dataset) QualityReport {
	var report QualityReport
	if ds == nil {
		return report
	}

	seen := make(map[string]struct{}, len(ds.Records))
	for _, rec := range ds.Records {
		for _, col := range ds.Columns {
			report.TotalCells++
			if !IsMissing(rec[col]) {
				report.FilledCells++
			}
		}

		sig := signature(rec)
		if _, dup := seen[sig]; dup {
			report.DuplicateRows++
		} else {
			seen[sig] = struct{}{}
		}
	}

	if report.TotalCells > 0 {
		report.CompletenessScore = float64(report.FilledCells) / float64(report.TotalCells)
	}
	report.QualityScore = math.Min(0.99, report.CompletenessScore+0.1)
	if report.TotalCells == 0 {
		report.QualityScore = 0
	}

	return report
}

// IsMissing reports nil and empty-string values
func IsMissing(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// signature identifies a record by content; encoding/json sorts map keys,
// so equal records produce equal signatures.
func signature(rec models.Record) string {
	b, err := json.Marshal(rec)
	if err != nil {
		return models.FormatValue(rec)
	}
	return string(b)
}
