package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/models"
)

// CSVExporter implements CSV export functionality
type CSVExporter struct {
	// Delimiter defaults to a comma
	Delimiter rune
}

// Format returns the exporter format
func (ce *CSVExporter) Format() ExportFormat {
	return FormatCSV
}

// ContentType returns the MIME type of the output
func (ce *CSVExporter) ContentType() string {
	return constants.ContentTypeCSV
}

// Export writes a header row followed by one row per record. Missing and
// nil values become empty cells.
func (ce *CSVExporter) Export(ctx context.Context, writer io.Writer, ds *models.Dataset) error {
	csvWriter := csv.NewWriter(writer)
	if ce.Delimiter != 0 {
		csvWriter.Comma = ce.Delimiter
	}

	if ds == nil {
		ds = models.NewDataset(nil, nil)
	}

	headers := headerColumns(ds)
	if err := csvWriter.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	row := make([]string, len(headers))
	for i, rec := range ds.Records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		for j, col := range headers {
			row[j] = models.FormatValue(rec[col])
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
