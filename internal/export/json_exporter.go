package export

import (
	"context"
	"encoding/json"
	"io"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/models"
)

// JSONExporter writes records as a JSON array of objects
type JSONExporter struct {
	PrettyPrint bool
}

// Format returns the exporter format
func (je *JSONExporter) Format() ExportFormat {
	return FormatJSON
}

// ContentType returns the MIME type of the output
func (je *JSONExporter) ContentType() string {
	return constants.ContentTypeJSON
}

// Export exports the dataset records
func (je *JSONExporter) Export(ctx context.Context, writer io.Writer, ds *models.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records := []models.Record{}
	if ds != nil && ds.Records != nil {
		records = ds.Records
	}

	encoder := json.NewEncoder(writer)
	if je.PrettyPrint {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(records)
}
