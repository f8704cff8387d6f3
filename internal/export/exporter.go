package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

// ExportFormat names a serialization of a dataset
type ExportFormat string

const (
	FormatCSV  ExportFormat = constants.FormatCSV
	FormatJSON ExportFormat = constants.FormatJSON
)

// Exporter writes a dataset in one format
type Exporter interface {
	Format() ExportFormat
	ContentType() string
	Export(ctx context.Context, w io.Writer, ds *models.Dataset) error
}

// Registry resolves exporters by format
type Registry struct {
	exporters map[ExportFormat]Exporter
}

// NewRegistry returns a registry with the CSV and JSON exporters
func NewRegistry() *Registry {
	r := &Registry{exporters: make(map[ExportFormat]Exporter)}
	r.Register(&CSVExporter{})
	r.Register(&JSONExporter{})
	return r
}

// Register adds or replaces the exporter for its format
func (r *Registry) Register(exporter Exporter) {
	r.exporters[exporter.Format()] = exporter
}

// Get returns the exporter for format; an empty format means CSV
func (r *Registry) Get(format string) (Exporter, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(format)))
	if f == "" {
		f = FormatCSV
	}

	exporter, ok := r.exporters[f]
	if !ok {
		return nil, errors.InvalidArgument(errors.ErrInvalidFormat, errors.CodeInvalidFormat,
			fmt.Sprintf("unsupported export format %q", format))
	}
	return exporter, nil
}

// Formats lists the registered formats
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.exporters))
	for f := range r.exporters {
		formats = append(formats, string(f))
	}
	sort.Strings(formats)
	return formats
}

// Filename builds the download name of an anonymized dataset
func Filename(operationID string, format ExportFormat) string {
	return fmt.Sprintf("anonymized_%s.%s", operationID, format)
}

// headerColumns returns the declared columns, or the sorted union of record
// keys when none are declared.
func headerColumns(ds *models.Dataset) []string {
	if len(ds.Columns) > 0 {
		return ds.Columns
	}

	seen := make(map[string]struct{})
	for _, rec := range ds.Records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}
