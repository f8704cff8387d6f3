package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

// Load parses r in the given format ("csv" or "json")
func Load(r io.Reader, format string) (*models.Dataset, error) {
	switch strings.ToLower(format) {
	case constants.FormatCSV:
		return LoadCSV(r)
	case constants.FormatJSON:
		return LoadJSON(r)
	default:
		return nil, errors.InvalidArgument(errors.ErrInvalidFormat, errors.CodeInvalidFormat,
			fmt.Sprintf("unsupported dataset format %q", format))
	}
}

// FormatFromFilename infers the dataset format from a file extension
func FormatFromFilename(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case constants.ExtCSV:
		return constants.FormatCSV, nil
	case constants.ExtJSON:
		return constants.FormatJSON, nil
	default:
		return "", errors.InvalidArgument(errors.ErrInvalidFormat, errors.CodeInvalidFormat,
			fmt.Sprintf("cannot infer dataset format of %q", name))
	}
}

// LoadCSV reads a headed CSV. Header order becomes column order, blank
// lines are skipped, empty cells load as nil and cells that parse as finite
// numbers load as float64.
func LoadCSV(r io.Reader) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return models.NewDataset([]string{}, nil), nil
	}
	if err != nil {
		return nil, invalidInput("failed to read CSV header", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	records := make([]models.Record, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, invalidInput("failed to read CSV row", err)
		}

		rec := make(models.Record, len(columns))
		for i, col := range columns {
			if i < len(row) {
				rec[col] = ParseCell(row[i])
			} else {
				rec[col] = nil
			}
		}
		records = append(records, rec)
	}

	return models.NewDataset(columns, records), nil
}

// LoadJSON reads an array of objects. Numbers load as float64.
func LoadJSON(r io.Reader) (*models.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, invalidInput("failed to read JSON", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.NewDataset([]string{}, nil), nil
	}

	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, invalidInput("dataset JSON must be an array of objects", err)
	}

	return models.NewDataset(nil, records), nil
}

// ParseCell converts one CSV cell to its dynamic type
func ParseCell(cell string) interface{} {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return cell
}

func invalidInput(message string, cause error) error {
	return errors.WrapError(cause, errors.ErrorTypeValidation, errors.CodeInvalidInput, message).
		WithDetails(cause.Error())
}
