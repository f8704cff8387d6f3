package privacy

import (
	"fmt"
	"strings"

	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

// keySeparator joins per attribute values into a class key. The ASCII unit
// separator does not occur in tabular microdata.
const keySeparator = "\x1f"

// EquivalenceClass groups the records that share identical quasi-identifier values.
type EquivalenceClass struct {
	Key     string
	Values  []string
	Records []models.Record
	Size    int
	Risk    float64
}

// Summary drops the member records.
func (c *EquivalenceClass) Summary() models.EquivalenceClassSummary {
	return models.EquivalenceClassSummary{
		Key:    strings.Join(c.Values, "|"),
		Values: c.Values,
		Size:   c.Size,
		Risk:   c.Risk,
	}
}

// BuildEquivalenceClasses partitions every record of ds by its
// quasi-identifier tuple. Classes are returned in first-seen order.
func BuildEquivalenceClasses(ds *models.Dataset, quasiIdentifiers []string) ([]*EquivalenceClass, error) {
	if len(quasiIdentifiers) == 0 {
		return nil, errors.InvalidArgument(errors.ErrEmptyQuasiIdentifiers, errors.CodeEmptyQuasiIdentifiers,
			"at least one quasi-identifier is required")
	}

	classMap := make(map[string]*EquivalenceClass)
	var classes []*EquivalenceClass

	for _, record := range datasetRecords(ds) {
		values := quasiIdentifierValues(record, quasiIdentifiers)
		key := strings.Join(values, keySeparator)

		if class, exists := classMap[key]; exists {
			class.Records = append(class.Records, record)
			class.Size++
			continue
		}

		class := &EquivalenceClass{
			Key:     key,
			Values:  values,
			Records: []models.Record{record},
			Size:    1,
		}
		classMap[key] = class
		classes = append(classes, class)
	}

	return classes, nil
}

func quasiIdentifierValues(record models.Record, quasiIdentifiers []string) []string {
	values := make([]string, len(quasiIdentifiers))
	for i, qi := range quasiIdentifiers {
		values[i] = models.FormatValue(record[qi])
	}
	return values
}

func datasetRecords(ds *models.Dataset) []models.Record {
	if ds == nil {
		return nil
	}
	return ds.Records
}

// checkColumns rejects attribute names the dataset does not declare. Datasets
// without a declared column list are not checked.
func checkColumns(ds *models.Dataset, names ...string) error {
	if ds == nil || len(ds.Columns) == 0 {
		return nil
	}
	if missing := ds.MissingColumns(names); len(missing) > 0 {
		return errors.InvalidArgument(errors.ErrUnknownColumn, errors.CodeUnknownColumn,
			fmt.Sprintf("unknown column(s): %s", strings.Join(missing, ", ")))
	}
	return nil
}

func totalRecords(classes []*EquivalenceClass) int {
	total := 0
	for _, c := range classes {
		total += c.Size
	}
	return total
}

func orEmpty(ds *models.Dataset) *models.Dataset {
	if ds == nil {
		return models.NewDataset(nil, nil)
	}
	return ds
}
