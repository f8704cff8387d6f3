package models

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Record is a single row of microdata keyed by column name. Values are
// strings, numbers, booleans or nil.
type Record map[string]interface{}

// Clone returns a shallow copy of the record. Scalar values make this a full copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dataset is an ordered sequence of records sharing a declared column list.
type Dataset struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// NewDataset builds a dataset. When columns is empty they are taken from the
// first record in sorted order.
func NewDataset(columns []string, records []Record) *Dataset {
	if len(columns) == 0 && len(records) > 0 {
		columns = sortedKeys(records[0])
	}
	if records == nil {
		records = []Record{}
	}
	return &Dataset{Columns: columns, Records: records}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Clone deep-copies the dataset so the result can be transformed freely.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return NewDataset(nil, nil)
	}
	columns := append([]string(nil), d.Columns...)
	records := make([]Record, len(d.Records))
	for i, r := range d.Records {
		records[i] = r.Clone()
	}
	return &Dataset{Columns: columns, Records: records}
}

// HasColumn reports whether name is a declared column.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the names not declared in the dataset.
func (d *Dataset) MissingColumns(names []string) []string {
	var missing []string
	for _, n := range names {
		if !d.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// NumericColumns returns the declared columns whose first non-nil value is
// numeric. Missing leading cells do not hide a column.
func (d *Dataset) NumericColumns() []string {
	if d == nil {
		return nil
	}
	var cols []string
	for _, c := range d.Columns {
		if _, ok := IsNumeric(d.firstValue(c)); ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// StringColumns returns the declared columns whose first non-nil value is a
// string.
func (d *Dataset) StringColumns() []string {
	if d == nil {
		return nil
	}
	var cols []string
	for _, c := range d.Columns {
		if _, ok := d.firstValue(c).(string); ok {
			cols = append(cols, c)
		}
	}
	return cols
}

func (d *Dataset) firstValue(column string) interface{} {
	for _, r := range d.Records {
		if v := r[column]; v != nil {
			return v
		}
	}
	return nil
}

// Values returns the numeric values of column in record order, skipping
// cells that are not numeric.
func (d *Dataset) Values(column string) []float64 {
	values := make([]float64, 0, d.Len())
	for _, r := range d.Records {
		if f, ok := IsNumeric(r[column]); ok {
			values = append(values, f)
		}
	}
	return values
}

// IsNumeric reports whether v is a finite Go numeric value and returns it as
// float64. Strings are never numeric.
func IsNumeric(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatValue renders a cell as the string used for grouping and export.
// nil becomes the empty string.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
