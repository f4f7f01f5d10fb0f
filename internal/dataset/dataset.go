// Package dataset holds the tabular data loaded from an uploaded CSV file:
// its columns, their inferred scalar types, and the rows themselves.
package dataset

import (
	"fmt"
	"strconv"
)

// ColumnType is the inferred scalar type of a column.
type ColumnType int

const (
	// TypeText is the fallback for any column that is not entirely numeric.
	TypeText ColumnType = iota
	// TypeInteger marks a column whose non-empty values all parse as int64.
	TypeInteger
	// TypeFloat marks a column whose non-empty values all parse as float64.
	TypeFloat
)

// String returns the label used in schema descriptions.
func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	default:
		return "text"
	}
}

// Column is a named, typed column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"-"`
}

// TypeName returns the column type label.
func (c Column) TypeName() string {
	return c.Type.String()
}

// Dataset is an ordered set of columns and the rows over them. Values are
// int64, float64, string, or nil for empty cells.
type Dataset struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, col := range d.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// Filter returns a new Dataset holding only the rows where column equals
// value, compared on the cell's display form. The receiver is not modified.
func (d *Dataset) Filter(column, value string) (*Dataset, error) {
	idx := d.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %q", column)
	}

	filtered := &Dataset{
		Name:    d.Name,
		Columns: append([]Column(nil), d.Columns...),
		Rows:    make([][]any, 0),
	}
	for _, row := range d.Rows {
		if FormatValue(row[idx]) == value {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered, nil
}

// Slice returns rows [offset, offset+limit) as a new Dataset. A limit <= 0
// means no upper bound.
func (d *Dataset) Slice(offset, limit int) *Dataset {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.Rows) {
		offset = len(d.Rows)
	}
	end := len(d.Rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return &Dataset{
		Name:    d.Name,
		Columns: append([]Column(nil), d.Columns...),
		Rows:    d.Rows[offset:end],
	}
}

// DistinctValues returns the distinct display values of a column in first-seen order.
func (d *Dataset) DistinctValues(column string) []string {
	idx := d.ColumnIndex(column)
	if idx < 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var values []string
	for _, row := range d.Rows {
		v := FormatValue(row[idx])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

// FormatValue renders a cell for display.
func FormatValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
