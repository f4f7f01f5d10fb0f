package dataset

import "strings"

// Summarize renders the schema description of a Dataset as
// "col1 (type1), col2 (type2)". A Dataset without columns yields "".
func Summarize(d *Dataset) string {
	if d == nil || len(d.Columns) == 0 {
		return ""
	}
	parts := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		parts[i] = col.Name + " (" + col.TypeName() + ")"
	}
	return strings.Join(parts, ", ")
}
