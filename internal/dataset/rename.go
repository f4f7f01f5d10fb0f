package dataset

import (
	"errors"
	"fmt"
)

// ErrColumnCount is returned by positional renaming when the uploaded file
// does not have exactly as many columns as the canonical schema.
var ErrColumnCount = errors.New("column count does not match canonical schema")

// Rename modes.
const (
	RenamePositional = "positional"
	RenameMapping    = "mapping"
	RenameNone       = "none"
)

// CanonicalColumns is the fixed schema every upload is coerced to by default.
var CanonicalColumns = []string{
	"Page title and screen name",
	"Country",
	"Views",
	"Users",
	"Views per user",
	"Average engagement time",
	"Event count",
	"Key events",
}

// Renamer rewrites column names right after a file is loaded.
type Renamer struct {
	Mode      string
	Canonical []string
	Mapping   map[string]string
}

// DefaultRenamer forces the canonical eight columns by position.
func DefaultRenamer() Renamer {
	return Renamer{Mode: RenamePositional, Canonical: CanonicalColumns}
}

// Apply renames the columns of d in place.
func (r Renamer) Apply(d *Dataset) error {
	switch r.Mode {
	case "", RenamePositional:
		canonical := r.Canonical
		if len(canonical) == 0 {
			canonical = CanonicalColumns
		}
		if len(d.Columns) != len(canonical) {
			return fmt.Errorf("%w: file has %d columns, expected %d", ErrColumnCount, len(d.Columns), len(canonical))
		}
		for i := range d.Columns {
			d.Columns[i].Name = canonical[i]
		}
	case RenameMapping:
		for i, col := range d.Columns {
			if target, ok := r.Mapping[col.Name]; ok && target != "" {
				d.Columns[i].Name = target
			}
		}
	case RenameNone:
	default:
		return fmt.Errorf("unknown rename mode %q", r.Mode)
	}
	return nil
}
