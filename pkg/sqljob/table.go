package sqljob

import (
	"encoding/gob"
	"time"
)

func init() {
	// Column values travel through interface slots in the binary artifact;
	// time.Time is the only driver type gob cannot encode without
	// registration.
	gob.Register(time.Time{})
}

// Table is an in-memory result set. Row values keep the concrete Go types
// produced by the driver (int64, float64, bool, string, []byte, time.Time,
// nil), so the binary artifact round-trips without loss.
type Table struct {
	Columns []string
	Rows    [][]any

	// Truncated is set when rows were dropped to honor the retained-row
	// bound. The tabular artifact on disk always holds the full set.
	Truncated bool
}

// RowCount returns the number of retained rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}
