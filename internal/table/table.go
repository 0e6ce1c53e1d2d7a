package table

import (
	"path"
	"strings"

	"github.com/agentic-research/sdeconv/internal/record"
)

// Table is one output file: a name, its rows, and their column set.
type Table struct {
	// Name is the output file name, e.g. "types.csv".
	Name    string
	Columns *ColumnSet
	Rows    []*record.Row
}

// New builds a table from rows. The column set is derived from the rows as
// given, so any shaping must happen before. Columns no row populates are
// left out.
func New(name string, rows []*record.Row) *Table {
	cs := Union(rows)
	cs.Prune()
	return &Table{
		Name:    name,
		Columns: cs,
		Rows:    rows,
	}
}

// NewWithColumns builds a table whose column set starts with cols, so a
// table without rows still carries a header.
func NewWithColumns(name string, cols []string, rows []*record.Row) *Table {
	cs := NewColumnSet()
	for _, col := range cols {
		cs.add(col)
	}
	for _, r := range rows {
		cs.Observe(r)
	}
	return &Table{Name: name, Columns: cs, Rows: rows}
}

// Stem returns the table name without its extension.
func (t *Table) Stem() string {
	return strings.TrimSuffix(t.Name, path.Ext(t.Name))
}

// Record returns row i laid out in column order, with missing columns as
// empty strings.
func (t *Table) Record(i int) []string {
	names := t.Columns.names
	out := make([]string, len(names))
	r := t.Rows[i]
	for j, col := range names {
		if v, ok := r.Get(col); ok {
			out[j] = v
		}
	}
	return out
}
