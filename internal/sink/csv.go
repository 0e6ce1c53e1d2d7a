// Package sink writes converted tables and the run's index files.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"

	billy "github.com/go-git/go-billy/v5"

	"github.com/agentic-research/sdeconv/internal/table"
)

const emptyRecord = "\"\"\n"

// TableWriter persists one table.
type TableWriter interface {
	WriteTable(t *table.Table) error
}

// CSVWriter writes tables as UTF-8, comma-delimited CSV files at the root
// of a filesystem.
type CSVWriter struct {
	FS billy.Filesystem
}

func NewCSVWriter(fs billy.Filesystem) *CSVWriter {
	return &CSVWriter{FS: fs}
}

// WriteTable writes the header and every row. A partially written file is
// removed on failure.
func (w *CSVWriter) WriteTable(t *table.Table) (err error) {
	f, err := w.FS.Create(t.Name)
	if err != nil {
		return fmt.Errorf("create %s: %w", t.Name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", t.Name, cerr)
		}
		if err != nil {
			_ = w.FS.Remove(t.Name)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Columns.Names()); err != nil {
		return fmt.Errorf("write header %s: %w", t.Name, err)
	}
	for i := range t.Rows {
		rec := t.Record(i)
		if len(rec) == 1 && rec[0] == "" {
			// encoding/csv writes a lone empty field as a blank line, which
			// readers skip.
			cw.Flush()
			if _, err := io.WriteString(f, emptyRecord); err != nil {
				return fmt.Errorf("write row %d of %s: %w", i, t.Name, err)
			}
			continue
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i, t.Name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", t.Name, err)
	}
	return nil
}

var _ TableWriter = (*CSVWriter)(nil)
