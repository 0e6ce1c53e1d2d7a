package sink

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/sdeconv/internal/table"
)

// SQLiteWriter loads every table into a SQLite database, one TEXT-column
// table per CSV named after the CSV stem. Empty fields are stored as NULL.
type SQLiteWriter struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteWriter opens (or creates) the database at dbPath.
func NewSQLiteWriter(dbPath string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Bulk load; durability comes from rerunning the conversion.
	for _, pragma := range []string{
		"PRAGMA synchronous = OFF",
		"PRAGMA journal_mode = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &SQLiteWriter{db: db}, nil
}

// WriteTable replaces the table named after t's stem with t's rows.
// Tables without columns are skipped.
func (w *SQLiteWriter) WriteTable(t *table.Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cols := t.Columns.Names()
	if len(cols) == 0 {
		return nil
	}
	name := quoteIdent(t.Stem())

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c) + " TEXT"
		marks[i] = "?"
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin %s: %w", t.Stem(), err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if _, err := tx.Exec("DROP TABLE IF EXISTS " + name); err != nil {
		return fmt.Errorf("drop %s: %w", t.Stem(), err)
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(quoted, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", t.Stem(), err)
	}

	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (%s)", name, strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", t.Stem(), err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(cols))
	for i := range t.Rows {
		for j, v := range t.Record(i) {
			if v == "" {
				args[j] = nil
			} else {
				args[j] = v
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert row %d into %s: %w", i, t.Stem(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", t.Stem(), err)
	}
	return nil
}

// Close closes the database.
func (w *SQLiteWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.db.Close()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

var _ TableWriter = (*SQLiteWriter)(nil)
