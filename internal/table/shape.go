package table

import (
	"strings"

	"github.com/agentic-research/sdeconv/internal/record"
)

// NonEnglishLocales are the translation suffixes found in SDE name and
// description fields.
var NonEnglishLocales = []string{"de", "fr", "ja", "ru", "zh", "ko", "es", "it"}

const englishSuffix = ".en"

// Shaper rewrites flat rows before a table's column set is derived.
type Shaper struct {
	// FoldLocales drops non-English translation columns and renames
	// "x.en" to "x" when no "x" column exists.
	FoldLocales bool
	// Exclude lists columns removed from every row.
	Exclude []string
}

// Apply rewrites rows in place and returns them.
func (s Shaper) Apply(rows []*record.Row) []*record.Row {
	if s.FoldLocales {
		foldLocales(rows)
	}
	if len(s.Exclude) > 0 {
		for _, r := range rows {
			for _, col := range s.Exclude {
				r.Delete(col)
			}
		}
	}
	return rows
}

func foldLocales(rows []*record.Row) {
	all := Union(rows)

	drop := make(map[string]bool)
	rename := make(map[string]string)
	for _, col := range all.names {
		if isForeignLocale(col) {
			drop[col] = true
			continue
		}
		if base, ok := strings.CutSuffix(col, englishSuffix); ok && base != "" && !all.Has(base) {
			rename[col] = base
		}
	}
	if len(drop) == 0 && len(rename) == 0 {
		return
	}

	for _, r := range rows {
		for _, col := range append([]string(nil), r.Columns()...) {
			if drop[col] {
				r.Delete(col)
			} else if base, ok := rename[col]; ok {
				r.Rename(col, base)
			}
		}
	}
}

func isForeignLocale(col string) bool {
	for _, loc := range NonEnglishLocales {
		if strings.HasSuffix(col, "."+loc) {
			return true
		}
	}
	return false
}
