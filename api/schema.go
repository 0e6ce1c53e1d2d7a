package api

// SchemaMap records, per output CSV file name, the ordered columns of that
// file. It is accumulated over a run and written once as schema_map.json.
type SchemaMap map[string][]string

// Add records the columns of file, replacing any earlier entry.
func (m SchemaMap) Add(file string, columns []string) {
	cols := make([]string, len(columns))
	copy(cols, columns)
	m[file] = cols
}

// ColumnStats records, per output file, how many rows populate each column.
// It is written as column_stats.json when requested.
type ColumnStats map[string]map[string]uint64

// Summary counts the outcome of a run.
type Summary struct {
	// Documents is the number of YAML files discovered.
	Documents int `json:"documents"`
	// Converted counts documents whose outputs were all written.
	Converted int `json:"converted"`
	// Skipped counts documents that were empty or failed to parse.
	Skipped int `json:"skipped"`
	// Failed counts documents with at least one failed write.
	Failed int `json:"failed"`
	// Tables is the number of CSV files written.
	Tables int `json:"tables"`
}
