package sink

import (
	"bytes"
	"encoding/json"
	"fmt"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Index file names written next to the CSV outputs.
const (
	SchemaMapFile = "schema_map.json"
	StatsFile     = "column_stats.json"
	ErrorLogFile  = "conversion_errors.log"
)

// WriteJSON writes v as indented JSON. Map keys come out sorted.
func WriteJSON(fs billy.Filesystem, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	data = append(data, '\n')
	if err := util.WriteFile(fs, name, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// WriteErrorLog writes one line per error.
func WriteErrorLog(fs billy.Filesystem, name string, errs []error) error {
	var buf bytes.Buffer
	buf.WriteString("Errors:\n")
	for _, e := range errs {
		fmt.Fprintf(&buf, "- %v\n", e)
	}
	if err := util.WriteFile(fs, name, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
