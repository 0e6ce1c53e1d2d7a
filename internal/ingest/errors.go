package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocuments is returned when discovery finds no YAML files.
	ErrNoDocuments = errors.New("no YAML files found")
	// ErrEmptyDocument marks a YAML file with no content.
	ErrEmptyDocument = errors.New("empty document")
)

// ParseError means a document could not be read or parsed. The document is
// skipped and the run continues.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WriteError means an output could not be written. The document is counted
// as failed and the run continues.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: write failed: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ConfigError aborts a run before any document is processed.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
