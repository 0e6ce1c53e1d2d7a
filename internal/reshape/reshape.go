// Package reshape holds file-specific converters that turn selected SDE
// documents into long-format tables instead of one wide flattened table.
package reshape

import (
	"strconv"
	"strings"

	"github.com/agentic-research/sdeconv/internal/record"
	"github.com/agentic-research/sdeconv/internal/table"
)

// Reshaper converts one document root into one or more tables. The first
// table returned is the main output for the document.
type Reshaper interface {
	Name() string
	Reshape(stem string, root record.Value) ([]*table.Table, error)
}

type entry struct {
	match    string
	reshaper Reshaper
}

var registry []entry

// Register binds r to every document whose lower-cased file name contains
// match. Earlier registrations win.
func Register(match string, r Reshaper) {
	registry = append(registry, entry{match: strings.ToLower(match), reshaper: r})
}

// Lookup returns the reshaper for a file name, if any.
func Lookup(fileName string) (Reshaper, bool) {
	name := strings.ToLower(fileName)
	for _, e := range registry {
		if strings.Contains(name, e.match) {
			return e.reshaper, true
		}
	}
	return nil, false
}

func init() {
	Register("blueprints", Blueprints{})
	Register("typematerials", TypeMaterials{})
}

// entries iterates a keyed root (id -> record). A sequence root is accepted
// as well, keyed by position.
func entries(root record.Value) []record.Field {
	switch v := root.(type) {
	case *record.Mapping:
		return v.Fields
	case *record.Sequence:
		out := make([]record.Field, len(v.Items))
		for i, item := range v.Items {
			out[i] = record.Field{Key: strconv.Itoa(i), Value: item}
		}
		return out
	}
	return nil
}

func mapping(v record.Value, ok bool) *record.Mapping {
	if !ok {
		return nil
	}
	m, _ := v.(*record.Mapping)
	return m
}

func sequence(v record.Value, ok bool) []record.Value {
	if !ok {
		return nil
	}
	if s, isSeq := v.(*record.Sequence); isSeq {
		return s.Items
	}
	return nil
}

func field(m *record.Mapping, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	return record.Text(v)
}
