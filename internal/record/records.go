package record

import "strconv"

// RootIDColumn holds the mapping key of a record taken from a keyed root.
const RootIDColumn = "root_id"

// Records splits a document root into records.
//
// A sequence root yields its items. A mapping root is treated as a keyed
// collection when keyed is set or when every key is an integer (the SDE
// convention for id-indexed files); each entry then becomes a record led by
// a root_id column. Any other root is a single record.
func Records(root Value, keyed bool) []Value {
	switch val := root.(type) {
	case *Sequence:
		return val.Items
	case *Mapping:
		if keyed || integerKeyed(val) {
			return keyedRecords(val)
		}
		return []Value{val}
	default:
		return []Value{root}
	}
}

func keyedRecords(m *Mapping) []Value {
	recs := make([]Value, 0, len(m.Fields))
	for _, f := range m.Fields {
		rec := &Mapping{Fields: []Field{{Key: RootIDColumn, Value: Scalar{Text: f.Key}}}}
		if inner, ok := f.Value.(*Mapping); ok {
			for _, field := range inner.Fields {
				if field.Key == RootIDColumn {
					continue
				}
				rec.Fields = append(rec.Fields, field)
			}
		} else {
			rec.Fields = append(rec.Fields, Field{Key: ValueColumn, Value: f.Value})
		}
		recs = append(recs, rec)
	}
	return recs
}

func integerKeyed(m *Mapping) bool {
	if len(m.Fields) == 0 {
		return false
	}
	for _, f := range m.Fields {
		if _, err := strconv.ParseInt(f.Key, 10, 64); err != nil {
			return false
		}
	}
	return true
}

// Concat merges the roots of a multi-document stream into one value:
// mappings are merged field by field, anything else is gathered into a
// sequence (sequence roots contribute their items).
func Concat(roots []Value) Value {
	if len(roots) == 1 {
		return roots[0]
	}

	allMappings := true
	for _, r := range roots {
		if _, ok := r.(*Mapping); !ok {
			allMappings = false
			break
		}
	}
	if allMappings {
		m := &Mapping{}
		for _, r := range roots {
			m.Fields = append(m.Fields, r.(*Mapping).Fields...)
		}
		return m
	}

	seq := &Sequence{}
	for _, r := range roots {
		if s, ok := r.(*Sequence); ok {
			seq.Items = append(seq.Items, s.Items...)
		} else {
			seq.Items = append(seq.Items, r)
		}
	}
	return seq
}
