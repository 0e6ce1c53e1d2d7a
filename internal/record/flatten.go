package record

import "strconv"

// ValueColumn names the single column of a record that is a bare scalar.
const ValueColumn = "value"

// Flatten turns one record into a flat row. Nested mappings contribute
// "k.sub" columns, sequences contribute "k.0", "k.1", ... and scalars are
// stored under their full path. Empty containers, nulls and empty strings
// contribute nothing, since a CSV cell cannot tell them apart from a
// missing value.
func Flatten(rec Value) *Row {
	row := NewRow()
	if s, ok := rec.(Scalar); ok {
		if !s.blank() {
			row.Set(ValueColumn, s.Text)
		}
		return row
	}
	flattenInto(row, "", rec)
	return row
}

// FlattenAll flattens every record in order.
func FlattenAll(recs []Value) []*Row {
	rows := make([]*Row, len(recs))
	for i, rec := range recs {
		rows[i] = Flatten(rec)
	}
	return rows
}

func flattenInto(row *Row, prefix string, v Value) {
	switch val := v.(type) {
	case Scalar:
		if !val.blank() {
			row.Set(prefix, val.Text)
		}
	case *Mapping:
		for _, f := range val.Fields {
			flattenInto(row, join(prefix, f.Key), f.Value)
		}
	case *Sequence:
		for i, item := range val.Items {
			flattenInto(row, join(prefix, strconv.Itoa(i)), item)
		}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func (s Scalar) blank() bool {
	return s.Null || s.Text == ""
}
