package record

// Value is a node of a parsed document: a Scalar, a Mapping or a Sequence.
// The set is closed; Flatten and friends switch over these three types.
type Value interface {
	isValue()
}

// Scalar is a leaf. Text holds the literal YAML text, so numbers and
// booleans keep their source spelling.
type Scalar struct {
	Text string
	Null bool
}

// Field is one key/value pair of a Mapping.
type Field struct {
	Key   string
	Value Value
}

// Mapping keeps its fields in document order.
type Mapping struct {
	Fields []Field
}

// Sequence is an ordered list of values.
type Sequence struct {
	Items []Value
}

func (Scalar) isValue()    {}
func (*Mapping) isValue()  {}
func (*Sequence) isValue() {}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key, appending the field if it is new.
func (m *Mapping) Set(key string, v Value) {
	for i := range m.Fields {
		if m.Fields[i].Key == key {
			m.Fields[i].Value = v
			return
		}
	}
	m.Fields = append(m.Fields, Field{Key: key, Value: v})
}

// Text returns the literal text of a scalar, or "" for nulls and
// non-scalar values.
func Text(v Value) string {
	if s, ok := v.(Scalar); ok && !s.Null {
		return s.Text
	}
	return ""
}

// Interface converts v into the generic map/slice/string form used by
// JSONPath evaluation. Nulls become nil.
func Interface(v Value) any {
	switch val := v.(type) {
	case Scalar:
		if val.Null {
			return nil
		}
		return val.Text
	case *Mapping:
		out := make(map[string]any, len(val.Fields))
		for _, f := range val.Fields {
			out[f.Key] = Interface(f.Value)
		}
		return out
	case *Sequence:
		out := make([]any, len(val.Items))
		for i, item := range val.Items {
			out[i] = Interface(item)
		}
		return out
	default:
		return nil
	}
}
