package record

// Row is a flat record: column name to rendered scalar, remembering the
// order in which columns were first set.
type Row struct {
	cols []string
	vals map[string]string
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{vals: make(map[string]string)}
}

// RowOf builds a row from alternating column/value pairs.
func RowOf(kv ...string) *Row {
	r := NewRow()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

// Set stores value under col. An existing column keeps its position.
func (r *Row) Set(col, value string) {
	if _, ok := r.vals[col]; !ok {
		r.cols = append(r.cols, col)
	}
	r.vals[col] = value
}

// Get returns the value under col.
func (r *Row) Get(col string) (string, bool) {
	v, ok := r.vals[col]
	return v, ok
}

// Delete removes col from the row.
func (r *Row) Delete(col string) {
	if _, ok := r.vals[col]; !ok {
		return
	}
	delete(r.vals, col)
	for i, c := range r.cols {
		if c == col {
			r.cols = append(r.cols[:i], r.cols[i+1:]...)
			break
		}
	}
}

// Rename moves the value of from to to, in place. It is a no-op when from
// is absent or to already exists.
func (r *Row) Rename(from, to string) {
	v, ok := r.vals[from]
	if !ok {
		return
	}
	if _, taken := r.vals[to]; taken {
		return
	}
	delete(r.vals, from)
	r.vals[to] = v
	for i, c := range r.cols {
		if c == from {
			r.cols[i] = to
			break
		}
	}
}

// Columns returns the row's columns in first-set order.
func (r *Row) Columns() []string {
	return r.cols
}

// Len reports the number of columns.
func (r *Row) Len() int {
	return len(r.cols)
}

// Map returns a copy of the row as a plain map.
func (r *Row) Map() map[string]string {
	out := make(map[string]string, len(r.vals))
	for k, v := range r.vals {
		out[k] = v
	}
	return out
}
