package table

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/sdeconv/internal/record"
)

// ColumnSet is the ordered union of the columns of a table's rows, in the
// order they were first seen. Each column keeps a bitmap of the rows that
// hold a non-empty value for it.
type ColumnSet struct {
	names    []string
	index    map[string]int
	presence []*roaring.Bitmap
	rows     uint32
}

// NewColumnSet returns an empty set.
func NewColumnSet() *ColumnSet {
	return &ColumnSet{index: make(map[string]int)}
}

// Union builds the column set of rows.
func Union(rows []*record.Row) *ColumnSet {
	cs := NewColumnSet()
	for _, r := range rows {
		cs.Observe(r)
	}
	return cs
}

// Observe adds a row's columns to the set and records which of them it
// populates.
func (cs *ColumnSet) Observe(r *record.Row) {
	idx := cs.rows
	cs.rows++
	for _, col := range r.Columns() {
		j := cs.add(col)
		if v, _ := r.Get(col); v != "" {
			cs.presence[j].Add(idx)
		}
	}
}

func (cs *ColumnSet) add(col string) int {
	if j, ok := cs.index[col]; ok {
		return j
	}
	j := len(cs.names)
	cs.names = append(cs.names, col)
	cs.index[col] = j
	cs.presence = append(cs.presence, roaring.New())
	return j
}

// Names returns the columns in first-seen order.
func (cs *ColumnSet) Names() []string {
	out := make([]string, len(cs.names))
	copy(out, cs.names)
	return out
}

// Len reports the number of columns.
func (cs *ColumnSet) Len() int {
	return len(cs.names)
}

// Rows reports how many rows were observed.
func (cs *ColumnSet) Rows() int {
	return int(cs.rows)
}

// Has reports whether col is part of the set.
func (cs *ColumnSet) Has(col string) bool {
	_, ok := cs.index[col]
	return ok
}

// Filled returns the number of rows with a non-empty value in col.
func (cs *ColumnSet) Filled(col string) uint64 {
	j, ok := cs.index[col]
	if !ok {
		return 0
	}
	return cs.presence[j].GetCardinality()
}

// Prune drops every column that no observed row populates.
func (cs *ColumnSet) Prune() {
	keep := 0
	for j, col := range cs.names {
		if cs.presence[j].IsEmpty() {
			delete(cs.index, col)
			continue
		}
		cs.names[keep], cs.presence[keep] = col, cs.presence[j]
		cs.index[col] = keep
		keep++
	}
	clear(cs.names[keep:])
	clear(cs.presence[keep:])
	cs.names, cs.presence = cs.names[:keep], cs.presence[:keep]
}

// Fill returns the populated-row count of every column.
func (cs *ColumnSet) Fill() map[string]uint64 {
	out := make(map[string]uint64, len(cs.names))
	for j, col := range cs.names {
		out[col] = cs.presence[j].GetCardinality()
	}
	return out
}
