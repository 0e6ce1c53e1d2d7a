package record

import (
	"fmt"
	"slices"
	"sort"

	"github.com/ohler55/ojg/jp"
)

// Selector picks records out of a document with a JSONPath expression.
type Selector struct {
	expr jp.Expr
	src  string
}

// NewSelector parses a JSONPath expression such as "$.types[*]".
func NewSelector(expr string) (*Selector, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	return &Selector{expr: x, src: expr}, nil
}

func (s *Selector) String() string {
	return s.src
}

// Select returns every value matched by the expression, in document order.
// Each match becomes one record.
func (s *Selector) Select(root Value) ([]Value, error) {
	locs := s.expr.Locate(Interface(root), 0)

	type hit struct {
		pos []int
		val Value
	}
	hits := make([]hit, 0, len(locs))
	for _, loc := range locs {
		v, pos, err := resolve(root, loc)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", loc.String(), err)
		}
		hits = append(hits, hit{pos: pos, val: v})
	}

	// Generic maps lose key order; restore it from the ordered tree.
	sort.SliceStable(hits, func(i, j int) bool {
		return slices.Compare(hits[i].pos, hits[j].pos) < 0
	})

	out := make([]Value, len(hits))
	for i, h := range hits {
		out[i] = h.val
	}
	return out, nil
}

// resolve follows a normalized location through the ordered tree and
// reports the field/item index taken at each step.
func resolve(root Value, loc jp.Expr) (Value, []int, error) {
	cur := root
	var pos []int
	for _, frag := range loc {
		switch f := frag.(type) {
		case jp.Root, jp.At:
			continue
		case jp.Child:
			m, ok := cur.(*Mapping)
			if !ok {
				return nil, nil, fmt.Errorf("key %q on non-mapping", string(f))
			}
			idx := slices.IndexFunc(m.Fields, func(fd Field) bool { return fd.Key == string(f) })
			if idx < 0 {
				return nil, nil, fmt.Errorf("missing key %q", string(f))
			}
			cur = m.Fields[idx].Value
			pos = append(pos, idx)
		case jp.Nth:
			seq, ok := cur.(*Sequence)
			if !ok {
				return nil, nil, fmt.Errorf("index %d on non-sequence", int(f))
			}
			i := int(f)
			if i < 0 {
				i += len(seq.Items)
			}
			if i < 0 || i >= len(seq.Items) {
				return nil, nil, fmt.Errorf("index %d out of range", int(f))
			}
			cur = seq.Items[i]
			pos = append(pos, i)
		default:
			return nil, nil, fmt.Errorf("unsupported location fragment %T", frag)
		}
	}
	return cur, pos, nil
}
