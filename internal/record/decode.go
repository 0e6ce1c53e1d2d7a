package record

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const mergeKey = "<<"

// Alias expansion is capped at this many nodes per input byte, plus a
// fixed allowance for small inputs.
const (
	expansionPerByte = 16
	expansionBase    = 100_000
)

var (
	// ErrAliasCycle is returned when an alias refers to a node that contains it.
	ErrAliasCycle = errors.New("alias refers to its own ancestor")
	// ErrExpansionLimit is returned when aliases expand a document far
	// beyond its input size.
	ErrExpansionLimit = errors.New("alias expansion exceeds limit")
)

// decoder converts yaml.Node trees to Values. It tracks the collection
// nodes currently being converted and how many nodes it has produced.
type decoder struct {
	open   map[*yaml.Node]bool
	budget int
}

func newDecoder(size int) *decoder {
	return &decoder{
		open:   make(map[*yaml.Node]bool),
		budget: expansionBase + expansionPerByte*size,
	}
}

// Decode parses a YAML stream and returns the root value of every
// non-empty document in it, in stream order.
func Decode(data []byte) ([]Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	conv := newDecoder(len(data))

	var roots []Value
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
			continue
		}
		root, err := conv.fromNode(doc.Content[0])
		if err != nil {
			return nil, err
		}
		if isEmpty(root) {
			continue
		}
		roots = append(roots, root)
	}
	return roots, nil
}

func (d *decoder) fromNode(n *yaml.Node) (Value, error) {
	d.budget--
	if d.budget < 0 {
		return nil, fmt.Errorf("line %d: %w", n.Line, ErrExpansionLimit)
	}

	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("line %d: dangling alias %q", n.Line, n.Value)
		}
		if d.open[n.Alias] {
			return nil, fmt.Errorf("line %d: alias %q: %w", n.Line, n.Value, ErrAliasCycle)
		}
		return d.fromNode(n.Alias)

	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return Scalar{Null: true}, nil
		}
		return Scalar{Text: n.Value}, nil

	case yaml.SequenceNode:
		d.open[n] = true
		defer delete(d.open, n)

		seq := &Sequence{Items: make([]Value, 0, len(n.Content))}
		for _, c := range n.Content {
			v, err := d.fromNode(c)
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, v)
		}
		return seq, nil

	case yaml.MappingNode:
		d.open[n] = true
		defer delete(d.open, n)
		return d.fromMapping(n)

	default:
		return nil, fmt.Errorf("line %d: unexpected yaml node kind %v", n.Line, n.Kind)
	}
}

func (d *decoder) fromMapping(n *yaml.Node) (*Mapping, error) {
	m := &Mapping{Fields: make([]Field, 0, len(n.Content)/2)}
	var own []Field

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.AliasNode && k.Alias != nil {
			k = k.Alias
		}
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: unsupported non-scalar mapping key", k.Line)
		}

		if k.Value == mergeKey && k.ShortTag() == "!!merge" {
			if err := d.merge(m, v); err != nil {
				return nil, err
			}
			continue
		}

		val, err := d.fromNode(v)
		if err != nil {
			return nil, err
		}
		own = append(own, Field{Key: k.Value, Value: val})
	}

	// Own fields override merged ones.
	for _, f := range own {
		m.Set(f.Key, f.Value)
	}
	return m, nil
}

// merge inlines the fields of a "<<" value. The value is a mapping, an
// alias to one, or a sequence of either.
func (d *decoder) merge(dst *Mapping, n *yaml.Node) error {
	v, err := d.fromNode(n)
	if err != nil {
		return err
	}

	var sources []*Mapping
	switch val := v.(type) {
	case *Mapping:
		sources = append(sources, val)
	case *Sequence:
		for _, item := range val.Items {
			src, ok := item.(*Mapping)
			if !ok {
				return fmt.Errorf("line %d: merge sequence must hold mappings", n.Line)
			}
			sources = append(sources, src)
		}
	default:
		return fmt.Errorf("line %d: merge value must be a mapping", n.Line)
	}

	for _, src := range sources {
		for _, f := range src.Fields {
			if _, exists := dst.Get(f.Key); !exists {
				dst.Fields = append(dst.Fields, f)
			}
		}
	}
	return nil
}

func isEmpty(v Value) bool {
	switch val := v.(type) {
	case Scalar:
		return val.Null
	case *Mapping:
		return len(val.Fields) == 0
	case *Sequence:
		return len(val.Items) == 0
	}
	return true
}
