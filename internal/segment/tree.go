package segment

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyID     = errors.New("segment id is required")
	ErrDuplicateID = errors.New("duplicate segment id")
	ErrSharedNode  = errors.New("segment appears more than once in tree")
	ErrNilSegment  = errors.New("nil segment")
	// ErrLeafType is returned for a leaf whose type is not "content": the wire
	// form could not tell it apart from a wrapper without children.
	ErrLeafType = errors.New("leaf segment must have type content")
)

// Flatten walks the forest depth-first and indexes every segment, wrappers
// included, by id. A later duplicate id overwrites an earlier one.
func Flatten(tree []Segment) map[string]Segment {
	out := make(map[string]Segment)
	Walk(tree, func(s Segment, _ *Wrapper) {
		out[s.SegmentID()] = s
	})
	return out
}

// Ordered returns the pre-order sequence of the forest.
func Ordered(tree []Segment) []Segment {
	var out []Segment
	Walk(tree, func(s Segment, _ *Wrapper) {
		out = append(out, s)
	})
	return out
}

// Walk visits every segment in pre-order together with its owning wrapper
// (nil for root-level segments). Nil entries are skipped.
func Walk(tree []Segment, fn func(s Segment, parent *Wrapper)) {
	walk(tree, nil, fn)
}

func walk(list []Segment, parent *Wrapper, fn func(Segment, *Wrapper)) {
	for _, s := range list {
		if s == nil {
			continue
		}
		fn(s, parent)
		if w, ok := s.(*Wrapper); ok {
			walk(w.Children, w, fn)
		}
	}
}

// Clone returns a deep copy of the forest. The result shares no pointers with
// the input.
func Clone(tree []Segment) []Segment {
	if tree == nil {
		return nil
	}
	out := make([]Segment, 0, len(tree))
	for _, s := range tree {
		if s == nil {
			continue
		}
		out = append(out, CloneSegment(s))
	}
	return out
}

// CloneSegment deep-copies a single segment and its subtree.
func CloneSegment(s Segment) Segment {
	switch v := s.(type) {
	case *Leaf:
		return &Leaf{Header: cloneHeader(v.Header)}
	case *Wrapper:
		return &Wrapper{Header: cloneHeader(v.Header), Children: Clone(v.Children)}
	default:
		return nil
	}
}

// Shallow copies s without its children. Wrappers keep their kind but come
// back with an empty child list.
func Shallow(s Segment) Segment {
	switch v := s.(type) {
	case *Leaf:
		return &Leaf{Header: cloneHeader(v.Header)}
	case *Wrapper:
		return &Wrapper{Header: cloneHeader(v.Header), Children: []Segment{}}
	default:
		return nil
	}
}

func cloneHeader(h Header) Header {
	out := Header{ID: h.ID, Type: h.Type}
	if h.Title != nil {
		out.Title = String(*h.Title)
	}
	if h.Text != nil {
		out.Text = String(*h.Text)
	}
	return out
}

// Equal reports structural equality of two forests. Nil and empty child
// lists compare equal.
func Equal(a, b []Segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualSegment(a[i], b[i]) {
			return false
		}
	}
	return true
}

// EqualSegment compares two segments and their subtrees.
func EqualSegment(a, b Segment) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !SameKind(a, b) {
		return false
	}
	ha, hb := a.header(), b.header()
	if ha.ID != hb.ID || ha.Type != hb.Type {
		return false
	}
	if !SameString(ha.Title, hb.Title) || !SameString(ha.Text, hb.Text) {
		return false
	}
	return Equal(ChildrenOf(a), ChildrenOf(b))
}

// SameKind reports whether a and b are the same variant (leaf or wrapper).
func SameKind(a, b Segment) bool {
	_, aw := a.(*Wrapper)
	_, bw := b.(*Wrapper)
	return aw == bw
}

// Validate checks the forest invariants: non-empty ids, global id uniqueness,
// single ownership of every node and content-typed leaves.
func Validate(tree []Segment) error {
	ids := make(map[string]bool)
	seen := make(map[Segment]bool)
	return validate(tree, ids, seen)
}

func validate(list []Segment, ids map[string]bool, seen map[Segment]bool) error {
	for _, s := range list {
		if s == nil {
			return ErrNilSegment
		}
		if seen[s] {
			return fmt.Errorf("%w: %s", ErrSharedNode, s.SegmentID())
		}
		seen[s] = true

		id := s.SegmentID()
		if id == "" {
			return ErrEmptyID
		}
		if ids[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		ids[id] = true

		if _, ok := s.(*Leaf); ok && s.SegmentType() != TypeContent {
			return fmt.Errorf("%w: %s has type %q", ErrLeafType, id, s.SegmentType())
		}
		if w, ok := s.(*Wrapper); ok {
			if err := validate(w.Children, ids, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
