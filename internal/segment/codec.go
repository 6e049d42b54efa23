package segment

import (
	"encoding/json"
	"fmt"
)

// wireSegment is the persisted JSON shape:
// { id, type, title?, text?, children? }
type wireSegment struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Title    *string         `json:"title,omitempty"`
	Text     *string         `json:"text,omitempty"`
	Children *[]*wireSegment `json:"children,omitempty"`
}

// MarshalTree encodes a forest. A nil forest encodes as an empty array.
func MarshalTree(tree []Segment) ([]byte, error) {
	if err := checkLeafTypes(tree); err != nil {
		return nil, err
	}
	return json.Marshal(toWireList(tree))
}

// UnmarshalTree decodes a forest from its JSON array form.
func UnmarshalTree(data []byte) ([]Segment, error) {
	var list []*wireSegment
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode segment tree: %w", err)
	}
	return fromWireList(list)
}

// MarshalSegment encodes a single segment with its subtree.
func MarshalSegment(s Segment) ([]byte, error) {
	if s == nil {
		return nil, ErrNilSegment
	}
	if err := checkLeafTypes([]Segment{s}); err != nil {
		return nil, err
	}
	return json.Marshal(toWire(s))
}

// checkLeafTypes refuses leaves that would decode back as wrappers.
func checkLeafTypes(tree []Segment) error {
	var err error
	Walk(tree, func(s Segment, _ *Wrapper) {
		if _, ok := s.(*Leaf); ok && err == nil && s.SegmentType() != TypeContent {
			err = fmt.Errorf("%w: %s has type %q", ErrLeafType, s.SegmentID(), s.SegmentType())
		}
	})
	return err
}

// UnmarshalSegment decodes a single segment.
func UnmarshalSegment(data []byte) (Segment, error) {
	var w wireSegment
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode segment: %w", err)
	}
	return fromWire(&w)
}

func toWireList(tree []Segment) []*wireSegment {
	out := make([]*wireSegment, 0, len(tree))
	for _, s := range tree {
		if s == nil {
			continue
		}
		out = append(out, toWire(s))
	}
	return out
}

func toWire(s Segment) *wireSegment {
	h := s.header()
	w := &wireSegment{ID: h.ID, Type: h.Type, Title: h.Title, Text: h.Text}
	if wr, ok := s.(*Wrapper); ok {
		children := toWireList(wr.Children)
		w.Children = &children
	}
	return w
}

func fromWireList(list []*wireSegment) ([]Segment, error) {
	out := make([]Segment, 0, len(list))
	for _, w := range list {
		s, err := fromWire(w)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// fromWire picks the variant: an explicit children array makes a Wrapper,
// otherwise "content" is a Leaf and every other type is a Wrapper.
func fromWire(w *wireSegment) (Segment, error) {
	if w == nil {
		return nil, ErrNilSegment
	}
	if w.ID == "" {
		return nil, ErrEmptyID
	}
	h := Header{ID: w.ID, Type: w.Type, Title: w.Title, Text: w.Text}

	if w.Children != nil {
		children, err := fromWireList(*w.Children)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", w.ID, err)
		}
		return &Wrapper{Header: h, Children: children}, nil
	}
	if w.Type == TypeContent {
		return &Leaf{Header: h}, nil
	}
	return &Wrapper{Header: h, Children: []Segment{}}, nil
}
