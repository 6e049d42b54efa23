package segment

// Kind tags used by ingestion and rendering. Any other string is a valid
// structural type and decodes as a Wrapper.
const (
	TypeContent = "content"
	TypeHeading = "heading"
)

// Segment is a node in a content tree: either a *Leaf or a *Wrapper.
type Segment interface {
	SegmentID() string
	SegmentType() string
	header() *Header
}

// Header holds the fields shared by every segment kind.
type Header struct {
	ID    string
	Type  string
	Title *string
	Text  *string
}

func (h *Header) SegmentID() string   { return h.ID }
func (h *Header) SegmentType() string { return h.Type }
func (h *Header) header() *Header     { return h }

// Leaf is a content segment. It never has children.
type Leaf struct {
	Header
}

// Wrapper is a structural segment (heading, section, ...) owning an ordered
// list of children.
type Wrapper struct {
	Header
	Children []Segment
}

// NewLeaf builds a content leaf carrying text.
func NewLeaf(id, text string) *Leaf {
	return &Leaf{Header: Header{ID: id, Type: TypeContent, Text: String(text)}}
}

// NewHeading builds a heading wrapper with the given children.
func NewHeading(id, title string, children ...Segment) *Wrapper {
	return &Wrapper{
		Header:   Header{ID: id, Type: TypeHeading, Title: String(title)},
		Children: children,
	}
}

// HeaderOf exposes the shared fields of s for in-place updates.
func HeaderOf(s Segment) *Header {
	return s.header()
}

// ChildrenOf returns the children of s, or nil for leaves.
func ChildrenOf(s Segment) []Segment {
	if w, ok := s.(*Wrapper); ok {
		return w.Children
	}
	return nil
}

// String returns a pointer to v.
func String(v string) *string {
	return &v
}

// Deref returns the pointed-to string or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// SameString reports whether two optional strings hold the same value.
func SameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
