package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() []Segment {
	return []Segment{
		NewHeading("a", "Intro",
			NewLeaf("b", "Hello"),
			NewHeading("c", "Details",
				NewLeaf("d", "Deep"),
			),
		),
		NewLeaf("e", "Trailing"),
	}
}

func ids(list []Segment) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.SegmentID())
	}
	return out
}

func TestFlatten_IncludesWrappers(t *testing.T) {
	m := Flatten(sampleTree())
	assert.Len(t, m, 5)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, ok := m[id]
		assert.True(t, ok, "missing %s", id)
	}
	_, isWrapper := m["c"].(*Wrapper)
	assert.True(t, isWrapper)
}

func TestFlatten_LaterDuplicateWins(t *testing.T) {
	tree := []Segment{NewLeaf("x", "first"), NewLeaf("x", "second")}
	m := Flatten(tree)
	require.Len(t, m, 1)
	assert.Equal(t, "second", Deref(HeaderOf(m["x"]).Text))
}

func TestOrdered_PreOrder(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(Ordered(sampleTree())))
	assert.Empty(t, Ordered(nil))
}

func TestClone_IsDeep(t *testing.T) {
	orig := sampleTree()
	cp := Clone(orig)
	require.True(t, Equal(orig, cp))

	HeaderOf(cp[0]).Title = String("Changed")
	inner := cp[0].(*Wrapper).Children[1].(*Wrapper)
	inner.Children = nil
	*HeaderOf(cp[1]).Text = "mutated through pointer"

	assert.Equal(t, "Intro", Deref(HeaderOf(orig[0]).Title))
	assert.Len(t, orig[0].(*Wrapper).Children[1].(*Wrapper).Children, 1)
	assert.Equal(t, "Trailing", Deref(HeaderOf(orig[1]).Text))
}

func TestEqual(t *testing.T) {
	t.Run("nil and empty children", func(t *testing.T) {
		a := []Segment{&Wrapper{Header: Header{ID: "w", Type: TypeHeading}}}
		b := []Segment{&Wrapper{Header: Header{ID: "w", Type: TypeHeading}, Children: []Segment{}}}
		assert.True(t, Equal(a, b))
	})

	t.Run("kind mismatch", func(t *testing.T) {
		a := []Segment{&Leaf{Header: Header{ID: "x", Type: "note"}}}
		b := []Segment{&Wrapper{Header: Header{ID: "x", Type: "note"}}}
		assert.False(t, Equal(a, b))
	})

	t.Run("absent vs empty text", func(t *testing.T) {
		a := []Segment{&Leaf{Header: Header{ID: "x", Type: TypeContent}}}
		b := []Segment{NewLeaf("x", "")}
		assert.False(t, Equal(a, b))
	})

	t.Run("order matters", func(t *testing.T) {
		a := []Segment{NewLeaf("x", "1"), NewLeaf("y", "2")}
		b := []Segment{NewLeaf("y", "2"), NewLeaf("x", "1")}
		assert.False(t, Equal(a, b))
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(sampleTree()))
	assert.NoError(t, Validate(nil))

	dup := []Segment{NewHeading("a", "A", NewLeaf("b", "1")), NewLeaf("b", "2")}
	assert.ErrorIs(t, Validate(dup), ErrDuplicateID)

	assert.ErrorIs(t, Validate([]Segment{NewLeaf("", "x")}), ErrEmptyID)

	shared := NewLeaf("s", "shared")
	assert.ErrorIs(t, Validate([]Segment{NewHeading("w", "W", shared), shared}), ErrSharedNode)

	assert.ErrorIs(t, Validate([]Segment{nil}), ErrNilSegment)
}

func TestShallow_DropsChildren(t *testing.T) {
	w := sampleTree()[0]
	s := Shallow(w)
	require.IsType(t, &Wrapper{}, s)
	assert.Empty(t, s.(*Wrapper).Children)
	assert.NotNil(t, s.(*Wrapper).Children)
	assert.Equal(t, "Intro", Deref(HeaderOf(s).Title))
}
