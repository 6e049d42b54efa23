package ingest

import (
	"fmt"
	"testing"

	"remix/internal/segment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() IDFunc {
	n := 0
	return func(string) string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

func TestMarkdown_NestsHeadingsByLevel(t *testing.T) {
	src := `Preface line.

# Intro

Hello
still hello

## Details

World

# Outro
Bye
`
	tree := Markdown(src, sequentialIDs())

	want := []segment.Segment{
		segment.NewLeaf("s1", "Preface line."),
		segment.NewHeading("s2", "Intro",
			segment.NewLeaf("s3", "Hello\nstill hello"),
			segment.NewHeading("s4", "Details", segment.NewLeaf("s5", "World")),
		),
		segment.NewHeading("s6", "Outro", segment.NewLeaf("s7", "Bye")),
	}
	assert.True(t, segment.Equal(want, tree))
	require.NoError(t, segment.Validate(tree))
}

func TestMarkdown_SkippedLevelsStillNest(t *testing.T) {
	tree := Markdown("# A\n### B\ntext\n## C\n", sequentialIDs())
	want := []segment.Segment{
		segment.NewHeading("s1", "A",
			segment.NewHeading("s2", "B", segment.NewLeaf("s3", "text")),
			segment.NewHeading("s4", "C"),
		),
	}
	assert.True(t, segment.Equal(want, tree))
}

func TestMarkdown_FencedCodeIsOneLeaf(t *testing.T) {
	src := "# Code\n\n```sh\n# not a heading\n\necho hi\n```\n"
	tree := Markdown(src, sequentialIDs())
	require.Len(t, tree, 1)
	children := segment.ChildrenOf(tree[0])
	require.Len(t, children, 1)
	assert.Equal(t, "```sh\n# not a heading\n\necho hi\n```", segment.Deref(segment.HeaderOf(children[0]).Text))
}

func TestMarkdown_NotHeadings(t *testing.T) {
	tree := Markdown("#hashtag\n\n####### seven\n", sequentialIDs())
	require.Len(t, tree, 2)
	assert.IsType(t, &segment.Leaf{}, tree[0])
	assert.IsType(t, &segment.Leaf{}, tree[1])
}

func TestMarkdown_Empty(t *testing.T) {
	assert.Empty(t, Markdown("", nil))
	assert.Empty(t, Markdown("\n\n   \n", nil))
}

func TestHashIDs_StableAcrossRevisions(t *testing.T) {
	ids := HashIDs("guide")
	v1 := Markdown("# Intro\n\nHello\n\n# Intro\n\nAgain\n", ids)
	v2 := Markdown("# Intro\n\nHello, revised\n\n# Intro\n\nAgain\n\nMore\n", ids)

	require.NoError(t, segment.Validate(v1))
	require.NoError(t, segment.Validate(v2))

	// Same structural position keeps its id even when the text changes.
	assert.Equal(t, v1[0].SegmentID(), v2[0].SegmentID())
	assert.Equal(t, segment.ChildrenOf(v1[0])[0].SegmentID(), segment.ChildrenOf(v2[0])[0].SegmentID())
	assert.Equal(t, v1[1].SegmentID(), v2[1].SegmentID())
	assert.NotEqual(t, v1[0].SegmentID(), v1[1].SegmentID())

	other := Markdown("# Intro\n", HashIDs("other"))
	assert.NotEqual(t, v1[0].SegmentID(), other[0].SegmentID())
}

func TestRandomIDs_AreUnique(t *testing.T) {
	tree := Markdown("# A\n\none\n\ntwo\n", nil)
	require.NoError(t, segment.Validate(tree))
	assert.Len(t, segment.Flatten(tree), 3)
}

func TestEscapeText(t *testing.T) {
	assert.Equal(t, "#hashtag", EscapeText("#hashtag"))
	assert.Equal(t, `\# Title`, EscapeText("# Title"))
	assert.Equal(t, `\\# Title`, EscapeText(`\# Title`))
	assert.Equal(t, "    # indented code", EscapeText("    # indented code"))
	assert.Equal(t, "```\n# fenced\n```\n\\## after", EscapeText("```\n# fenced\n```\n## after"))
}

func TestMarkdown_DropsHeadingEscape(t *testing.T) {
	tree := Markdown("\\# not a heading\n\\\\# one backslash kept\n\\#hashtag\n", sequentialIDs())
	require.Len(t, tree, 1)
	assert.Equal(t, "# not a heading\n\\# one backslash kept\n\\#hashtag", segment.Deref(segment.HeaderOf(tree[0]).Text))
}
