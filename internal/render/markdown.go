package render

import (
	"strings"

	"remix/internal/ingest"
	"remix/internal/segment"
)

// Markdown renders a segment tree. Wrapper titles become ATX headings whose
// level follows nesting depth (capped at 6); content text is emitted as-is,
// one block per leaf. A non-empty title is written as a top-level heading
// and pushes every other heading down one level.
func Markdown(title string, tree []segment.Segment) string {
	var blocks []string
	depth := 1
	if t := strings.TrimSpace(title); t != "" {
		blocks = append(blocks, "# "+t)
		depth = 2
	}
	blocks = collect(tree, depth, blocks)
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

func collect(list []segment.Segment, depth int, blocks []string) []string {
	for _, s := range list {
		if s == nil {
			continue
		}
		h := segment.HeaderOf(s)
		nextDepth := depth
		if h.Title != nil {
			blocks = append(blocks, heading(depth, *h.Title))
			nextDepth = depth + 1
		}
		if text := trimBlankLines(segment.Deref(h.Text)); text != "" {
			blocks = append(blocks, ingest.EscapeText(text))
		}
		blocks = collect(segment.ChildrenOf(s), nextDepth, blocks)
	}
	return blocks
}

func heading(depth int, title string) string {
	if depth > 6 {
		depth = 6
	}
	return strings.Repeat("#", depth) + " " + strings.TrimSpace(title)
}

// trimBlankLines drops surrounding blank lines and trailing spaces but keeps
// the indentation of the first line.
func trimBlankLines(text string) string {
	text = strings.TrimRight(text, " \t\r\n")
	for {
		first, rest, found := strings.Cut(text, "\n")
		if !found || strings.TrimSpace(first) != "" {
			return text
		}
		text = rest
	}
}
