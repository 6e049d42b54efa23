package ingest

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"remix/internal/segment"

	"github.com/google/uuid"
)

// IDFunc assigns a segment id given the segment's structural key: its heading
// path plus its position among siblings.
type IDFunc func(key string) string

// RandomIDs gives every segment a fresh UUID.
func RandomIDs(string) string {
	return uuid.NewString()
}

// HashIDs derives ids from namespace and the structural key so that
// re-importing a revised file keeps ids of segments that did not move.
func HashIDs(namespace string) IDFunc {
	return func(key string) string {
		hash := sha256.Sum256([]byte(namespace + ":" + key))
		return hex.EncodeToString(hash[:8])
	}
}

type openHeading struct {
	level  int
	key    string
	node   *segment.Wrapper
	leaves int
	titles map[string]int
}

type builder struct {
	ids   IDFunc
	root  openHeading
	stack []*openHeading
}

// Markdown parses markdown into a segment tree. ATX headings become heading
// wrappers nested by level, blank-line separated blocks become content
// leaves. Fenced code blocks are kept whole, and a backslash in front of a
// heading-like paragraph line (see EscapeText) is dropped.
func Markdown(content string, ids IDFunc) []segment.Segment {
	if ids == nil {
		ids = RandomIDs
	}
	b := &builder{ids: ids, root: openHeading{titles: map[string]int{}, node: &segment.Wrapper{}}}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var para []string
	inFence := false
	flush := func() {
		if len(para) > 0 {
			b.addLeaf(strings.Join(para, "\n"))
			para = para[:0]
		}
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		trimmed := strings.TrimSpace(line)

		if isFence(trimmed) {
			inFence = !inFence
			para = append(para, line)
			continue
		}
		if inFence {
			para = append(para, line)
			continue
		}
		if trimmed == "" {
			flush()
			continue
		}
		if level, title, ok := parseHeading(trimmed); ok && !isIndented(line) {
			flush()
			b.openHeading(level, title)
			continue
		}
		para = append(para, unescapeLine(line))
	}
	flush()

	return b.root.node.Children
}

func parseHeading(line string) (int, string, bool) {
	level := 0
	for _, char := range line {
		if char != '#' {
			break
		}
		level++
	}
	if level == 0 || level > 6 {
		return 0, "", false
	}
	rest := line[level:]
	if rest == "" {
		return level, "", true
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return 0, "", false
	}
	title := strings.TrimSpace(rest)
	// Closing sequence: "## Title ##"
	title = strings.TrimSpace(strings.TrimRight(title, "#"))
	return level, title, true
}

func (b *builder) current() *openHeading {
	if len(b.stack) == 0 {
		return &b.root
	}
	return b.stack[len(b.stack)-1]
}

func (b *builder) openHeading(level int, title string) {
	for len(b.stack) > 0 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.current()

	n := parent.titles[title]
	parent.titles[title] = n + 1
	key := fmt.Sprintf("%s/h:%s~%d", parent.key, title, n)

	node := segment.NewHeading(b.ids(key), title)
	node.Children = []segment.Segment{}
	parent.node.Children = append(parent.node.Children, node)
	b.stack = append(b.stack, &openHeading{level: level, key: key, node: node, titles: map[string]int{}})
}

func (b *builder) addLeaf(text string) {
	parent := b.current()
	key := fmt.Sprintf("%s/p:%d", parent.key, parent.leaves)
	parent.leaves++
	parent.node.Children = append(parent.node.Children, segment.NewLeaf(b.ids(key), text))
}
