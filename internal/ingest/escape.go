package ingest

import "strings"

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")
}

// IsHeading reports whether Markdown would read line as an ATX heading.
func IsHeading(line string) bool {
	if isIndented(line) {
		return false
	}
	_, _, ok := parseHeading(strings.TrimSpace(line))
	return ok
}

// escapedHeading reports whether line is a heading behind one or more
// backslashes, e.g. `\# Title` or `\\# Title`.
func escapedHeading(line string) bool {
	if isIndented(line) {
		return false
	}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, `\`) {
		return false
	}
	_, _, ok := parseHeading(strings.TrimLeft(trimmed, `\`))
	return ok
}

// EscapeText prepares leaf text for markdown output so that Markdown reads it
// back unchanged: every line outside a fence that would parse as a heading,
// or already is an escaped one, gets one more leading backslash.
func EscapeText(text string) string {
	lines := strings.Split(text, "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isFence(trimmed) {
			inFence = !inFence
			continue
		}
		if inFence || !(IsHeading(line) || escapedHeading(line)) {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		lines[i] = line[:indent] + `\` + line[indent:]
	}
	return strings.Join(lines, "\n")
}

// unescapeLine undoes one level of EscapeText on a paragraph line.
func unescapeLine(line string) string {
	if !escapedHeading(line) {
		return line
	}
	i := strings.Index(line, `\`)
	return line[:i] + line[i+1:]
}
