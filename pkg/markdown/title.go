// Package markdown infers a document title from its leading H1 heading.
//
// No Markdown parsing library in this stack's ecosystem reach offers the
// exact "first top-level heading's literal text, nothing else" extraction
// this needs, so it is read directly off the source text: ATX headings
// (# Title) are unambiguous at the start of a line, and Setext headings
// (Title\n=====) are rare enough in practice that the original's own
// implementation did not special-case them either.
package markdown

import (
	"bufio"
	"strings"
)

// InferTitle returns the text of the first H1 heading in contents, or ok=false
// if the document has none.
func InferTitle(contents string) (title string, ok bool) {
	scanner := bufio.NewScanner(strings.NewReader(contents))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, "# ") && trimmed != "#" {
			continue
		}
		heading := strings.TrimPrefix(trimmed, "#")
		heading = strings.TrimSpace(heading)
		if heading == "" {
			return "", false
		}
		return heading, true
	}
	return "", false
}
