// Package frontmatter extracts a YAML (---) or TOML (+++) frontmatter block
// from the top of a Markdown document, if one is present.
package frontmatter

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Frontmatter is the subset of frontmatter fields this system understands.
type Frontmatter struct {
	Title *string  `yaml:"title" toml:"title"`
	Tags  []string `yaml:"tags" toml:"tags"`
}

// ParseResult is the outcome of Parse: the decoded frontmatter (nil if the
// document has none) and the remaining document body.
type ParseResult struct {
	Frontmatter *Frontmatter
	Body        string
}

type separator struct {
	marker string
}

var (
	hyphenSeparator = separator{marker: "---"}
	plusSeparator   = separator{marker: "+++"}
)

// Parse splits s into an optional frontmatter block and the trailing body.
// A document with no recognized frontmatter marker at its very start is
// returned unchanged, with Frontmatter == nil.
func Parse(s string) (ParseResult, error) {
	start, sep, ok := findStartOfFrontmatter(s)
	if !ok {
		return ParseResult{Body: s}, nil
	}

	// start-1 keeps the leading newline so we can search for "\n<marker>\n".
	relativeEnd, found := findEndOfFrontmatter(s[start-1:], sep)
	if !found {
		return ParseResult{}, fmt.Errorf("frontmatter: could not find end marker %q", sep.marker)
	}
	end := start - 1 + relativeEnd

	block := s[start:end]
	body := s[end+len(sep.marker)+1:]

	fm := &Frontmatter{}
	var err error
	switch sep {
	case hyphenSeparator:
		err = yaml.Unmarshal([]byte(block), fm)
	case plusSeparator:
		err = toml.Unmarshal([]byte(block), fm)
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("frontmatter: %w", err)
	}

	return ParseResult{Frontmatter: fm, Body: body}, nil
}

func findStartOfFrontmatter(s string) (int, separator, bool) {
	if strings.HasPrefix(s, hyphenSeparator.marker+"\n") {
		return 4, hyphenSeparator, true
	}
	if strings.HasPrefix(s, plusSeparator.marker+"\n") {
		return 4, plusSeparator, true
	}
	return 0, separator{}, false
}

func findEndOfFrontmatter(s string, sep separator) (int, bool) {
	needle := "\n" + sep.marker + "\n"
	idx := strings.Index(s, needle)
	if idx < 0 {
		return 0, false
	}
	return idx + 1, true
}
