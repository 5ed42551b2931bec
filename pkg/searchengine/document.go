package searchengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notebit/pkg/frontmatter"
	"notebit/pkg/markdown"
	"notebit/pkg/pathnorm"
)

// SourceDocument is everything MakeSearchDocument needs about a file beyond
// its own content: which watch owns it and when the system first saw it.
// ModifiedAt comes from the filesystem; CreatedAt comes from the metadata
// store's row-creation timestamp, since Go has no portable file birth-time
// API (the teacher's own file-stat helper tracks only ModTime for the same
// reason).
type SourceDocument struct {
	Path       string
	WatchID    uint
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// MakeSearchDocument reads path's content and builds the indexable bleve
// document map for it.
func MakeSearchDocument(src SourceDocument) (map[string]interface{}, error) {
	raw, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("searchengine: read %s: %w", src.Path, err)
	}
	contents := string(raw)

	parsed, err := frontmatter.Parse(contents)
	if err != nil {
		return nil, fmt.Errorf("searchengine: parse frontmatter for %s: %w", src.Path, err)
	}

	title := inferTitle(parsed.Frontmatter, parsed.Body, src.Path)
	language := DetectLanguage(parsed.Body)
	normalizedPath := pathnorm.Normalize(src.Path)

	doc := map[string]interface{}{
		FieldPath:                          normalizedPath,
		FieldPathComponents:                pathComponents(src.Path),
		FieldPathNgram:                     normalizedPath,
		FieldLanguage:                      int(language),
		FieldTitleNgram:                    title,
		TitleFieldForLanguage(language):    title,
		FieldContentsNgram:                 parsed.Body,
		ContentsFieldForLanguage(language): parsed.Body,
		FieldCreatedAt:                     src.CreatedAt,
		FieldModifiedAt:                    src.ModifiedAt,
		FieldWatchID:                       int(src.WatchID),
	}

	if parsed.Frontmatter != nil && len(parsed.Frontmatter.Tags) > 0 {
		tagField := TagFieldForLanguage(language)
		tags := make([]string, 0, len(parsed.Frontmatter.Tags))
		for _, tag := range parsed.Frontmatter.Tags {
			tags = append(tags, pathnorm.Normalize(tag))
		}
		doc[tagField] = tags
		doc[FieldTagNgram] = tags
	}

	return doc, nil
}

func inferTitle(fm *frontmatterType, body string, path string) string {
	if fm != nil && fm.Title != nil && strings.TrimSpace(*fm.Title) != "" {
		return *fm.Title
	}
	if title, ok := markdown.InferTitle(body); ok {
		return title
	}
	base := filepath.Base(path)
	return pathnorm.Normalize(strings.TrimSuffix(base, filepath.Ext(base)))
}

// frontmatterType is a local alias kept so this file only needs one import
// line for the frontmatter package's exported type name.
type frontmatterType = frontmatter.Frontmatter

func pathComponents(path string) []string {
	var results []string
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		results = append(results, pathnorm.Normalize(part))
	}
	return results
}
