package searchengine

import (
	"fmt"
	"strings"
	"time"

	"notebit/pkg/pathnorm"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Boost weights mirror the original relevance ranking: path matches rank
// highest, then title, then tags, then body content; each field's ngram
// sibling (which matches on raw character bigrams rather than stemmed
// words) is weighted far below its language-analyzed counterpart so it only
// breaks through when the stemmed fields find nothing.
const (
	boostLittle = 0.5
	boostNormal = 1.0
	boostMuch   = 5.0
	boostMore   = 8.0
	boostMost   = 10.0
)

// Reader is the read side of the search index: building and running
// queries. It holds no mutable state of its own and may be used
// concurrently from many goroutines; all mutation goes through Writer.
type Reader struct {
	index bleve.Index
}

// NewReader wraps an already-open index for querying.
func NewReader(index bleve.Index) *Reader {
	return &Reader{index: index}
}

// SearchDocument runs a free-text query, sorted and paginated as requested.
func (r *Reader) SearchDocument(q string, sort Sort, offset, limit int) (SearchResults, error) {
	builtQuery := r.buildQuery(q)
	return r.doQueryAndBuildResults(builtQuery, sort, offset, limit)
}

// SearchDocumentWithTags ANDs a free-text query with a "must carry every one
// of these tags" constraint.
func (r *Reader) SearchDocumentWithTags(q string, tags []string, sort Sort, offset, limit int) (SearchResults, error) {
	textQuery := r.buildQuery(q)
	if len(tags) == 0 {
		return r.doQueryAndBuildResults(textQuery, sort, offset, limit)
	}

	combined := query.NewConjunctionQuery([]query.Query{textQuery, r.makeTagQuery(tags)})
	return r.doQueryAndBuildResults(combined, sort, offset, limit)
}

// makeTagQuery builds `(tag=T1a OR tag=T1b) AND (tag=T2a OR tag=T2b) ...`,
// one OR-group per requested tag across that tag's en/ja/ngram fields.
func (r *Reader) makeTagQuery(tags []string) query.Query {
	perTag := make([]query.Query, 0, len(tags))
	for _, tag := range tags {
		fieldQueries := make([]query.Query, 0, len(AllTagFieldNames()))
		for _, field := range AllTagFieldNames() {
			mq := bleve.NewMatchPhraseQuery(tag)
			mq.SetField(field)
			fieldQueries = append(fieldQueries, mq)
		}
		perTag = append(perTag, query.NewDisjunctionQuery(fieldQueries))
	}
	return query.NewConjunctionQuery(perTag)
}

// buildQuery builds a boosted, conjunction-by-default query across every
// searchable field. Rather than parsing the user's text against a
// query-string grammar (tantivy's QueryParser in the original), each
// whitespace-separated term is matched independently against every field
// with that field's boost, and per-term disjunctions are ANDed together:
// this keeps escaping trivial (no special-character grammar to escape) and
// keeps boost assignment exact, without depending on bleve's own
// query-string parser having compatible precedence rules with the original.
func (r *Reader) buildQuery(q string) query.Query {
	terms := strings.Fields(strings.TrimSpace(q))
	if len(terms) == 0 {
		return bleve.NewMatchAllQuery()
	}

	termQueries := make([]query.Query, 0, len(terms))
	for _, term := range terms {
		termQueries = append(termQueries, r.fieldDisjunctionForTerm(term))
	}
	if len(termQueries) == 1 {
		return termQueries[0]
	}
	return query.NewConjunctionQuery(termQueries)
}

func (r *Reader) fieldDisjunctionForTerm(term string) query.Query {
	var fieldQueries []query.Query

	add := func(field string, boost float64) {
		mq := bleve.NewMatchQuery(term)
		mq.SetField(field)
		mq.SetBoost(boost)
		fieldQueries = append(fieldQueries, mq)
	}

	add(FieldPath, boostMost)
	add(FieldPathComponents, boostMost)
	add(FieldPathNgram, boostLittle)
	for _, f := range TitleLanguageFields() {
		add(f, boostMost)
	}
	add(FieldTitleNgram, boostMuch)
	for _, f := range ContentsLanguageFields() {
		add(f, boostNormal)
	}
	add(FieldContentsNgram, boostLittle)
	for _, f := range TagLanguageFields() {
		add(f, boostMore)
	}
	add(FieldTagNgram, boostMuch)

	return query.NewDisjunctionQuery(fieldQueries)
}

func (r *Reader) doQueryAndBuildResults(q query.Query, sort Sort, offset, limit int) (SearchResults, error) {
	req := bleve.NewSearchRequestOptions(q, limit, offset, false)
	req.Fields = []string{
		FieldPath, FieldTitleNgram, FieldWatchID, FieldCreatedAt, FieldModifiedAt,
		FieldTagEn, FieldTagJa, FieldTagNgram,
	}
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.AddField(FieldContentsEn)
	req.Highlight.AddField(FieldContentsJa)
	req.Highlight.AddField(FieldContentsNgram)

	switch sort {
	case SortDate:
		req.SortBy([]string{"-" + FieldModifiedAt})
	default:
		// default bleve ordering is by descending score, i.e. relevance
	}

	result, err := r.index.Search(req)
	if err != nil {
		return SearchResults{}, fmt.Errorf("searchengine: search: %w", err)
	}

	docs := make([]SearchResultDocument, 0, len(result.Hits))
	for _, hit := range result.Hits {
		docs = append(docs, populateResultDocument(hit))
	}

	return SearchResults{Count: int(result.Total), Documents: docs}, nil
}

func populateResultDocument(hit *search.DocumentMatch) SearchResultDocument {
	doc := SearchResultDocument{
		Path: stringField(hit.Fields, FieldPath),
	}

	if title := stringField(hit.Fields, FieldTitleNgram); title != "" {
		doc.Title = &title
	}

	doc.Tags = dedupeStrings(append(append(
		stringSliceField(hit.Fields, FieldTagEn),
		stringSliceField(hit.Fields, FieldTagJa)...),
		stringSliceField(hit.Fields, FieldTagNgram)...))

	doc.WatchID = int64Field(hit.Fields, FieldWatchID)
	doc.CreatedAt = timeField(hit.Fields, FieldCreatedAt)
	doc.ModifiedAt = timeField(hit.Fields, FieldModifiedAt)

	if snippet := firstNonEmptyFragment(hit.Fragments, FieldContentsEn, FieldContentsJa, FieldContentsNgram); snippet != "" {
		doc.Highlight = &snippet
	}

	return doc
}

func firstNonEmptyFragment(fragments map[string][]string, fields ...string) string {
	for _, field := range fields {
		if frags, ok := fragments[field]; ok && len(frags) > 0 && frags[0] != "" {
			return frags[0]
		}
	}
	return ""
}

// GetAllDocuments returns every indexed document, ordered by modified_at descending.
func (r *Reader) GetAllDocuments(offset, limit int) (SearchResults, error) {
	return r.doQueryAndBuildResults(bleve.NewMatchAllQuery(), SortDate, offset, limit)
}

// CountDocumentsUnderPath counts documents whose path is strictly nested
// under path (a trailing-slash prefix match, not an exact match).
func (r *Reader) CountDocumentsUnderPath(path string) (uint32, error) {
	normalized := pathnorm.Normalize(path)
	pattern := regexpQuoteSlashPrefix(normalized)
	q := bleve.NewRegexpQuery(pattern)
	q.SetField(FieldPath)
	return r.count(q)
}

// CountDocumentsByPath counts documents with exactly this path (0 or 1).
func (r *Reader) CountDocumentsByPath(path string) (uint32, error) {
	normalized := pathnorm.Normalize(path)
	q := bleve.NewTermQuery(normalized)
	q.SetField(FieldPath)
	return r.count(q)
}

func (r *Reader) count(q query.Query) (uint32, error) {
	req := bleve.NewSearchRequestOptions(q, 0, 0, false)
	result, err := r.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("searchengine: count: %w", err)
	}
	return uint32(result.Total), nil
}

func regexpQuoteSlashPrefix(path string) string {
	escaped := strings.NewReplacer(
		".", `\.`, "+", `\+`, "*", `\*`, "?", `\?`, "(", `\(`, ")", `\)`,
		"[", `\[`, "]", `\]`, "{", `\{`, "}", `\}`, "^", `\^`, "$", `\$`, "|", `\|`,
	).Replace(path)
	return escaped + "/.*"
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func stringField(fields map[string]interface{}, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func stringSliceField(fields map[string]interface{}, name string) []string {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	switch x := v.(type) {
	case string:
		return []string{x}
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func int64Field(fields map[string]interface{}, name string) int64 {
	v, ok := fields[name]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case float64:
		return int64(x)
	case int64:
		return x
	default:
		return 0
	}
}

func timeField(fields map[string]interface{}, name string) time.Time {
	v, ok := fields[name]
	if !ok {
		return time.Time{}
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
