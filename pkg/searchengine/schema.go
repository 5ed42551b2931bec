package searchengine

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/ngram"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names in the search document. Each text field carries exactly one
// tokenizer's output: _en and _ja hold language-specific stemmed/stopworded
// tokens, _ngram holds character bigrams usable regardless of language, and
// path is indexed literally for exact/prefix/regex matching.
const (
	FieldPath           = "path"
	FieldPathComponents = "path_components"
	FieldPathNgram      = "path_ngram"
	FieldLanguage       = "language"
	FieldTitleEn        = "title_en"
	FieldTitleJa        = "title_ja"
	FieldTitleNgram     = "title_ngram"
	FieldContentsEn     = "contents_en"
	FieldContentsJa     = "contents_ja"
	FieldContentsNgram  = "contents_ngram"
	FieldTagEn          = "tag_en"
	FieldTagJa          = "tag_ja"
	FieldTagNgram       = "tag_ngram"
	FieldCreatedAt      = "created_at"
	FieldModifiedAt     = "modified_at"
	FieldWatchID        = "watch_id"

	ngramAnalyzerName = "notebit_ngram"
	ngramFilterName   = "notebit_ngram_2_2"
)

// TitleFieldForLanguage returns the language-specific title field for lang.
func TitleFieldForLanguage(lang Language) string {
	if lang == LanguageJapanese {
		return FieldTitleJa
	}
	return FieldTitleEn
}

// ContentsFieldForLanguage returns the language-specific contents field for lang.
func ContentsFieldForLanguage(lang Language) string {
	if lang == LanguageJapanese {
		return FieldContentsJa
	}
	return FieldContentsEn
}

// TagFieldForLanguage returns the language-specific tag field for lang.
func TagFieldForLanguage(lang Language) string {
	if lang == LanguageJapanese {
		return FieldTagJa
	}
	return FieldTagEn
}

// TitleFields lists every title field across languages plus ngram.
func TitleFields() []string { return []string{FieldTitleEn, FieldTitleJa, FieldTitleNgram} }

// TitleLanguageFields lists the language-specific (non-ngram) title fields.
func TitleLanguageFields() []string { return []string{FieldTitleEn, FieldTitleJa} }

// ContentsFields lists every contents field across languages plus ngram.
func ContentsFields() []string {
	return []string{FieldContentsEn, FieldContentsJa, FieldContentsNgram}
}

// ContentsLanguageFields lists the language-specific (non-ngram) contents fields.
func ContentsLanguageFields() []string { return []string{FieldContentsEn, FieldContentsJa} }

// TagFields lists every tag field across languages plus ngram.
func TagFields() []string { return []string{FieldTagEn, FieldTagJa, FieldTagNgram} }

// TagLanguageFields lists the language-specific (non-ngram) tag fields.
func TagLanguageFields() []string { return []string{FieldTagEn, FieldTagJa} }

// AllTagFieldNames lists every field a single tag's text is written to,
// used to build the "does this document carry tag T" disjunction.
func AllTagFieldNames() []string { return TagFields() }

// BuildIndexMapping constructs the bleve index mapping: one document type
// with per-field analyzers matching the field's tokenizer/stemmer needs.
func BuildIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = en.AnalyzerName

	if err := im.AddCustomTokenFilter(ngramFilterName, map[string]interface{}{
		"type": ngram.Name,
		"min":  2.0,
		"max":  2.0,
	}); err != nil {
		return nil, err
	}
	if err := im.AddCustomAnalyzer(ngramAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, ngramFilterName},
	}); err != nil {
		return nil, err
	}

	doc := bleve.NewDocumentMapping()

	literalField := bleve.NewTextFieldMapping()
	literalField.Analyzer = "keyword"
	doc.AddFieldMappingsAt(FieldPath, literalField)
	doc.AddFieldMappingsAt(FieldPathComponents, literalField)

	ngramField := bleve.NewTextFieldMapping()
	ngramField.Analyzer = ngramAnalyzerName
	doc.AddFieldMappingsAt(FieldPathNgram, ngramField)
	doc.AddFieldMappingsAt(FieldTitleNgram, ngramField)
	doc.AddFieldMappingsAt(FieldContentsNgram, ngramField)
	doc.AddFieldMappingsAt(FieldTagNgram, ngramField)

	enField := bleve.NewTextFieldMapping()
	enField.Analyzer = en.AnalyzerName
	doc.AddFieldMappingsAt(FieldTitleEn, enField)
	doc.AddFieldMappingsAt(FieldContentsEn, enField)
	doc.AddFieldMappingsAt(FieldTagEn, enField)

	jaField := bleve.NewTextFieldMapping()
	jaField.Analyzer = cjk.AnalyzerName
	doc.AddFieldMappingsAt(FieldTitleJa, jaField)
	doc.AddFieldMappingsAt(FieldContentsJa, jaField)
	doc.AddFieldMappingsAt(FieldTagJa, jaField)

	numericField := bleve.NewNumericFieldMapping()
	doc.AddFieldMappingsAt(FieldLanguage, numericField)
	doc.AddFieldMappingsAt(FieldWatchID, numericField)

	dateField := bleve.NewDateTimeFieldMapping()
	doc.AddFieldMappingsAt(FieldCreatedAt, dateField)
	doc.AddFieldMappingsAt(FieldModifiedAt, dateField)

	im.DefaultMapping = doc
	return im, nil
}
