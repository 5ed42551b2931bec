package searchengine

import "unicode"

// Language is the detected natural language of a document's body text,
// used to pick which per-language analyzer chain indexed its title and
// contents.
type Language int

const (
	LanguageEnglish Language = 1
	LanguageJapanese Language = 2
)

func (l Language) String() string {
	switch l {
	case LanguageJapanese:
		return "ja"
	default:
		return "en"
	}
}

// DetectLanguage classifies body as Japanese if it contains any Hiragana,
// Katakana, or Han (kanji) code points, English otherwise.
//
// The original system ran a general-purpose statistical language detector
// over the full language set it supported; this stack's ecosystem reach
// (checked across every example repo's go.mod) has no equivalent detector,
// and the schema here only routes between two languages, so a direct
// script-membership check stands in for it.
func DetectLanguage(body string) Language {
	for _, r := range body {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return LanguageJapanese
		}
	}
	return LanguageEnglish
}
