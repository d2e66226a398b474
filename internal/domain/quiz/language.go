package quiz

import (
	"golang.org/x/text/language"
)

// Language is a supported UI/question language.
type Language string

const (
	English    Language = "en"
	Portuguese Language = "pt"
	Spanish    Language = "es"
)

// DefaultLanguage is used whenever a request names no supported language.
const DefaultLanguage = English

// Languages lists the supported languages in matcher preference order.
var Languages = []Language{English, Portuguese, Spanish}

var (
	supportedTags = []language.Tag{language.English, language.Portuguese, language.Spanish}
	matcher       = language.NewMatcher(supportedTags)
)

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case English, Portuguese, Spanish:
		return true
	}
	return false
}

func (l Language) String() string { return string(l) }

// ParseLanguage resolves a BCP 47 tag ("pt-BR", "es_419", "EN") to a supported
// language. ok is false when nothing matches with at least low confidence.
func ParseLanguage(s string) (Language, bool) {
	if s == "" {
		return DefaultLanguage, false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return DefaultLanguage, false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return DefaultLanguage, false
	}
	return Languages[idx], true
}

// NegotiateLanguage picks the language for a request: an explicit query value
// wins, then the Accept-Language header, then DefaultLanguage.
func NegotiateLanguage(query, acceptLanguage string) Language {
	if l, ok := ParseLanguage(query); ok {
		return l
	}
	if acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No {
				return Languages[idx]
			}
		}
	}
	return DefaultLanguage
}

// LocalizedText maps a language to its text.
type LocalizedText map[Language]string

// In returns the text for lang, falling back to English and then to any
// available translation.
func (t LocalizedText) In(lang Language) string {
	if s, ok := t[lang]; ok && s != "" {
		return s
	}
	if s, ok := t[English]; ok && s != "" {
		return s
	}
	for _, l := range Languages {
		if s := t[l]; s != "" {
			return s
		}
	}
	return ""
}
