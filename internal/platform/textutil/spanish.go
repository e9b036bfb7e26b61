package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases the input and strips combining diacritical marks so that
// "Adiós" and "adios" compare equal.
func Fold(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	folded, _, err := transform.String(foldTransformer, lowered)
	if err != nil {
		return lowered
	}
	return folded
}

// ContainsFolded reports whether haystack contains needle after diacritic folding.
func ContainsFolded(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), Fold(needle))
}

// ContainsAnyFolded reports whether the text contains any of the given phrases
// after diacritic folding.
func ContainsAnyFolded(text string, phrases []string) bool {
	folded := Fold(text)
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(folded, Fold(phrase)) {
			return true
		}
	}
	return false
}

// Tokenize splits the query into lowercase folded search terms, dropping tokens
// of length two or less and any token found in the stop list. When every token
// is dropped the raw folded query is returned as a single term.
func Tokenize(query string, stopwords map[string]struct{}) []string {
	folded := Fold(query)
	if folded == "" {
		return nil
	}

	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		if len([]rune(field)) <= 2 {
			continue
		}
		if stopwords != nil {
			if _, stopped := stopwords[field]; stopped {
				continue
			}
		}
		terms = append(terms, field)
	}

	if len(terms) == 0 {
		return []string{folded}
	}
	return terms
}

// StopwordSet builds a folded lookup set from the given words.
func StopwordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		folded := Fold(word)
		if folded == "" {
			continue
		}
		set[folded] = struct{}{}
	}
	return set
}

// TruncateRunes shortens s to at most limit runes, appending an ellipsis when truncated.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runeCount := []rune(s)
	if len(runeCount) <= limit {
		return s
	}
	return string(runeCount[:limit]) + "..."
}
