package keyword

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "to": {}, "and": {}, "or": {}, "for": {},
	"in": {}, "on": {}, "at": {}, "by": {}, "with": {}, "from": {}, "into": {},
	"is": {}, "are": {}, "be": {}, "was": {}, "were": {}, "been": {},
	"it": {}, "its": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"as": {}, "i": {}, "we": {}, "you": {}, "my": {}, "our": {}, "your": {},
	"how": {}, "what": {}, "when": {}, "which": {}, "who": {}, "where": {},
	"do": {}, "does": {}, "can": {}, "should": {}, "would": {}, "could": {},
	"need": {}, "want": {}, "some": {}, "any": {}, "via": {}, "about": {},
}

// Normalize case-folds text, strips punctuation, drops stop words and applies
// light plural stemming. Term order and duplicates are preserved.
func Normalize(text string) []string {
	folded := cases.Fold().String(text)

	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, stem(f))
	}
	return out
}

// Terms returns the distinct normalized terms of text in first-seen order
func Terms(text string) []string {
	all := Normalize(text)
	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, t := range all {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// stem strips common English plural endings
func stem(term string) string {
	if len(term) <= 3 {
		return term
	}
	switch {
	case strings.HasSuffix(term, "ies") && len(term) > 4:
		return term[:len(term)-3] + "y"
	case strings.HasSuffix(term, "sses"):
		return term[:len(term)-2]
	case strings.HasSuffix(term, "ss"), strings.HasSuffix(term, "us"), strings.HasSuffix(term, "is"):
		return term
	case strings.HasSuffix(term, "s"):
		return term[:len(term)-1]
	}
	return term
}
