package strings

import (
	"strings"
	"unicode/utf8"

	"github.com/jinzhu/inflection"
)

// Singularize returns the singular form of an identifier.
// Only the last word of a compound identifier is singularized
// (lineItems -> lineItem, movie_ratings -> movie_rating).
func Singularize(s string) string {
	words := SplitWords(s)
	if len(words) == 0 {
		return s
	}
	last := words[len(words)-1]
	if utf8.RuneCountInString(last) < 2 {
		return s
	}
	singular := inflection.Singular(last)
	if singular == "" || singular == last {
		return s
	}
	idx := strings.LastIndex(s, last)
	return s[:idx] + singular + s[idx+len(last):]
}
