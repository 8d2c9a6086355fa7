// Package strings provides identifier casing helpers shared by the serializer and tooling.
package strings

import (
	"strings"
	"unicode"
)

// SplitWords breaks an identifier into words.
// Boundaries are spaces, underscores, hyphens and other punctuation, plus case
// transitions. Acronyms stay together (HTTPRequest -> HTTP, Request) and digits
// stick to the word they follow.
func SplitWords(s string) []string {
	var words []string
	var current []rune
	runes := []rune(s)

	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(current) > 0 {
			prev := runes[i-1]
			// Start a new word before an uppercase letter if:
			// 1. Previous char is lowercase or a digit
			// 2. Next char is lowercase (for acronyms like HTTPRequest -> HTTP Request)
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				flush()
			} else if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()

	return words
}

// ToSnakeCase converts CamelCase to snake_case
// Handles acronyms properly (HTTPRequest -> http_request)
func ToSnakeCase(s string) string {
	return joinLower(SplitWords(s), "_")
}

// ToKebabCase converts CamelCase to kebab-case
func ToKebabCase(s string) string {
	return joinLower(SplitWords(s), "-")
}

// ToPascalCase upper-cases the first rune of every word and joins them.
// The remaining runes of each word are left untouched so acronyms survive.
func ToPascalCase(s string) string {
	var result strings.Builder
	for _, word := range SplitWords(s) {
		result.WriteString(UpperFirst(word))
	}
	return result.String()
}

// ToCamelCase behaves like ToPascalCase but lower-cases the leading word.
// A leading all-caps acronym is lower-cased entirely (IDNumber -> idNumber).
func ToCamelCase(s string) string {
	words := SplitWords(s)
	if len(words) == 0 {
		return ""
	}

	var result strings.Builder
	if isUpperWord(words[0]) {
		result.WriteString(strings.ToLower(words[0]))
	} else {
		result.WriteString(LowerFirst(words[0]))
	}
	for _, word := range words[1:] {
		result.WriteString(UpperFirst(word))
	}
	return result.String()
}

// UpperFirst upper-cases the first rune of s
func UpperFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// LowerFirst lower-cases the first rune of s
func LowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func joinLower(words []string, sep string) string {
	lowered := make([]string, len(words))
	for i, word := range words {
		lowered[i] = strings.ToLower(word)
	}
	return strings.Join(lowered, sep)
}

// isUpperWord reports whether every letter in word is uppercase.
// Single letters count as acronyms.
func isUpperWord(word string) bool {
	hasLetter := false
	for _, r := range word {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
