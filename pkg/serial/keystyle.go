package serial

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	casing "github.com/conduit-lang/serialkit/internal/util/strings"
)

// KeyStyle is a naming convention applied to attribute names or wire keys.
type KeyStyle int

const (
	// MatchCase leaves identifiers untouched
	MatchCase KeyStyle = iota
	// TitleCase joins words with an upper-case leading rune (FirstName)
	TitleCase
	// CamelCase is TitleCase with a lower-case leading word (firstName)
	CamelCase
	// UpperCase upper-cases the whole identifier (FIRSTNAME)
	UpperCase
	// LowerCase lower-cases the whole identifier (firstname)
	LowerCase
	// SnakeCase joins lower-cased words with underscores (first_name)
	SnakeCase
	// KebabCase joins lower-cased words with hyphens (first-name)
	KebabCase
)

// String returns the string representation of the key style
func (s KeyStyle) String() string {
	switch s {
	case MatchCase:
		return "match"
	case TitleCase:
		return "title"
	case CamelCase:
		return "camel"
	case UpperCase:
		return "upper"
	case LowerCase:
		return "lower"
	case SnakeCase:
		return "snake"
	case KebabCase:
		return "kebab"
	default:
		return "unknown"
	}
}

// ParseKeyStyle converts a string to a KeyStyle
func ParseKeyStyle(s string) (KeyStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "match", "matchcase", "match_case", "":
		return MatchCase, nil
	case "title", "titlecase", "title_case":
		return TitleCase, nil
	case "camel", "camelcase", "camel_case":
		return CamelCase, nil
	case "upper", "uppercase", "upper_case":
		return UpperCase, nil
	case "lower", "lowercase", "lower_case":
		return LowerCase, nil
	case "snake", "snakecase", "snake_case":
		return SnakeCase, nil
	case "kebab", "kebabcase", "kebab_case":
		return KebabCase, nil
	default:
		return MatchCase, fmt.Errorf("unknown key style: %s", s)
	}
}

// AllKeyStyles returns every supported key style
func AllKeyStyles() []KeyStyle {
	return []KeyStyle{MatchCase, TitleCase, CamelCase, UpperCase, LowerCase, SnakeCase, KebabCase}
}

// Translate maps identifier onto the given style.
// Identifiers shorter than two runes are returned unchanged, as is any
// identifier that has no letters or digits to rebuild from. Title and camel
// case only touch the first rune of an identifier without delimiters, so
// camel to title to camel always gives back the input.
func Translate(identifier string, style KeyStyle) string {
	if utf8.RuneCountInString(identifier) < 2 {
		return identifier
	}

	var translated string
	switch style {
	case TitleCase:
		if compact(identifier) {
			return casing.UpperFirst(identifier)
		}
		translated = casing.ToPascalCase(identifier)
	case CamelCase:
		if compact(identifier) {
			return casing.LowerFirst(identifier)
		}
		translated = casing.ToCamelCase(identifier)
	case UpperCase:
		translated = strings.ToUpper(identifier)
	case LowerCase:
		translated = strings.ToLower(identifier)
	case SnakeCase:
		translated = casing.ToSnakeCase(identifier)
	case KebabCase:
		translated = casing.ToKebabCase(identifier)
	default:
		return identifier
	}

	if translated == "" {
		return identifier
	}
	return translated
}

// compact reports whether s is made only of letters and digits.
func compact(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) < 0
}
