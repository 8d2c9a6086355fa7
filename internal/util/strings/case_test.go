package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"firstName", []string{"first", "Name"}},
		{"FirstName", []string{"First", "Name"}},
		{"HTTPRequest", []string{"HTTP", "Request"}},
		{"userID", []string{"user", "ID"}},
		{"first_name", []string{"first", "name"}},
		{"first name", []string{"first", "name"}},
		{"kebab-case-key", []string{"kebab", "case", "key"}},
		{"version2Name", []string{"version2", "Name"}},
		{"__id__", []string{"id"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitWords(tt.input))
		})
	}
}

func TestCaseConversions(t *testing.T) {
	tests := []struct {
		input  string
		snake  string
		kebab  string
		pascal string
		camel  string
	}{
		{"firstName", "first_name", "first-name", "FirstName", "firstName"},
		{"HTTPServer", "http_server", "http-server", "HTTPServer", "httpServer"},
		{"user_id", "user_id", "user-id", "UserId", "userId"},
		{"userID", "user_id", "user-id", "UserID", "userID"},
		{"ID", "id", "id", "ID", "id"},
		{"XCoordinate", "x_coordinate", "x-coordinate", "XCoordinate", "xCoordinate"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.snake, ToSnakeCase(tt.input))
			assert.Equal(t, tt.kebab, ToKebabCase(tt.input))
			assert.Equal(t, tt.pascal, ToPascalCase(tt.input))
			assert.Equal(t, tt.camel, ToCamelCase(tt.input))
		})
	}
}

func TestCamelPascalRoundTrip(t *testing.T) {
	for _, input := range []string{"firstName", "userID", "iPhone", "httpServer", "version2Name", "a"} {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, input, ToCamelCase(ToPascalCase(input)))
		})
	}
}

func TestUpperLowerFirst(t *testing.T) {
	assert.Equal(t, "Name", UpperFirst("name"))
	assert.Equal(t, "name", LowerFirst("Name"))
	assert.Equal(t, "", UpperFirst(""))
	assert.Equal(t, "", LowerFirst(""))
	assert.Equal(t, "Élan", UpperFirst("élan"))
}

func TestSingularize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"addresses", "address"},
		{"boxes", "box"},
		{"categories", "category"},
		{"tags", "tag"},
		{"people", "person"},
		{"Children", "Child"},
		{"lineItems", "lineItem"},
		{"line_items", "line_item"},
		{"class", "class"},
		{"statuses", "status"},
		{"movies", "movie"},
		{"indices", "index"},
		{"favoriteMovies", "favoriteMovie"},
		{"equipment", "equipment"},
		{"s", "s"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Singularize(tt.input))
		})
	}
}
