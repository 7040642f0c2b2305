// Package inflect converts Go identifiers into collection and field names.
package inflect

import (
	"strings"
	"unicode"
)

// Snake converts an identifier in MixedCaps to snake_case. Runs of capitals
// are treated as a single word, so "AuthorID" becomes "author_id" and
// "HTTPServer" becomes "http_server".
func Snake(s string) string {
	runes := []rune(s)

	var sb strings.Builder
	for i, ch := range runes {
		if unicode.IsUpper(ch) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				sb.WriteRune('_')
			}
		}
		sb.WriteRune(unicode.ToLower(ch))
	}

	return sb.String()
}

// Pluralize returns the English plural of a lower-case noun using the regular
// suffix rules. Irregular nouns are not handled.
func Pluralize(s string) string {
	if s == "" {
		return s
	}

	for _, suffix := range []string{"s", "x", "z", "ch", "sh"} {
		if strings.HasSuffix(s, suffix) {
			return s + "es"
		}
	}

	if strings.HasSuffix(s, "y") && len(s) > 1 && !strings.ContainsRune("aeiou", rune(s[len(s)-2])) {
		return s[:len(s)-1] + "ies"
	}

	return s + "s"
}

// CollectionName gives the name of the collection that holds entities of the
// type with the given name; "BlogPost" gives "blog_posts".
func CollectionName(typeName string) string {
	return Pluralize(Snake(typeName))
}
