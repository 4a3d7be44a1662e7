package codefirst

import "strings"

// pluralize returns the English plural of an identifier, enough for entity
// set and table names derived from type names.
func pluralize(s string) string {
	lower := strings.ToLower(s)

	switch {
	case s == "":
		return s
	case strings.HasSuffix(lower, "y") && len(s) > 1 && !isVowel(lower[len(lower)-2]):
		return s[:len(s)-1] + "ies"
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"), strings.HasSuffix(lower, "z"),
		strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"):
		return s + "es"
	default:
		return s + "s"
	}
}

func isVowel(c byte) bool {
	return strings.IndexByte("aeiou", c) >= 0
}
