package corrector

import "strings"

func isTitle(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) == string(r[0]) && strings.ToLower(string(r[1:])) == string(r[1:])
}

func isUpper(s string) bool { return strings.ToUpper(s) == s && strings.ToLower(s) != s }

func title(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
}

// matchCase gives a stored lower-case word the casing the user is typing in.
// Words stored with their own capitals are left alone.
func matchCase(stored, typed string) string {
	if strings.ToLower(stored) != stored {
		return stored
	}
	switch {
	case len([]rune(typed)) > 1 && isUpper(typed):
		return strings.ToUpper(stored)
	case isTitle(typed) && strings.ToLower(typed) != typed:
		return title(stored)
	}
	return stored
}
