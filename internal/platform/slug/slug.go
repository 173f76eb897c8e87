package slug

import (
	"regexp"
	"strings"
)

var separators = regexp.MustCompile(`[^a-z0-9]+`)

// Make lowercases input and collapses everything except letters and digits
// into single dashes. Empty results become "session".
func Make(input string) string {
	s := separators.ReplaceAllString(strings.ToLower(strings.TrimSpace(input)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "session"
	}
	return s
}
