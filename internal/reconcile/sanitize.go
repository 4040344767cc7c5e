package reconcile

import (
	"regexp"
	"strings"
)

// noise matches release-format suffixes that catalog titles usually omit.
var noise = regexp.MustCompile(`(?i)original mix|extended mix|club mix|radio edit`)

var parens = strings.NewReplacer("(", "", ")", "")

// Sanitize strips store-specific noise from a track title so it can be used as
// a catalog search term. Titles with no noise phrase and no parentheses are
// returned unchanged; otherwise whitespace left by the removal is collapsed.
func Sanitize(title string) string {
	if !noise.MatchString(title) && !strings.ContainsAny(title, "()") {
		return title
	}
	s := noise.ReplaceAllString(title, "")
	s = parens.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
