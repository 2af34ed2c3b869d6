package extract

import (
	"regexp"
	"strings"
)

var commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// StripComments removes every HTML comment from s. An unterminated "<!--"
// drops the rest of the string.
func StripComments(s string) string {
	s = commentRe.ReplaceAllString(s, "")
	if i := strings.Index(s, "<!--"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
