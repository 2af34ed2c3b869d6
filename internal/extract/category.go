package extract

import (
	"regexp"
	"strings"

	"github.com/starford/maxwell/internal/models"
)

var (
	bareURLRe  = regexp.MustCompile(`^https?://\S+$`)
	decisionRe = regexp.MustCompile(`(?i)\b(decided|chose|will use|going to use)\b`)
)

// ReservedHeaders are section titles whose bullets are always references.
var ReservedHeaders = map[string]struct{}{
	"review":    {},
	"links":     {},
	"reading":   {},
	"reference": {},
	"watch":     {},
	"listen":    {},
}

// IsReservedHeader reports whether normalized header text is reserved.
func IsReservedHeader(text string) bool {
	_, ok := ReservedHeaders[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// Categorize assigns an observation category. The first matching rule wins:
// checkbox, reserved header, bare URL, trailing '?', decision verb, note.
func Categorize(content string, isCheckbox, underReservedHeader bool) models.Category {
	content = strings.TrimSpace(content)
	switch {
	case isCheckbox:
		return models.CategoryTask
	case underReservedHeader:
		return models.CategoryReference
	case bareURLRe.MatchString(content):
		return models.CategoryLink
	case strings.HasSuffix(content, "?"):
		return models.CategoryQuestion
	case decisionRe.MatchString(content):
		return models.CategoryDecision
	default:
		return models.CategoryNote
	}
}
