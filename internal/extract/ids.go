package extract

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/starford/maxwell/internal/checksum"
	"github.com/starford/maxwell/internal/models"
)

// Permalink slugs a display name: NFC-normalized, lowercased, every run of
// non-alphanumerics collapsed into a single '-', no leading or trailing '-'.
func Permalink(name string) string {
	name = strings.ToLower(norm.NFC.String(name))
	var b strings.Builder
	dash := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// DatePermalink is the permalink of the date entity for a YYYY-MM-DD date.
func DatePermalink(date string) string { return "date:" + date }

// URLPermalink keys a url entity by a digest of the URL string.
func URLPermalink(url string) string { return "url:" + checksum.Short("url", url, 12) }

// EntityID derives the entity id from its permalink.
func EntityID(permalink string) string { return "entity:" + permalink }

// ObservationID derives the observation id from owner, source line and content.
func ObservationID(entityID string, line int, content string) string {
	return "obs:" + checksum.Short("observation", entityID+":"+strconv.Itoa(line)+":"+content, 16)
}

// RelationID derives the relation id from its endpoints and type.
func RelationID(fromID, toID string, typ models.RelationType) string {
	return "rel:" + checksum.Short("relation", fromID+":"+toID+":"+string(typ), 16)
}
