package voices

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	asciiFold    = transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })))
	nonSlugChars = regexp.MustCompile(`[^a-z0-9_]`)
	underscores  = regexp.MustCompile(`_+`)
)

// Slug folds name to lowercase ASCII with runs of other characters collapsed to "_".
func Slug(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = ""
	}
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(folded), "_")
	return strings.Trim(underscores.ReplaceAllString(slug, "_"), "_")
}

// NewVoiceID derives a provider voice id from a display name.
func NewVoiceID(name string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	if slug := Slug(name); slug != "" {
		return slug + "_" + suffix[:8]
	}
	return "voice_" + suffix[:12]
}
