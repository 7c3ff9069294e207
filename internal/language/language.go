package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

type entry struct {
	code2   string
	code3   string
	alt3    string
	display string
	dubbing bool
}

// Dubbing targets first, in catalog order.
var languages = []entry{
	{"en", "eng", "", "English", true},
	{"tr", "tur", "", "Turkish", true},
	{"es", "spa", "", "Spanish", true},
	{"fr", "fra", "fre", "French", true},
	{"de", "deu", "ger", "German", true},
	{"it", "ita", "", "Italian", true},
	{"pt", "por", "", "Portuguese", true},
	{"ru", "rus", "", "Russian", true},
	{"ja", "jpn", "", "Japanese", true},
	{"ko", "kor", "", "Korean", true},
	{"zh", "zho", "chi", "Chinese", true},
	{"ar", "ara", "", "Arabic", true},
	{"hi", "hin", "", "Hindi", true},
	{"nl", "nld", "dut", "Dutch", true},
	{"pl", "pol", "", "Polish", true},
	{"sv", "swe", "", "Swedish", false},
	{"da", "dan", "", "Danish", false},
	{"no", "nor", "", "Norwegian", false},
	{"fi", "fin", "", "Finnish", false},
	{"uk", "ukr", "", "Ukrainian", false},
	{"el", "ell", "gre", "Greek", false},
	{"he", "heb", "", "Hebrew", false},
	{"id", "ind", "", "Indonesian", false},
	{"vi", "vie", "", "Vietnamese", false},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		byWord[strings.ToLower(e.display)] = e
	}
}

// Language is a catalog row as served by the API.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Catalog returns the languages offered as dubbing targets.
func Catalog() []Language {
	out := make([]Language, 0, 15)
	for _, e := range languages {
		if e.dubbing {
			out = append(out, Language{Code: e.code2, Name: e.display})
		}
	}
	return out
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Normalize folds a code, name, or BCP 47 tag to its ISO 639-1 base.
// Unrecognized input returns "".
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	tag, err := xlanguage.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	if e := lookup(base.String()); e != nil {
		return e.code2
	}
	if iso3 := base.ISO3(); iso3 != "" {
		if e := lookup(iso3); e != nil {
			return e.code2
		}
	}
	return base.String()
}

// Same reports whether two identifiers refer to the same base language.
// Unknown or empty values never match.
func Same(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

// IsDubbingTarget reports whether code names a catalog language.
func IsDubbingTarget(code string) bool {
	e := lookup(Normalize(code))
	return e != nil && e.dubbing
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Returns "und" for unrecognized input.
func ToISO3(code string) string {
	if e := lookup(Normalize(code)); e != nil {
		return e.code3
	}
	return "und"
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(Normalize(code)); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
