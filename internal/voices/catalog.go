package voices

import "strings"

// Voice is the listing shape shared by standard and cloned voices.
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        Kind   `json:"type"`
	Description string `json:"description"`
}

var standardVoices = []Voice{
	{ID: "alloy", Name: "Alloy", Type: KindStandard, Description: "Neutral and balanced"},
	{ID: "echo", Name: "Echo", Type: KindStandard, Description: "Male voice"},
	{ID: "fable", Name: "Fable", Type: KindStandard, Description: "Warm and expressive"},
	{ID: "onyx", Name: "Onyx", Type: KindStandard, Description: "Deep male voice"},
	{ID: "nova", Name: "Nova", Type: KindStandard, Description: "Female voice"},
	{ID: "shimmer", Name: "Shimmer", Type: KindStandard, Description: "Soft female voice"},
}

// StandardVoices returns a copy of the catalog voice list.
func StandardVoices() []Voice {
	return append([]Voice(nil), standardVoices...)
}

// IsStandard reports whether id names a catalog voice.
func IsStandard(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, v := range standardVoices {
		if v.ID == id {
			return true
		}
	}
	return false
}

// Listing merges the catalog with cloned profiles, catalog first.
func Listing(profiles []Profile) []Voice {
	out := StandardVoices()
	for _, p := range profiles {
		desc := p.Description
		if strings.TrimSpace(desc) == "" {
			desc = "Custom cloned voice"
		}
		out = append(out, Voice{
			ID:          p.ID,
			Name:        p.Name + " (Cloned)",
			Type:        KindCloned,
			Description: desc,
		})
	}
	return out
}
