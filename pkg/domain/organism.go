package domain

// DiscoveredOrganism is the encyclopedia entry attached to a growth cycle once
// fruiting bodies form. It is created only by discovery and never mutated.
type DiscoveredOrganism struct {
	Name                  string  `json:"name"`
	Description           string  `json:"description"`
	ImageURL              string  `json:"image_url"`
	TranslatedDescription *string `json:"translated_description,omitempty"`
	// Language is the wiki language the entry was read from.
	Language  string `json:"language,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

// Clone returns a deep copy so callers never share the translation pointer.
func (o *DiscoveredOrganism) Clone() *DiscoveredOrganism {
	if o == nil {
		return nil
	}
	cp := *o
	if o.TranslatedDescription != nil {
		t := *o.TranslatedDescription
		cp.TranslatedDescription = &t
	}
	return &cp
}
