package offices

import "strings"

// SectionGeneral is the section assigned to providers that are not
// tied to a specific organizational section.
const SectionGeneral = "General"

// ISPProvider is a canonical (name, section) identity derived from an
// office's configuration. It is never persisted; identical
// configuration always re-derives identical providers.
type ISPProvider struct {
	ID          string
	Name        string
	Section     string
	Description string
}

// DisplayName is the human-readable name: the bare name, or
// "name (description)" when a description exists.
func (p ISPProvider) DisplayName() string {
	if p.Description == "" {
		return p.Name
	}
	return p.Name + " (" + p.Description + ")"
}

// StoredLabel is the label written on captured test records: the bare
// name for General providers, otherwise "Name (Section)".
func (p ISPProvider) StoredLabel() string {
	if p.Section == "" || strings.EqualFold(p.Section, SectionGeneral) {
		return p.Name
	}
	return p.Name + " (" + p.Section + ")"
}

// NewProvider derives a provider with its deterministic id.
func NewProvider(name, section, description string) ISPProvider {
	name = strings.TrimSpace(name)
	section = strings.TrimSpace(section)
	if section == "" {
		section = SectionGeneral
	}
	description = strings.TrimSpace(description)
	return ISPProvider{
		ID:          ProviderID(name, section, description),
		Name:        name,
		Section:     section,
		Description: description,
	}
}

// ProviderID derives the stable identifier for a (name, section,
// description) triple. The same logical ISP always resolves to the
// same id across repeated parses of unchanged configuration.
func ProviderID(name, section, description string) string {
	id := normalizeToken(name) + "::" + normalizeToken(section)
	if description != "" {
		id += "::" + normalizeToken(description)
	}
	return id
}

func normalizeToken(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), "-")
}
