package offices

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ConfigShape tags the interpreted shape of a raw ISP configuration
// value. Legacy rows mix bare names, JSON arrays, section maps, and
// once-more-encoded versions of each, so every raw value is run
// through one tolerant parser instead of ad hoc type checks.
type ConfigShape int

const (
	ShapeEmpty ConfigShape = iota
	ShapeScalar
	ShapeList
	ShapeSectionMap
)

// ParsedConfig is the tagged result of parsing one raw config value.
type ParsedConfig struct {
	Shape    ConfigShape
	Scalar   ispEntry
	List     []ispEntry
	Sections map[string][]ispEntry
}

type ispEntry struct {
	Name        string
	Description string
}

// ParseConfig interprets a raw configuration value. Malformed JSON
// never fails the parse; it degrades to the scalar interpretation and
// the degradation is reported as a warning.
func ParseConfig(raw string) (ParsedConfig, []string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ParsedConfig{Shape: ShapeEmpty}, nil
	}

	var warnings []string
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") || strings.HasPrefix(raw, `"`) {
			warnings = append(warnings, fmt.Sprintf("malformed isp config JSON treated as literal name: %v", err))
		}
		// Otherwise a legacy bare name, which is expected input.
		return ParsedConfig{Shape: ShapeScalar, Scalar: ispEntry{Name: raw}}, warnings
	}

	if s, ok := decoded.(string); ok {
		// Double-encoding defense: the stored value was a JSON string
		// that may wrap another JSON document. Attempt one more decode
		// pass; if it fails, the first result is a literal name.
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			switch inner.(type) {
			case []any, map[string]any:
				decoded = inner
				warnings = append(warnings, "isp config was double-encoded JSON")
			default:
				return ParsedConfig{Shape: ShapeScalar, Scalar: ispEntry{Name: strings.TrimSpace(s)}}, warnings
			}
		} else {
			return ParsedConfig{Shape: ShapeScalar, Scalar: ispEntry{Name: strings.TrimSpace(s)}}, warnings
		}
	}

	switch v := decoded.(type) {
	case []any:
		entries := toEntries(v, &warnings)
		return ParsedConfig{Shape: ShapeList, List: entries}, warnings
	case map[string]any:
		sections := make(map[string][]ispEntry, len(v))
		for section, value := range v {
			section = strings.TrimSpace(section)
			if section == "" {
				section = SectionGeneral
			}
			switch sv := value.(type) {
			case []any:
				sections[section] = toEntries(sv, &warnings)
			default:
				if entry, ok := toEntry(sv); ok {
					sections[section] = []ispEntry{entry}
				}
			}
		}
		return ParsedConfig{Shape: ShapeSectionMap, Sections: sections}, warnings
	default:
		warnings = append(warnings, fmt.Sprintf("isp config has unsupported type %T, treated as literal", decoded))
		return ParsedConfig{Shape: ShapeScalar, Scalar: ispEntry{Name: raw}}, warnings
	}
}

func toEntries(values []any, warnings *[]string) []ispEntry {
	entries := make([]ispEntry, 0, len(values))
	for _, value := range values {
		entry, ok := toEntry(value)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("isp entry of type %T dropped", value))
			continue
		}
		if entry.Name == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func toEntry(value any) (ispEntry, bool) {
	switch v := value.(type) {
	case string:
		return ispEntry{Name: strings.TrimSpace(v)}, true
	case map[string]any:
		name, _ := v["name"].(string)
		description, _ := v["description"].(string)
		return ispEntry{Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)}, true
	default:
		return ispEntry{}, false
	}
}

// ParseProviders derives the office's canonical provider list from its
// raw configuration. Blank entries are dropped, duplicate ids keep the
// first occurrence, and an office whose structured config yields
// nothing falls back to its legacy single-ISP field.
func ParseProviders(o Office) ([]ISPProvider, []string) {
	var providers []ISPProvider
	var warnings []string
	seen := make(map[string]struct{})

	add := func(entry ispEntry, section string) {
		if entry.Name == "" {
			return
		}
		p := NewProvider(entry.Name, section, entry.Description)
		if _, dup := seen[p.ID]; dup {
			return
		}
		seen[p.ID] = struct{}{}
		providers = append(providers, p)
	}

	general, w := ParseConfig(o.GeneralISPs)
	warnings = append(warnings, w...)
	switch general.Shape {
	case ShapeScalar:
		add(general.Scalar, SectionGeneral)
	case ShapeList:
		for _, entry := range general.List {
			add(entry, SectionGeneral)
		}
	case ShapeSectionMap:
		for _, section := range sortedSections(general.Sections) {
			for _, entry := range general.Sections[section] {
				add(entry, section)
			}
		}
	}

	sectioned, w := ParseConfig(o.SectionISPs)
	warnings = append(warnings, w...)
	switch sectioned.Shape {
	case ShapeSectionMap:
		for _, section := range sortedSections(sectioned.Sections) {
			for _, entry := range sectioned.Sections[section] {
				add(entry, section)
			}
		}
	case ShapeScalar:
		add(sectioned.Scalar, SectionGeneral)
	case ShapeList:
		for _, entry := range sectioned.List {
			add(entry, SectionGeneral)
		}
	}

	if len(providers) == 0 && strings.TrimSpace(o.ISPName) != "" {
		add(ispEntry{Name: o.ISPName}, SectionGeneral)
	}

	return providers, warnings
}

func sortedSections(sections map[string][]ispEntry) []string {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveByID re-parses the office configuration and returns the
// provider with the given id.
func ResolveByID(o Office, id string) (ISPProvider, error) {
	providers, _ := ParseProviders(o)
	for _, p := range providers {
		if p.ID == id {
			return p, nil
		}
	}
	return ISPProvider{}, ErrProviderNotFound
}

// MatchTier identifies which branch of the label matching chain
// produced a match.
type MatchTier int

const (
	MatchSectionHint MatchTier = iota
	MatchDisplayName
	MatchParsedLabel
	MatchLegacy
)

// MatchLabel resolves a stored test-record label back to a canonical
// provider. The chain is evaluated in fixed order and stops at the
// first match: an explicit section hint from the record payload, then
// display/bare/stored name equality, then a "Name (Section)" parse of
// the label, then the legacy General interpretation. Legacy records
// predate the section-aware format and must not be mis-bucketed, so
// the order matters.
func MatchLabel(providers []ISPProvider, label, sectionHint string) (ISPProvider, MatchTier) {
	label = strings.TrimSpace(label)
	sectionHint = strings.TrimSpace(sectionHint)

	if sectionHint != "" {
		for _, p := range providers {
			if strings.EqualFold(p.Section, sectionHint) && labelMatches(p, label) {
				return p, MatchSectionHint
			}
		}
		// A hint that matches no known provider falls through to the
		// next tier rather than failing.
	}

	for _, p := range providers {
		if labelMatches(p, label) {
			return p, MatchDisplayName
		}
	}

	if name, section, ok := splitLabel(label); ok {
		for _, p := range providers {
			if strings.EqualFold(p.Name, name) && strings.EqualFold(p.Section, section) {
				return p, MatchParsedLabel
			}
		}
		return NewProvider(name, section, ""), MatchParsedLabel
	}

	return NewProvider(label, SectionGeneral, ""), MatchLegacy
}

func labelMatches(p ISPProvider, label string) bool {
	return strings.EqualFold(p.DisplayName(), label) ||
		strings.EqualFold(p.Name, label) ||
		strings.EqualFold(p.StoredLabel(), label)
}

// splitLabel parses a "Name (Section)" pattern.
func splitLabel(label string) (name, section string, ok bool) {
	if !strings.HasSuffix(label, ")") {
		return "", "", false
	}
	open := strings.LastIndex(label, "(")
	if open <= 0 {
		return "", "", false
	}
	name = strings.TrimSpace(label[:open])
	section = strings.TrimSpace(label[open+1 : len(label)-1])
	if name == "" || section == "" {
		return "", "", false
	}
	return name, section, true
}
