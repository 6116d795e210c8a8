// Package accessmap provides the archive-specific mapping from free-text data
// access descriptions to access categories.
package accessmap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Sections searched for a matching rule, in order.
const (
	SectionRestriction = "dataRestrctnXPath"
	SectionAccessAlt   = "dataAccessAltXPath"
)

// StatusUnavailable is the category used when no rule matches.
const StatusUnavailable = "unavailable"

// Rule maps one exact description text to an access category.
type Rule struct {
	Content        string `json:"content"`
	AccessCategory string `json:"accessCategory"`
}

// Sections holds the rule lists of one archive, keyed by section name.
type Sections map[string][]Rule

// Mapping holds the rules of every archive, keyed by distributor abbreviation.
type Mapping map[string]Sections

// Parse decodes a mapping file. Unknown sections and sections that are not
// lists of rules are ignored.
func Parse(data []byte) (Mapping, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing access mapping: %w", err)
	}

	m := make(Mapping, len(raw))
	for abbr, sections := range raw {
		parsed := make(Sections)
		for _, name := range []string{SectionRestriction, SectionAccessAlt} {
			data, ok := sections[name]
			if !ok {
				continue
			}
			var rules []Rule
			if err := json.Unmarshal(data, &rules); err != nil {
				continue
			}
			parsed[name] = rules
		}
		m[abbr] = parsed
	}
	return m, nil
}

// Category returns the access category of description for the archive abbr.
// The restriction section is searched before the alternative section and the
// first rule whose content equals description wins. Without a match it
// returns StatusUnavailable.
func (m Mapping) Category(abbr, description string) string {
	sections, ok := m[abbr]
	if !ok {
		return StatusUnavailable
	}
	for _, name := range []string{SectionRestriction, SectionAccessAlt} {
		for _, rule := range sections[name] {
			if rule.Content == description && rule.AccessCategory != "" {
				return rule.AccessCategory
			}
		}
	}
	return StatusUnavailable
}

// IsUnavailable reports whether category means no rule matched.
func IsUnavailable(category string) bool {
	return strings.EqualFold(category, StatusUnavailable)
}
