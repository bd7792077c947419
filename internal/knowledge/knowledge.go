// Package knowledge provides per-domain glossaries: canonical terms, aliases,
// abbreviations, relationships and simple value checks.
package knowledge

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/fieldscout/internal/domain"
)

// TermMapping describes one canonical term of a domain
type TermMapping struct {
	Canonical     string   `json:"canonical" yaml:"canonical"`
	Aliases       []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Category      string   `json:"category" yaml:"category"`
	Abbreviations []string `json:"abbreviations,omitempty" yaml:"abbreviations,omitempty"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Examples      []string `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// ValueCheck is a lightweight plausibility predicate for a field value
type ValueCheck func(value string) bool

// Base is a domain knowledge base. It is read-only after construction.
type Base struct {
	domain        domain.Domain
	glossary      []TermMapping // Ordered: the first matching term wins
	relationships map[string][]string
	abbreviations map[string]string // Upper-case abbreviation -> expansion
	fieldMappings map[string]string // Lower-case field variant -> canonical
	valueChecks   map[string]ValueCheck
}

// For returns the knowledge base for a domain, or nil if none exists
func For(d domain.Domain) *Base {
	build, ok := builders[d]
	if !ok {
		return nil
	}
	return build()
}

// Domain returns the domain this knowledge base covers
func (b *Base) Domain() domain.Domain {
	return b.domain
}

// Terms returns the glossary in definition order
func (b *Base) Terms() []TermMapping {
	out := make([]TermMapping, len(b.glossary))
	copy(out, b.glossary)
	return out
}

// NormalizeTerm returns the canonical form of a term, matching the canonical
// name, an alias or an abbreviation case-insensitively.
func (b *Base) NormalizeTerm(term string) (string, bool) {
	if b == nil {
		return "", false
	}
	t := strings.ToLower(strings.TrimSpace(term))
	for _, m := range b.glossary {
		if t == strings.ToLower(m.Canonical) || containsFold(m.Aliases, t) || containsFold(m.Abbreviations, t) {
			return m.Canonical, true
		}
	}
	return "", false
}

// RelatedTerms returns the canonical form, its aliases, abbreviations and
// related concepts, sorted. Unknown terms yield nil.
func (b *Base) RelatedTerms(term string) []string {
	canonical, ok := b.NormalizeTerm(term)
	if !ok {
		return nil
	}

	set := map[string]bool{}
	for _, m := range b.glossary {
		if m.Canonical != canonical {
			continue
		}
		set[m.Canonical] = true
		for _, a := range m.Aliases {
			set[a] = true
		}
		for _, a := range m.Abbreviations {
			set[a] = true
		}
	}
	for _, r := range b.relationships[canonical] {
		set[r] = true
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MapField resolves a common field-name variant (e.g. "seller name") to a
// canonical term, falling back to NormalizeTerm.
func (b *Base) MapField(fieldName string) (string, bool) {
	if b == nil {
		return "", false
	}
	if c, ok := b.fieldMappings[strings.ToLower(strings.TrimSpace(fieldName))]; ok {
		return c, true
	}
	return b.NormalizeTerm(fieldName)
}

// ExpandAbbreviation expands a domain abbreviation such as "HTN", then falls
// back to glossary abbreviations ("DOB" -> "Date of Birth")
func (b *Base) ExpandAbbreviation(abbr string) (string, bool) {
	if b == nil {
		return "", false
	}
	a := strings.TrimSpace(abbr)
	if exp, ok := b.abbreviations[strings.ToUpper(a)]; ok {
		return exp, true
	}
	t := strings.ToLower(a)
	for _, m := range b.glossary {
		if containsFold(m.Abbreviations, t) {
			return m.Canonical, true
		}
	}
	return "", false
}

// ValidateValue applies the domain's plausibility check for a canonical
// field name. Fields without a check pass.
func (b *Base) ValidateValue(fieldName, value string) bool {
	if b == nil {
		return true
	}
	check, ok := b.valueChecks[fieldName]
	if !ok {
		return true
	}
	return check(value)
}

func containsFold(list []string, lower string) bool {
	for _, s := range list {
		if strings.ToLower(s) == lower {
			return true
		}
	}
	return false
}

func hasDigit(v string) bool {
	return strings.IndexFunc(v, unicode.IsDigit) >= 0
}
