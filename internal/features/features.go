// Package features derives structured features from a field name and its context.
package features

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/fieldscout/internal/domain"
)

// GeneralCategory is assigned when no domain category keyword hits
const GeneralCategory = "general"

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// FieldFeatures is the derived feature set of one field
type FieldFeatures struct {
	Tokens          []string `json:"tokens"`
	Length          int      `json:"length"`
	HasNumbers      bool     `json:"has_numbers"`
	HasSpecialChars bool     `json:"has_special_chars"`
	HasCaps         bool     `json:"has_caps"`
	Category        string   `json:"category"`
	DomainKeywords  []string `json:"domain_keywords"`
}

// Tokenize lowercases text and splits it into maximal runs of word characters.
// Duplicates are kept.
func Tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// TokenSet returns the distinct tokens of text
func TokenSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, t := range Tokenize(text) {
		set[t] = struct{}{}
	}
	return set
}

// Jaccard is |a ∩ b| / |a ∪ b|, 0 when either set is empty
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Extractor computes features against one domain profile
type Extractor struct {
	profile domain.Profile
}

// NewExtractor creates an extractor for a domain profile
func NewExtractor(profile domain.Profile) *Extractor {
	return &Extractor{profile: profile}
}

// Profile returns the profile the extractor was built with
func (e *Extractor) Profile() domain.Profile {
	return e.profile
}

// Extract builds the feature set. Category and domain keywords come from the
// field name only; context contributes tokens.
func (e *Extractor) Extract(fieldName, context string) FieldFeatures {
	tokens := Tokenize(fieldName + " " + context)
	lowerName := strings.ToLower(fieldName)

	return FieldFeatures{
		Tokens:          tokens,
		Length:          len(tokens),
		HasNumbers:      strings.IndexFunc(fieldName, unicode.IsDigit) >= 0,
		HasSpecialChars: strings.IndexFunc(fieldName, isSpecial) >= 0,
		HasCaps:         strings.IndexFunc(fieldName, unicode.IsUpper) >= 0,
		Category:        e.categorize(lowerName),
		DomainKeywords:  e.domainKeywords(lowerName),
	}
}

func (e *Extractor) categorize(lowerName string) string {
	for _, group := range e.profile.Categories {
		for _, kw := range group.Keywords {
			if strings.Contains(lowerName, kw) {
				return group.Name
			}
		}
	}
	return GeneralCategory
}

func (e *Extractor) domainKeywords(lowerName string) []string {
	found := []string{}
	for _, group := range e.profile.Categories {
		for _, kw := range group.Keywords {
			if strings.Contains(lowerName, kw) {
				found = append(found, kw)
			}
		}
	}
	return found
}

func isSpecial(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r))
}
