// Package domain holds the closed set of business verticals and their static
// vocabulary tables. Domain differences are data, not types.
package domain

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/fieldscout/internal/model"
)

// Domain identifies a business vertical
type Domain string

const (
	RealEstate Domain = "real_estate"
	Medical    Domain = "medical"
	Insurance  Domain = "insurance"
	Finance    Domain = "finance"
	Legal      Domain = "legal"

	// Generic has empty tables; scoring degrades instead of failing
	Generic Domain = "generic"
)

// KeywordGroup is a named keyword list. Order matters: the first group
// whose keyword hits wins.
type KeywordGroup struct {
	Name     string
	Keywords []string
}

// Profile is the static configuration consumed by the matching core
type Profile struct {
	Domain Domain

	// Categories drive feature extraction and the category/keyword score factors
	Categories []KeywordGroup

	// Rules drive the domain-rule matching strategy
	Rules []KeywordGroup
}

// Category returns the keyword list for a category name
func (p Profile) Category(name string) ([]string, bool) {
	for _, g := range p.Categories {
		if g.Name == name {
			return g.Keywords, true
		}
	}
	return nil, false
}

// All returns the five configured domains in a stable order
func All() []Domain {
	out := make([]Domain, 0, len(profiles))
	for d := range profiles {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Parse resolves a domain key. Unknown keys fail fast.
func Parse(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if d == Generic {
		return Generic, nil
	}
	if _, ok := profiles[d]; !ok {
		return "", eris.Wrapf(model.ErrUnknownDomain, "%q (supported: %s)", s, joinDomains())
	}
	return d, nil
}

// ProfileFor returns the domain's tables. Generic yields an empty profile.
func ProfileFor(d Domain) Profile {
	if p, ok := profiles[d]; ok {
		return p
	}
	return Profile{Domain: d}
}

func (d Domain) String() string {
	return string(d)
}

func joinDomains() string {
	names := make([]string, 0, len(profiles))
	for _, d := range All() {
		names = append(names, string(d))
	}
	return strings.Join(names, ", ")
}
