package retrieve

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/fieldscout/internal/features"
	"github.com/ppiankov/fieldscout/internal/model"
)

// capitalizedRe matches runs of capitalized words such as "Date" or "Seller Name"
var capitalizedRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

type strategy struct {
	kind      model.MatchType
	threshold float64
	run       func(field model.Field, docs []model.Document) *model.CandidateMatch
}

// semanticMatch picks the document with the highest whitespace-term Jaccard
// similarity to the query
func (r *Retriever) semanticMatch(field model.Field, docs []model.Document) *model.CandidateMatch {
	query := field.Query()
	queryTerms := termSet(query)

	var best *model.Document
	highest := 0.0
	for i := range docs {
		sc := features.Jaccard(queryTerms, termSet(docs[i].Content))
		if sc > highest {
			highest = sc
			best = &docs[i]
		}
	}
	if best == nil {
		return nil
	}

	return &model.CandidateMatch{
		DocumentID:     best.ID,
		Score:          math.Min(highest, 1.0),
		Strategy:       model.MatchSemantic,
		Reason:         fmt.Sprintf("Content similarity: %.2f", highest),
		ExtractedValue: r.values.Extract(query, best.Content),
		DomainContext:  best.Meta(model.MetaType),
	}
}

// entityMatch returns the first document containing at least the minimum
// share of the field's entities. It does not look for the best document.
func (r *Retriever) entityMatch(field model.Field, docs []model.Document) *model.CandidateMatch {
	entities := extractEntities(field.Name)
	if len(entities) == 0 {
		return nil
	}

	for _, doc := range docs {
		content := strings.ToLower(doc.Content)

		found := 0
		for _, e := range entities {
			if strings.Contains(content, strings.ToLower(e)) {
				found++
			}
		}
		if found == 0 {
			continue
		}

		confidence := math.Min(float64(found)/float64(len(entities)), 1.0)
		if confidence < r.cfg.EntityMinCoverage {
			continue
		}

		return &model.CandidateMatch{
			DocumentID:     doc.ID,
			Score:          confidence,
			Strategy:       model.MatchEntity,
			Reason:         fmt.Sprintf("Entity match: %d/%d entities found", found, len(entities)),
			ExtractedValue: r.values.Extract(field.Name, doc.Content),
			DomainContext:  doc.Meta(model.MetaType),
		}
	}
	return nil
}

// ruleMatch consults the domain rule table. The first rule whose keyword
// occurs in the field name and a document carrying section or type metadata
// with a rule keyword in its content yields a fixed confidence.
func (r *Retriever) ruleMatch(field model.Field, docs []model.Document) *model.CandidateMatch {
	name := strings.ToLower(field.Name)

	for _, rule := range r.profile.Rules {
		if !containsAny(name, rule.Keywords) {
			continue
		}

		for _, doc := range docs {
			if doc.Meta(model.MetaSection) == "" && doc.Meta(model.MetaType) == "" {
				continue
			}
			if !containsAny(strings.ToLower(doc.Content), rule.Keywords) {
				continue
			}

			return &model.CandidateMatch{
				DocumentID:     doc.ID,
				Score:          r.cfg.RuleConfidence,
				Strategy:       model.MatchRuleBased,
				Reason:         "Domain rule matched: " + rule.Name,
				ExtractedValue: r.values.Extract(field.Name, doc.Content),
				DomainContext:  doc.Meta(model.MetaType),
			}
		}
	}
	return nil
}

// keywordMatch is the fallback: token Jaccard between the query and document
// content plus metadata values, boosted when the document section occurs in
// the query. The best document must also clear the internal gate.
func (r *Retriever) keywordMatch(field model.Field, docs []model.Document) *model.CandidateMatch {
	query := field.Query()
	lowerQuery := strings.ToLower(query)
	queryTokens := features.TokenSet(query)

	var best *model.Document
	highest := 0.0
	for i := range docs {
		doc := &docs[i]
		sim := features.Jaccard(queryTokens, features.TokenSet(searchable(*doc)))

		if section := strings.ToLower(doc.Meta(model.MetaSection)); section != "" && strings.Contains(lowerQuery, section) {
			sim *= r.cfg.SectionBoost
		}

		if sim > highest {
			highest = sim
			best = doc
		}
	}

	if best == nil || highest <= r.cfg.KeywordGate {
		return nil
	}

	return &model.CandidateMatch{
		DocumentID:     best.ID,
		Score:          math.Min(highest, 1.0),
		Strategy:       model.MatchKeyword,
		Reason:         fmt.Sprintf("Keyword overlap: %.2f", highest),
		ExtractedValue: r.values.Extract(query, best.Content),
		DomainContext:  best.Meta(model.MetaType),
	}
}

// extractEntities returns capitalized word runs and words longer than three
// characters, deduplicated in first-seen order
func extractEntities(text string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(e string) {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}

	for _, e := range capitalizedRe.FindAllString(text, -1) {
		add(e)
	}
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) > 3 {
			add(w)
		}
	}
	return out
}

// termSet splits lowercased text on whitespace
func termSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, t := range strings.Fields(strings.ToLower(text)) {
		set[t] = struct{}{}
	}
	return set
}

// searchable joins content with metadata values
func searchable(doc model.Document) string {
	var b strings.Builder
	b.WriteString(doc.Content)
	for _, v := range doc.Metadata {
		b.WriteString(" ")
		b.WriteString(v)
	}
	return b.String()
}

func containsAny(lowerText string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowerText, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
