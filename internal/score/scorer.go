package score

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/features"
	"github.com/ppiankov/fieldscout/internal/knowledge"
	"github.com/ppiankov/fieldscout/internal/model"
)

// Factor names
const (
	FactorTokenOverlap   = "token_overlap"
	FactorCategory       = "category_match"
	FactorDomainKeywords = "domain_keyword_match"
	FactorMetadata       = "metadata_match"
	FactorKnowledgeBase  = "knowledge_base_match"
)

// DefaultTopK is used when Rank is called with a non-positive topK
const DefaultTopK = 3

// Factor weights
const (
	WeightTokenOverlap   = 0.25
	WeightCategory       = 0.25
	WeightDomainKeywords = 0.25
	WeightMetadata       = 0.15
	WeightKnowledgeBase  = 0.10
)

// Factor is one weighted sub-score
type Factor struct {
	Name    string  `json:"name"`
	Weight  float64 `json:"weight"`
	Value   float64 `json:"value"`
	Formula string  `json:"formula"`
}

// Breakdown is a field/document score with the factors it was built from
type Breakdown struct {
	Total   float64  `json:"total"`
	Factors []Factor `json:"factors"`
}

// Reason renders the breakdown as a one-line explanation
func (b Breakdown) Reason() string {
	parts := make([]string, 0, len(b.Factors))
	for _, f := range b.Factors {
		parts = append(parts, fmt.Sprintf("%s=%.2f", f.Name, f.Value))
	}
	return fmt.Sprintf("score %.3f (%s)", b.Total, strings.Join(parts, ", "))
}

// Scorer computes weighted field/document similarity for one domain
type Scorer struct {
	extractor *features.Extractor
	kb        *knowledge.Base
}

// NewScorer creates a scorer. kb may be nil, in which case the knowledge-base
// factor is left out and the remaining weights are renormalized.
func NewScorer(profile domain.Profile, kb *knowledge.Base) *Scorer {
	return &Scorer{
		extractor: features.NewExtractor(profile),
		kb:        kb,
	}
}

// Extractor returns the feature extractor used by the scorer
func (s *Scorer) Extractor() *features.Extractor {
	return s.extractor
}

// Score computes the score of a document for a field
func (s *Scorer) Score(field model.Field, doc model.Document) float64 {
	return s.Explain(field, doc).Total
}

// Explain computes the score together with its factor breakdown
func (s *Scorer) Explain(field model.Field, doc model.Document) Breakdown {
	feats := s.extractor.Extract(field.Name, field.Context)
	return s.ScoreFeatures(field.Name, feats, doc)
}

// ScoreFeatures scores precomputed features. The result is in [0, 1].
func (s *Scorer) ScoreFeatures(fieldName string, feats features.FieldFeatures, doc model.Document) Breakdown {
	content := strings.ToLower(doc.Content)

	factors := []Factor{
		{
			Name:    FactorTokenOverlap,
			Weight:  WeightTokenOverlap,
			Value:   s.tokenOverlap(feats, doc.Content),
			Formula: "|field ∩ doc| / |field ∪ doc|",
		},
		{
			Name:    FactorCategory,
			Weight:  WeightCategory,
			Value:   s.categoryMatch(feats, content),
			Formula: "category keywords in doc / category keywords",
		},
		{
			Name:    FactorDomainKeywords,
			Weight:  WeightDomainKeywords,
			Value:   fraction(feats.DomainKeywords, content),
			Formula: "field keywords in doc / field keywords",
		},
		{
			Name:    FactorMetadata,
			Weight:  WeightMetadata,
			Value:   metadataMatch(feats, doc),
			Formula: "min(0.5*[category in type] + 0.1*tokens in section, 1)",
		},
	}

	// Only a knowledge base that recognizes the field contributes a factor,
	// so an unknown term scores exactly as if no knowledge base were supplied.
	if canonical, ok := s.kb.NormalizeTerm(fieldName); ok {
		factors = append(factors, Factor{
			Name:    FactorKnowledgeBase,
			Weight:  WeightKnowledgeBase,
			Value:   s.knowledgeMatch(fieldName, canonical, content),
			Formula: "0.8 canonical in doc, else 0.5 related term in doc",
		})
	}

	var sum, weights float64
	for _, f := range factors {
		sum += f.Value * f.Weight
		weights += f.Weight
	}

	return Breakdown{
		Total:   math.Min(sum/weights, 1.0),
		Factors: factors,
	}
}

// Rank scores every document, drops zero scores, sorts by score descending
// (ties keep input order) and returns at most topK entries.
// A non-positive topK means DefaultTopK.
func (s *Scorer) Rank(field model.Field, docs []model.Document, topK int) []model.RankedDocument {
	feats := s.extractor.Extract(field.Name, field.Context)

	ranked := make([]model.RankedDocument, 0, len(docs))
	for _, doc := range docs {
		sc := s.ScoreFeatures(field.Name, feats, doc).Total
		if sc > 0 {
			ranked = append(ranked, model.RankedDocument{Document: doc, Score: sc})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// Disambiguate picks the candidate name with the highest token Jaccard
// similarity to the field name. The first maximizer wins ties; no candidate
// with a nonzero similarity yields false.
func Disambiguate(fieldName string, candidates []string) (string, bool) {
	fieldTokens := features.TokenSet(fieldName)

	best, bestScore := "", 0.0
	for _, c := range candidates {
		if sc := features.Jaccard(fieldTokens, features.TokenSet(c)); sc > bestScore {
			best, bestScore = c, sc
		}
	}
	return best, bestScore > 0
}

func (s *Scorer) tokenOverlap(feats features.FieldFeatures, content string) float64 {
	fieldSet := make(map[string]struct{}, len(feats.Tokens))
	for _, t := range feats.Tokens {
		fieldSet[t] = struct{}{}
	}
	return features.Jaccard(fieldSet, features.TokenSet(content))
}

func (s *Scorer) categoryMatch(feats features.FieldFeatures, lowerContent string) float64 {
	keywords, ok := s.extractor.Profile().Category(feats.Category)
	if !ok {
		return 0
	}
	return fraction(keywords, lowerContent)
}

func (s *Scorer) knowledgeMatch(fieldName, canonical, lowerContent string) float64 {
	if strings.Contains(lowerContent, strings.ToLower(canonical)) {
		return 0.8
	}
	for _, t := range s.kb.RelatedTerms(fieldName) {
		if strings.Contains(lowerContent, strings.ToLower(t)) {
			return 0.5
		}
	}
	return 0
}

func metadataMatch(feats features.FieldFeatures, doc model.Document) float64 {
	docType := strings.ToLower(doc.Meta(model.MetaType))
	section := strings.ToLower(doc.Meta(model.MetaSection))

	sc := 0.0
	if docType != "" && strings.Contains(docType, feats.Category) {
		sc += 0.5
	}
	if section != "" {
		for _, t := range feats.Tokens {
			if strings.Contains(section, t) {
				sc += 0.1
			}
		}
	}
	return math.Min(sc, 1.0)
}

// fraction is the share of keywords found as substrings of text
func fraction(keywords []string, lowerText string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lowerText, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}
