package model

// MatchType names the strategy that produced a match
type MatchType string

const (
	MatchSemantic  MatchType = "semantic"   // Content-similarity over whitespace terms
	MatchEntity    MatchType = "entity"     // Capitalized sequences and long tokens
	MatchRuleBased MatchType = "rule-based" // Per-domain rule keyword table
	MatchKeyword   MatchType = "keyword"    // Regex-token Jaccard fallback
	MatchNone      MatchType = "none"       // Used only as a metrics/report label
)

// Strategies lists the match types in the order the pipeline tries them
var Strategies = []MatchType{MatchSemantic, MatchEntity, MatchRuleBased, MatchKeyword}

// CandidateMatch is the result of scoring one document for one strategy
type CandidateMatch struct {
	DocumentID     string    `json:"document_id"`
	Score          float64   `json:"score"`
	Strategy       MatchType `json:"strategy"`
	Reason         string    `json:"reason"`
	ExtractedValue *string   `json:"extracted_value,omitempty"`
	DomainContext  string    `json:"domain_context,omitempty"`
}

// RetrievalMatch is the pipeline's accepted match for a field
type RetrievalMatch struct {
	FieldID         string    `json:"field_id"`
	FieldName       string    `json:"field_name"`
	SourceDocID     string    `json:"source_doc_id"`
	RetrievedValue  *string   `json:"retrieved_value"`
	ConfidenceScore float64   `json:"confidence_score"`
	MatchType       MatchType `json:"match_type"`
	MatchReason     string    `json:"match_reason"`
	DomainContext   string    `json:"domain_context"`
}

// HasValue reports whether a clean value was extracted from the matched document
func (m *RetrievalMatch) HasValue() bool {
	return m != nil && m.RetrievedValue != nil
}

// Value returns the retrieved value or ""
func (m *RetrievalMatch) Value() string {
	if !m.HasValue() {
		return ""
	}
	return *m.RetrievedValue
}

// NoMatch marks a field that no strategy could resolve
type NoMatch struct {
	FieldName      string `json:"field_name"`
	Note           string `json:"note"`
	Recommendation string `json:"recommendation"`
}

// NewNoMatch builds the neutral, reviewable no-match marker for a field
func NewNoMatch(fieldName string) *NoMatch {
	return &NoMatch{
		FieldName:      fieldName,
		Note:           "Data not found in source documents",
		Recommendation: "Manual lookup or additional source needed for: " + fieldName,
	}
}

// Outcome carries either a match or a no-match marker, never both
type Outcome struct {
	Field   Field           `json:"field"`
	Match   *RetrievalMatch `json:"match,omitempty"`
	NoMatch *NoMatch        `json:"no_match,omitempty"`
}

// Matched reports whether the outcome holds a match
func (o Outcome) Matched() bool {
	return o.Match != nil
}

// StrategyLabel returns the match type, or "none" for unresolved fields
func (o Outcome) StrategyLabel() MatchType {
	if o.Match == nil {
		return MatchNone
	}
	return o.Match.MatchType
}

// RankedDocument pairs a document with its field score
type RankedDocument struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}
