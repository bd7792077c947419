// Package retrieve matches a form field to the document holding its value.
//
// Four strategies are tried in a fixed order (semantic, entity, rule-based,
// keyword), each with its own acceptance threshold. The first accepted
// candidate wins; when none is accepted the field is unresolved. A Retriever
// is read-only after construction and safe for concurrent use.
package retrieve

import (
	"go.uber.org/zap"

	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/extract"
	"github.com/ppiankov/fieldscout/internal/knowledge"
	"github.com/ppiankov/fieldscout/internal/model"
	"github.com/ppiankov/fieldscout/internal/score"
)

// Retriever runs the ordered matching strategies for one domain
type Retriever struct {
	domain  domain.Domain
	profile domain.Profile
	cfg     model.MatchingConfig
	kb      *knowledge.Base
	kbSet   bool
	scorer  *score.Scorer
	values  *extract.ValueExtractor
	logger  *zap.Logger

	strategies []strategy
}

// Option configures a Retriever
type Option func(*Retriever)

// WithLogger enables debug-level strategy traces
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMatchingConfig overrides thresholds and extraction bounds
func WithMatchingConfig(cfg model.MatchingConfig) Option {
	return func(r *Retriever) {
		r.cfg = cfg
	}
}

// WithKnowledgeBase sets the knowledge base used by ranking. A nil base
// disables the knowledge-base factor.
func WithKnowledgeBase(kb *knowledge.Base) Option {
	return func(r *Retriever) {
		r.kb = kb
		r.kbSet = true
	}
}

// New creates a retriever for a domain. Unknown or generic domains get empty
// tables and degrade to zero category/keyword scores.
func New(d domain.Domain, opts ...Option) *Retriever {
	r := &Retriever{
		domain:  d,
		profile: domain.ProfileFor(d),
		cfg:     model.DefaultMatchingConfig(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if !r.kbSet && r.cfg.UseKnowledgeBase {
		r.kb = knowledge.For(d)
	}
	r.scorer = score.NewScorer(r.profile, r.kb)
	r.values = extract.NewValueExtractor(r.cfg.MinValueLength, r.cfg.MaxValueLength)

	r.strategies = []strategy{
		{kind: model.MatchSemantic, threshold: r.cfg.SemanticThreshold, run: r.semanticMatch},
		{kind: model.MatchEntity, threshold: r.cfg.EntityThreshold, run: r.entityMatch},
		{kind: model.MatchRuleBased, threshold: r.cfg.RuleThreshold, run: r.ruleMatch},
		{kind: model.MatchKeyword, threshold: r.cfg.KeywordThreshold, run: r.keywordMatch},
	}
	return r
}

// Domain returns the retriever's domain
func (r *Retriever) Domain() domain.Domain {
	return r.domain
}

// KnowledgeBase returns the knowledge base in use, possibly nil
func (r *Retriever) KnowledgeBase() *knowledge.Base {
	return r.kb
}

// Scorer returns the weighted document scorer
func (r *Retriever) Scorer() *score.Scorer {
	return r.scorer
}

// Attempt records one evaluated strategy
type Attempt struct {
	Strategy  model.MatchType       `json:"strategy"`
	Threshold float64               `json:"threshold"`
	Candidate *model.CandidateMatch `json:"candidate,omitempty"`
	Accepted  bool                  `json:"accepted"`
}

// Retrieve returns the first accepted match, or nil when no strategy clears
// its threshold. It never fails: degenerate input yields nil.
func (r *Retriever) Retrieve(field model.Field, docs []model.Document) *model.RetrievalMatch {
	m, _ := r.Trace(field, docs)
	return m
}

// Trace is Retrieve plus the strategies that were evaluated, in order.
// Strategies after the accepted one are not evaluated.
func (r *Retriever) Trace(field model.Field, docs []model.Document) (*model.RetrievalMatch, []Attempt) {
	attempts := make([]Attempt, 0, len(r.strategies))

	for _, s := range r.strategies {
		c := s.run(field, docs)
		accepted := c != nil && c.Score >= s.threshold
		attempts = append(attempts, Attempt{
			Strategy:  s.kind,
			Threshold: s.threshold,
			Candidate: c,
			Accepted:  accepted,
		})

		if c != nil {
			r.logger.Debug("strategy evaluated",
				zap.String("field", field.Name),
				zap.String("strategy", string(s.kind)),
				zap.String("document", c.DocumentID),
				zap.Float64("score", c.Score),
				zap.Float64("threshold", s.threshold),
				zap.Bool("accepted", accepted),
			)
		}

		if accepted {
			return toMatch(field, c), attempts
		}
	}

	r.logger.Debug("no strategy accepted", zap.String("field", field.Name), zap.Int("documents", len(docs)))
	return nil, attempts
}

// Resolve wraps Retrieve into an outcome carrying either the match or the
// no-match marker
func (r *Retriever) Resolve(field model.Field, docs []model.Document) model.Outcome {
	if m := r.Retrieve(field, docs); m != nil {
		return model.Outcome{Field: field, Match: m}
	}
	return model.Outcome{Field: field, NoMatch: model.NewNoMatch(field.Name)}
}

// Rank orders documents by weighted score for a field. A non-positive topK
// uses the configured default.
func (r *Retriever) Rank(field model.Field, docs []model.Document, topK int) []model.RankedDocument {
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	return r.scorer.Rank(field, docs, topK)
}

func toMatch(field model.Field, c *model.CandidateMatch) *model.RetrievalMatch {
	return &model.RetrievalMatch{
		FieldID:         field.Identifier(),
		FieldName:       field.Name,
		SourceDocID:     c.DocumentID,
		RetrievedValue:  c.ExtractedValue,
		ConfidenceScore: c.Score,
		MatchType:       c.Strategy,
		MatchReason:     c.Reason,
		DomainContext:   c.DomainContext,
	}
}
