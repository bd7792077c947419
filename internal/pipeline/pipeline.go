// Package pipeline fills a target form from source documents: every field is
// retrieved, its value validated, and the filled form checked as a whole.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/fieldscout/internal/cache"
	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/metrics"
	"github.com/ppiankov/fieldscout/internal/model"
	"github.com/ppiankov/fieldscout/internal/retrieve"
	"github.com/ppiankov/fieldscout/internal/store"
	"github.com/ppiankov/fieldscout/internal/validate"
)

// FillRequest is one form to fill
type FillRequest struct {
	Domain    string           `json:"domain"`
	Fields    []model.Field    `json:"fields"`
	Documents []model.Document `json:"documents"`
}

// Validate checks the request at the input boundary and resolves its domain
func (r FillRequest) Validate() (domain.Domain, error) {
	d, err := domain.Parse(r.Domain)
	if err != nil {
		return "", err
	}
	for _, field := range r.Fields {
		if err := field.Validate(); err != nil {
			return "", err
		}
	}
	if err := model.ValidateDocuments(r.Documents); err != nil {
		return "", err
	}
	return d, nil
}

// Filler orchestrates retrieval and validation for whole forms.
// It is safe for concurrent use.
type Filler struct {
	matching model.MatchingConfig
	workers  int
	cache    cache.Cache
	cacheTTL time.Duration
	memory   store.Store // field memory; nil disables it
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	retrievers map[domain.Domain]*retrieve.Retriever
}

// Option configures a Filler
type Option func(*Filler)

// WithCache memoizes reports of identical requests
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(f *Filler) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithFieldMemory applies confirmed field mappings before retrieval
func WithFieldMemory(st store.Store) Option {
	return func(f *Filler) {
		f.memory = st
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(f *Filler) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFiller creates a filler. Fields of one form are resolved by up to
// cfg.Concurrency.FieldWorkers goroutines.
func NewFiller(cfg *model.Config, opts ...Option) *Filler {
	f := &Filler{
		matching:   cfg.Matching,
		workers:    cfg.Concurrency.FieldWorkers,
		cache:      cache.Nop{},
		logger:     zap.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
		retrievers: make(map[domain.Domain]*retrieve.Retriever),
	}
	if f.workers <= 0 {
		f.workers = 1
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Retriever returns the shared retriever for a domain
func (f *Filler) Retriever(d domain.Domain) *retrieve.Retriever {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.retrievers[d]
	if !ok {
		r = retrieve.New(d,
			retrieve.WithMatchingConfig(f.matching),
			retrieve.WithLogger(f.logger),
		)
		f.retrievers[d] = r
	}
	return r
}

// plannedField is a requested field plus the name retrieval and validation use
type plannedField struct {
	field model.Field
	query model.Field
}

// Fill resolves every field of the request. Fields dropped through field
// memory are left out of the report; every other field appears once, in
// input order, either matched or marked for manual lookup.
func (f *Filler) Fill(ctx context.Context, req FillRequest) (*model.FillReport, error) {
	d, err := req.Validate()
	if err != nil {
		return nil, err
	}

	planned, err := f.plan(ctx, d, req.Fields)
	if err != nil {
		return nil, err
	}

	queries := make([]string, len(planned))
	for i, p := range planned {
		queries[i] = p.query.Name
	}
	key, err := cache.RequestKey(d.String(), req.Fields, queries, req.Documents, f.matching)
	if err != nil {
		return nil, err
	}
	var cached model.FillReport
	if cache.GetJSON(f.cache, key, &cached) {
		metrics.CacheTotal.WithLabelValues("hit").Inc()
		f.logger.Debug("fill served from cache", zap.String("domain", d.String()))
		cached.GeneratedAt = f.now()
		return &cached, nil
	}
	metrics.CacheTotal.WithLabelValues("miss").Inc()

	retriever := f.Retriever(d)
	outcomes := make([]model.Outcome, len(planned))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, p := range planned {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = resolveAs(retriever, p, req.Documents)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "resolve fields")
	}

	report := f.buildReport(d, planned, outcomes)

	if err := cache.SetJSON(f.cache, key, report, f.cacheTTL); err != nil {
		f.logger.Warn("cache fill report", zap.Error(err))
	}

	f.logger.Info("form filled",
		zap.String("domain", d.String()),
		zap.Int("fields", report.Summary.TotalFields),
		zap.Int("filled", report.Summary.Filled),
		zap.Float64("fill_rate", report.Summary.FillRate),
	)
	return report, nil
}

// plan applies field memory: renamed fields are retrieved under their mapped
// name, fields the user chose not to keep are dropped. Abbreviated names
// ("DOB") are retrieved under their glossary expansion unless memory maps them.
func (f *Filler) plan(ctx context.Context, d domain.Domain, fields []model.Field) ([]plannedField, error) {
	kb := f.Retriever(d).KnowledgeBase()
	planned := make([]plannedField, 0, len(fields))
	for _, field := range fields {
		p := plannedField{field: field, query: field}
		if exp, ok := kb.ExpandAbbreviation(field.Name); ok {
			p.query.Name = exp
		}
		if f.memory != nil {
			m, err := f.memory.RecallField(ctx, d.String(), field.Name)
			if err != nil {
				return nil, eris.Wrapf(err, "recall field %q", field.Name)
			}
			if m != nil && !m.Keep {
				f.logger.Debug("field dropped by memory", zap.String("field", field.Name))
				continue
			}
			if target := m.Target(); target != "" {
				p.query.Name = target
			}
		}
		planned = append(planned, p)
	}
	return planned, nil
}

// resolveAs retrieves under the query name and reports under the requested one
func resolveAs(r *retrieve.Retriever, p plannedField, docs []model.Document) model.Outcome {
	out := r.Resolve(p.query, docs)
	out.Field = p.field
	if out.Match != nil {
		out.Match.FieldID = p.field.Identifier()
		out.Match.FieldName = p.field.Name
	} else {
		out.NoMatch = model.NewNoMatch(p.field.Name)
	}
	return out
}

func (f *Filler) buildReport(d domain.Domain, planned []plannedField, outcomes []model.Outcome) *model.FillReport {
	engine := validate.NewEngine(d)
	report := &model.FillReport{
		Domain:      d.String(),
		GeneratedAt: f.now(),
		Fields:      make([]model.FieldResult, len(outcomes)),
	}
	summary := model.Summary{
		TotalFields: len(outcomes),
		ByStrategy:  make(map[model.MatchType]int),
	}
	form := make(validate.Form, len(outcomes))

	for i, out := range outcomes {
		res := model.FieldResult{Outcome: out}
		strategy := out.StrategyLabel()
		summary.ByStrategy[strategy]++

		if out.Matched() {
			summary.Matched++
			metrics.ObserveRetrieval(d.String(), string(strategy), out.Match.ConfidenceScore)
		} else {
			summary.Unresolved++
			metrics.ObserveRetrieval(d.String(), string(model.MatchNone), 0)
		}

		if out.Match.HasValue() {
			summary.Filled++
			name := planned[i].query.Name
			v := engine.ValidateField(name, out.Match.RetrievedValue)
			res.Validation = &v
			if !v.IsValid {
				summary.InvalidValues++
				metrics.ValidationFailuresTotal.WithLabelValues(d.String(), v.Severity.String()).Inc()
			}
			form[name] = out.Match.Value()
		}
		report.Fields[i] = res
	}

	report.CrossField = engine.ValidateCrossFields(form)
	report.Compliance = engine.CheckCompliance(form)

	summary.Compliant = compliant(report)
	if summary.TotalFields > 0 {
		summary.FillRate = float64(summary.Filled) / float64(summary.TotalFields) * 100
	}
	report.Summary = summary
	return report
}

// compliant is false when any cross-field or compliance finding is critical
func compliant(r *model.FillReport) bool {
	for _, v := range r.CrossField {
		if !v.IsValid && v.Severity == model.SeverityCritical {
			return false
		}
	}
	for _, findings := range r.Compliance {
		for _, v := range findings {
			if !v.IsValid && v.Severity == model.SeverityCritical {
				return false
			}
		}
	}
	return true
}
