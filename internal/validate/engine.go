// Package validate checks retrieved values against per-domain field rules,
// cross-field rules and compliance checks.
package validate

import (
	"sync"
	"time"

	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/knowledge"
	"github.com/ppiankov/fieldscout/internal/model"
)

// Form maps field names to values. Missing and empty values count as absent.
type Form map[string]string

// CrossFieldRule checks a relationship between several fields
type CrossFieldRule struct {
	Name  string
	Check func(Form) (bool, string)
}

// ComplianceRule reports zero or more findings for a form
type ComplianceRule struct {
	Name  string
	Check func(form Form, now time.Time) []model.ValidationResult
}

// Table is the validation configuration of one domain
type Table struct {
	Fields     map[string]FieldRule
	CrossField []CrossFieldRule
	Compliance []ComplianceRule
}

// Engine validates forms for one domain and keeps an audit trail.
// It is safe for concurrent use.
type Engine struct {
	domain domain.Domain
	table  Table
	kb     *knowledge.Base
	now    func() time.Time

	mu    sync.Mutex
	audit []model.ValidationResult
}

// NewEngine creates the engine for a domain. Domains without a table get an
// engine that accepts every field.
func NewEngine(d domain.Domain) *Engine {
	return &Engine{
		domain: d,
		table:  TableFor(d),
		kb:     knowledge.For(d),
		now:    time.Now,
	}
}

// Domain returns the engine's domain
func (e *Engine) Domain() domain.Domain {
	return e.domain
}

// ValidateField validates one value. Fields without a rule are valid; if the
// domain knowledge base recognizes the field and finds the value implausible
// the result is a warning.
func (e *Engine) ValidateField(name string, value *string) model.ValidationResult {
	rule, ok := e.table.Fields[name]
	if !ok {
		if res, checked := e.knowledgeCheck(name, value); checked {
			e.record(res)
			return res
		}
		return model.ValidationResult{
			FieldName: name,
			IsValid:   true,
			Severity:  model.SeverityInfo,
			Message:   "No specific validation rules",
			RuleName:  "none",
			Timestamp: e.now(),
		}
	}

	valid, msg := rule.Check(value)
	res := model.ValidationResult{
		FieldName: name,
		IsValid:   valid,
		Severity:  severityFor(valid),
		Message:   msg,
		RuleName:  name,
		Timestamp: e.now(),
	}
	e.record(res)
	return res
}

func (e *Engine) knowledgeCheck(name string, value *string) (model.ValidationResult, bool) {
	if e.kb == nil || value == nil {
		return model.ValidationResult{}, false
	}
	canonical, ok := e.kb.MapField(name)
	if !ok || e.kb.ValidateValue(canonical, *value) {
		return model.ValidationResult{}, false
	}
	return model.ValidationResult{
		FieldName: name,
		IsValid:   false,
		Severity:  model.SeverityWarning,
		Message:   "Value does not look like a " + canonical,
		RuleName:  "knowledge_base",
		Timestamp: e.now(),
	}, true
}

// ValidateCrossFields runs every cross-field rule in table order
func (e *Engine) ValidateCrossFields(form Form) []model.ValidationResult {
	results := make([]model.ValidationResult, 0, len(e.table.CrossField))
	for _, rule := range e.table.CrossField {
		valid, msg := rule.Check(form)
		results = append(results, model.ValidationResult{
			FieldName: model.CrossFieldName,
			IsValid:   valid,
			Severity:  severityFor(valid),
			Message:   msg,
			RuleName:  rule.Name,
			Timestamp: e.now(),
		})
	}
	e.record(results...)
	return results
}

// CheckCompliance runs every compliance rule. Each rule appears in the result,
// with an empty list when it has no findings.
func (e *Engine) CheckCompliance(form Form) map[string][]model.ValidationResult {
	results := make(map[string][]model.ValidationResult, len(e.table.Compliance))
	for _, rule := range e.table.Compliance {
		findings := rule.Check(form, e.now())
		if findings == nil {
			findings = []model.ValidationResult{}
		}
		results[rule.Name] = findings
		e.record(findings...)
	}
	return results
}

// AuditTrail returns a copy of every recorded result in order
func (e *Engine) AuditTrail() []model.ValidationResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.ValidationResult, len(e.audit))
	copy(out, e.audit)
	return out
}

func (e *Engine) record(results ...model.ValidationResult) {
	if len(results) == 0 {
		return
	}
	e.mu.Lock()
	e.audit = append(e.audit, results...)
	e.mu.Unlock()
}

func severityFor(valid bool) model.Severity {
	if valid {
		return model.SeverityInfo
	}
	return model.SeverityCritical
}
