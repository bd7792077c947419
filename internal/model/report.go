package model

import "time"

// FillReport is the complete result of filling a form from source documents
type FillReport struct {
	Domain      string    `json:"domain"`
	GeneratedAt time.Time `json:"generated_at"`

	Fields []FieldResult `json:"fields"` // One entry per requested field, input order

	CrossField []ValidationResult            `json:"cross_field,omitempty"`
	Compliance map[string][]ValidationResult `json:"compliance,omitempty"`

	Summary Summary `json:"summary"`
}

// FieldResult is the retrieval and validation outcome for one field
type FieldResult struct {
	Outcome
	Validation *ValidationResult `json:"validation,omitempty"` // Only for fields with a value
}

// Summary holds the fill statistics
type Summary struct {
	TotalFields   int               `json:"total_fields"`
	Matched       int               `json:"matched"`        // Fields with a matched document
	Filled        int               `json:"filled"`         // Fields with an extracted value
	Unresolved    int               `json:"unresolved"`     // Fields with no match at all
	InvalidValues int               `json:"invalid_values"` // Filled values failing validation
	FillRate      float64           `json:"fill_rate"`      // Filled / total, percent
	ByStrategy    map[MatchType]int `json:"by_strategy"`
	Compliant     bool              `json:"compliant"` // No critical cross-field or compliance finding
}

// FilledForm flattens the report into field name -> value.
// Unresolved fields map to "" so the target form keeps every key.
func (r *FillReport) FilledForm() map[string]string {
	form := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		form[f.Field.Name] = f.Match.Value()
	}
	return form
}

// FormValues returns the filled values keyed by field name, omitting unresolved fields
func (r *FillReport) FormValues() map[string]string {
	form := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		if f.Match.HasValue() {
			form[f.Field.Name] = f.Match.Value()
		}
	}
	return form
}

// JobStatus tracks an asynchronous fill request
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is the stored record of an asynchronous fill request
type Job struct {
	ID          string      `json:"id"`
	Domain      string      `json:"domain"`
	Status      JobStatus   `json:"status"`
	FieldCount  int         `json:"field_count"`
	Report      *FillReport `json:"report,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Done reports whether the job reached a terminal state
func (j *Job) Done() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}
