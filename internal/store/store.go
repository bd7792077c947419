// Package store persists asynchronous fill jobs, per-field retrieval history
// and confirmed field mappings.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/fieldscout/internal/model"
)

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Domain string          `json:"domain,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// DefaultListLimit caps List when the filter carries no limit.
const DefaultListLimit = 100

// Store keeps fill jobs through their lifecycle.
type Store interface {
	Create(ctx context.Context, domain string, fieldCount int) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	Update(ctx context.Context, job *model.Job) error
	List(ctx context.Context, filter JobFilter) ([]model.Job, error)
	Delete(ctx context.Context, id string) error

	// Field memory
	RememberField(ctx context.Context, m FieldMapping) error
	RecallField(ctx context.Context, domain, fieldName string) (*FieldMapping, error)

	// Retrieval history
	RecordRetrievals(ctx context.Context, jobID, domain string, results []model.FieldResult) error
	History(ctx context.Context, jobID string) ([]HistoryEntry, error)

	Close() error
}

// FieldMapping is a user decision about a discovered form field: keep it
// under its own name, rename it, or drop it.
type FieldMapping struct {
	Domain    string    `json:"domain"`
	FieldName string    `json:"field_name"`
	Keep      bool      `json:"keep"`
	MappedTo  string    `json:"mapped_to,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Target returns the name retrieval should use for the field
func (m *FieldMapping) Target() string {
	if m == nil {
		return ""
	}
	if m.MappedTo != "" {
		return m.MappedTo
	}
	return m.FieldName
}

// HistoryEntry records how one field of a job was resolved.
type HistoryEntry struct {
	JobID       string          `json:"job_id"`
	Domain      string          `json:"domain"`
	FieldName   string          `json:"field_name"`
	Strategy    model.MatchType `json:"strategy"`
	SourceDocID string          `json:"source_doc_id,omitempty"`
	Confidence  float64         `json:"confidence"`
	Value       string          `json:"value,omitempty"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// New opens the configured backend. SQLite stores are migrated before use.
func New(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(cfg.JobTTL), nil
	case "sqlite":
		st, err := NewSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func historyFromResults(jobID, domain string, results []model.FieldResult, now time.Time) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(results))
	for _, r := range results {
		e := HistoryEntry{
			JobID:      jobID,
			Domain:     domain,
			FieldName:  r.Field.Name,
			Strategy:   r.StrategyLabel(),
			RecordedAt: now,
		}
		if r.Match != nil {
			e.SourceDocID = r.Match.SourceDocID
			e.Confidence = r.Match.ConfidenceScore
			e.Value = r.Match.Value()
		}
		entries = append(entries, e)
	}
	return entries
}

func mappingKey(domain, fieldName string) string {
	return domain + "\x00" + strings.ToLower(strings.TrimSpace(fieldName))
}

func notFound(id string) error {
	return eris.Wrapf(model.ErrJobNotFound, "job %s", id)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
