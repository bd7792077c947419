package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/fieldscout/internal/model"
)

// MemoryStore keeps jobs in process. Jobs and their history expire after the
// configured TTL; field mappings live until the process exits.
type MemoryStore struct {
	mu       sync.Mutex // serializes read-modify-write on jobs
	jobs     *gocache.Cache
	history  *gocache.Cache
	mappings map[string]FieldMapping
	now      func() time.Time
}

// NewMemory creates a memory store. A non-positive ttl keeps jobs forever.
func NewMemory(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	cleanup := ttl / 2
	if cleanup <= 0 || cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return &MemoryStore{
		jobs:     gocache.New(ttl, cleanup),
		history:  gocache.New(ttl, cleanup),
		mappings: make(map[string]FieldMapping),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, domain string, fieldCount int) (*model.Job, error) {
	now := s.now()
	job := model.Job{
		ID:         uuid.New().String(),
		Domain:     domain,
		Status:     model.JobQueued,
		FieldCount: fieldCount,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs.SetDefault(job.ID, job)
	return &job, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.lookup(id)
	if !ok {
		return nil, notFound(id)
	}
	return &job, nil
}

// Update replaces the stored job and refreshes its expiry
func (s *MemoryStore) Update(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(job.ID); !ok {
		return notFound(job.ID)
	}
	job.UpdatedAt = s.now()
	if job.Done() && job.CompletedAt == nil {
		t := job.UpdatedAt
		job.CompletedAt = &t
	}
	s.jobs.SetDefault(job.ID, *job)
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter JobFilter) ([]model.Job, error) {
	s.mu.Lock()
	items := s.jobs.Items()
	s.mu.Unlock()

	var jobs []model.Job
	for _, item := range items {
		job, ok := item.Object.(model.Job)
		if !ok {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Domain != "" && job.Domain != filter.Domain {
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(jobs) {
			return nil, nil
		}
		jobs = jobs[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(id); !ok {
		return notFound(id)
	}
	s.jobs.Delete(id)
	s.history.Delete(id)
	return nil
}

func (s *MemoryStore) RememberField(_ context.Context, m FieldMapping) error {
	m.FieldName = strings.TrimSpace(m.FieldName)
	m.UpdatedAt = s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[mappingKey(m.Domain, m.FieldName)] = m
	return nil
}

// RecallField returns nil when the field was never confirmed
func (s *MemoryStore) RecallField(_ context.Context, domain, fieldName string) (*FieldMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[mappingKey(domain, fieldName)]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *MemoryStore) RecordRetrievals(_ context.Context, jobID, domain string, results []model.FieldResult) error {
	entries := historyFromResults(jobID, domain, results, s.now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.history.Get(jobID); ok {
		entries = append(prev.([]HistoryEntry), entries...)
	}
	s.history.SetDefault(jobID, entries)
	return nil
}

func (s *MemoryStore) History(_ context.Context, jobID string) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.history.Get(jobID)
	if !ok {
		return nil, nil
	}
	entries := v.([]HistoryEntry)
	return append([]HistoryEntry(nil), entries...), nil
}

// Close flushes everything
func (s *MemoryStore) Close() error {
	s.jobs.Flush()
	s.history.Flush()
	return nil
}

// lookup must be called with mu held
func (s *MemoryStore) lookup(id string) (model.Job, bool) {
	v, ok := s.jobs.Get(id)
	if !ok {
		return model.Job{}, false
	}
	job, ok := v.(model.Job)
	return job, ok
}
