package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fieldscout/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// backends runs a test against both implementations
func backends(t *testing.T, fn func(t *testing.T, st Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory(time.Hour)) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestSQLiteStore(t)) })
}

func sampleReport() *model.FillReport {
	value := "John Doe is the seller of record"
	return &model.FillReport{
		Domain:      "real_estate",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Fields: []model.FieldResult{
			{
				Outcome: model.Outcome{
					Field: model.Field{Name: "Seller Name"},
					Match: &model.RetrievalMatch{
						FieldName:       "Seller Name",
						SourceDocID:     "deed",
						RetrievedValue:  &value,
						ConfidenceScore: 0.72,
						MatchType:       model.MatchRuleBased,
					},
				},
				Validation: &model.ValidationResult{
					FieldName: "Seller Name",
					IsValid:   true,
					Severity:  model.SeverityCritical,
					RuleName:  "required",
				},
			},
			{
				Outcome: model.Outcome{
					Field:   model.Field{Name: "Parcel ID"},
					NoMatch: model.NewNoMatch("Parcel ID"),
				},
			},
		},
		Summary: model.Summary{TotalFields: 2, Matched: 1, Filled: 1, Unresolved: 1, FillRate: 50},
	}
}

func TestStore_JobLifecycle(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		job, err := st.Create(ctx, "real_estate", 2)
		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, model.JobQueued, job.Status)
		assert.False(t, job.Done())

		job.Status = model.JobRunning
		require.NoError(t, st.Update(ctx, job))

		got, err := st.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobRunning, got.Status)
		assert.Nil(t, got.CompletedAt)

		got.Status = model.JobCompleted
		got.Report = sampleReport()
		require.NoError(t, st.Update(ctx, got))

		done, err := st.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, done.Done())
		require.NotNil(t, done.CompletedAt)
		require.NotNil(t, done.Report)
		require.Len(t, done.Report.Fields, 2)
		assert.Equal(t, "John Doe is the seller of record", done.Report.Fields[0].Match.Value())
		assert.Equal(t, model.SeverityCritical, done.Report.Fields[0].Validation.Severity)
		assert.False(t, done.Report.Fields[1].Matched())
		assert.Equal(t, 50.0, done.Report.Summary.FillRate)
	})
}

func TestStore_FailedJobKeepsError(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		job, err := st.Create(ctx, "medical", 1)
		require.NoError(t, err)

		job.Status = model.JobFailed
		job.Error = "load documents: no such file"
		require.NoError(t, st.Update(ctx, job))

		got, err := st.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobFailed, got.Status)
		assert.Equal(t, "load documents: no such file", got.Error)
		assert.Nil(t, got.Report)
	})
}

func TestStore_NotFound(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		_, err := st.Get(ctx, "missing")
		assert.True(t, eris.Is(err, model.ErrJobNotFound))

		err = st.Update(ctx, &model.Job{ID: "missing", Status: model.JobRunning})
		assert.True(t, eris.Is(err, model.ErrJobNotFound))

		err = st.Delete(ctx, "missing")
		assert.True(t, eris.Is(err, model.ErrJobNotFound))
	})
}

func TestStore_ListFilters(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		a, err := st.Create(ctx, "real_estate", 1)
		require.NoError(t, err)
		_, err = st.Create(ctx, "medical", 1)
		require.NoError(t, err)
		c, err := st.Create(ctx, "real_estate", 3)
		require.NoError(t, err)

		c.Status = model.JobCompleted
		require.NoError(t, st.Update(ctx, c))

		all, err := st.List(ctx, JobFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		re, err := st.List(ctx, JobFilter{Domain: "real_estate"})
		require.NoError(t, err)
		assert.Len(t, re, 2)

		completed, err := st.List(ctx, JobFilter{Status: model.JobCompleted})
		require.NoError(t, err)
		require.Len(t, completed, 1)
		assert.Equal(t, c.ID, completed[0].ID)

		queued, err := st.List(ctx, JobFilter{Status: model.JobQueued, Domain: "real_estate"})
		require.NoError(t, err)
		require.Len(t, queued, 1)
		assert.Equal(t, a.ID, queued[0].ID)

		limited, err := st.List(ctx, JobFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		rest, err := st.List(ctx, JobFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})
}

func TestStore_Delete(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		job, err := st.Create(ctx, "legal", 1)
		require.NoError(t, err)
		require.NoError(t, st.RecordRetrievals(ctx, job.ID, "legal", sampleReport().Fields))

		require.NoError(t, st.Delete(ctx, job.ID))

		_, err = st.Get(ctx, job.ID)
		assert.True(t, eris.Is(err, model.ErrJobNotFound))
		history, err := st.History(ctx, job.ID)
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestStore_FieldMemory(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		m, err := st.RecallField(ctx, "real_estate", "Seller Name")
		require.NoError(t, err)
		assert.Nil(t, m)
		assert.Equal(t, "", m.Target())

		require.NoError(t, st.RememberField(ctx, FieldMapping{
			Domain:    "real_estate",
			FieldName: "Seller Name",
			Keep:      true,
			MappedTo:  "Grantor",
		}))

		m, err = st.RecallField(ctx, "real_estate", "  seller name ")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.True(t, m.Keep)
		assert.Equal(t, "Grantor", m.Target())

		// Overwrite: keep the field under its own name
		require.NoError(t, st.RememberField(ctx, FieldMapping{
			Domain:    "real_estate",
			FieldName: "Seller Name",
			Keep:      true,
		}))
		m, err = st.RecallField(ctx, "real_estate", "Seller Name")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "Seller Name", m.Target())

		// Mappings are per domain
		other, err := st.RecallField(ctx, "medical", "Seller Name")
		require.NoError(t, err)
		assert.Nil(t, other)
	})
}

func TestStore_History(t *testing.T) {
	backends(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		job, err := st.Create(ctx, "real_estate", 2)
		require.NoError(t, err)

		require.NoError(t, st.RecordRetrievals(ctx, job.ID, "real_estate", sampleReport().Fields))

		history, err := st.History(ctx, job.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)

		assert.Equal(t, "Seller Name", history[0].FieldName)
		assert.Equal(t, model.MatchRuleBased, history[0].Strategy)
		assert.Equal(t, "deed", history[0].SourceDocID)
		assert.InDelta(t, 0.72, history[0].Confidence, 1e-9)
		assert.Equal(t, "John Doe is the seller of record", history[0].Value)

		assert.Equal(t, "Parcel ID", history[1].FieldName)
		assert.Equal(t, model.MatchNone, history[1].Strategy)
		assert.Empty(t, history[1].SourceDocID)
	})
}

func TestMemoryStore_Expiry(t *testing.T) {
	st := NewMemory(50 * time.Millisecond)
	ctx := context.Background()

	job, err := st.Create(ctx, "finance", 1)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	_, err = st.Get(ctx, job.ID)
	assert.True(t, eris.Is(err, model.ErrJobNotFound))
}

func TestSQLiteStore_DeleteExpired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	old, err := st.Create(ctx, "insurance", 1)
	require.NoError(t, err)
	old.Status = model.JobCompleted
	require.NoError(t, st.Update(ctx, old))

	running, err := st.Create(ctx, "insurance", 1)
	require.NoError(t, err)
	running.Status = model.JobRunning
	require.NoError(t, st.Update(ctx, running))

	st.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	n, err := st.DeleteExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = st.Get(ctx, old.ID)
	assert.True(t, eris.Is(err, model.ErrJobNotFound))
	_, err = st.Get(ctx, running.ID)
	assert.NoError(t, err)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	st, err := New(ctx, model.StoreConfig{Driver: "memory", JobTTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, st)

	st, err = New(ctx, model.StoreConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "jobs.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, st)
	require.NoError(t, st.Close())

	_, err = New(ctx, model.StoreConfig{Driver: "postgres"})
	assert.Error(t, err)
}
