package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/fieldscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	domain       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'queued',
	field_count  INTEGER NOT NULL DEFAULT 0,
	report       TEXT,
	error        TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS retrieval_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id        TEXT NOT NULL,
	domain        TEXT NOT NULL,
	field_name    TEXT NOT NULL,
	strategy      TEXT NOT NULL,
	source_doc_id TEXT NOT NULL DEFAULT '',
	confidence    REAL NOT NULL DEFAULT 0,
	value         TEXT NOT NULL DEFAULT '',
	recorded_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS field_memory (
	domain     TEXT NOT NULL,
	field_key  TEXT NOT NULL,
	field_name TEXT NOT NULL,
	keep       INTEGER NOT NULL DEFAULT 1,
	mapped_to  TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (domain, field_key)
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_domain ON jobs(domain);
CREATE INDEX IF NOT EXISTS idx_retrieval_history_job_id ON retrieval_history(job_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, domain string, fieldCount int) (*model.Job, error) {
	id := uuid.New().String()
	now := s.now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, domain, status, field_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, domain, string(model.JobQueued), fieldCount, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}

	return &model.Job{
		ID:         id,
		Domain:     domain,
		Status:     model.JobQueued,
		FieldCount: fieldCount,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain, status, field_count, report, error, created_at, updated_at, completed_at
		 FROM jobs WHERE id = ?`, id,
	)
	job, err := scanJob(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	return job, err
}

func (s *SQLiteStore) Update(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = s.now()
	if job.Done() && job.CompletedAt == nil {
		t := job.UpdatedAt
		job.CompletedAt = &t
	}

	var report sql.NullString
	if job.Report != nil {
		data, err := json.Marshal(job.Report)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal report")
		}
		report = sql.NullString{String: string(data), Valid: true}
	}
	var completed sql.NullTime
	if job.CompletedAt != nil {
		completed = sql.NullTime{Time: *job.CompletedAt, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, field_count = ?, report = ?, error = ?, updated_at = ?, completed_at = ?
		 WHERE id = ?`,
		string(job.Status), job.FieldCount, report, job.Error, job.UpdatedAt, completed, job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", job.ID)
	}
	return checkRowsAffected(res, job.ID)
}

func (s *SQLiteStore) List(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, domain, status, field_count, report, error, created_at, updated_at, completed_at
		FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete job %s", id)
	}
	if err := checkRowsAffected(res, id); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM retrieval_history WHERE job_id = ?`, id)
	return eris.Wrapf(err, "sqlite: delete history for job %s", id)
}

// DeleteExpired removes finished jobs last updated before the cutoff
func (s *SQLiteStore) DeleteExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE status IN (?, ?) AND updated_at < ?`,
		string(model.JobCompleted), string(model.JobFailed), cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired jobs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM retrieval_history WHERE job_id NOT IN (SELECT id FROM jobs)`,
	)
	return int(n), eris.Wrap(err, "sqlite: delete orphaned history")
}

func (s *SQLiteStore) RememberField(ctx context.Context, m FieldMapping) error {
	name := strings.TrimSpace(m.FieldName)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO field_memory (domain, field_key, field_name, keep, mapped_to, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(domain, field_key) DO UPDATE SET
			field_name = excluded.field_name,
			keep = excluded.keep,
			mapped_to = excluded.mapped_to,
			updated_at = excluded.updated_at`,
		m.Domain, strings.ToLower(name), name, m.Keep, m.MappedTo, s.now(),
	)
	return eris.Wrapf(err, "sqlite: remember field %q", name)
}

func (s *SQLiteStore) RecallField(ctx context.Context, domain, fieldName string) (*FieldMapping, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT domain, field_name, keep, mapped_to, updated_at FROM field_memory
		 WHERE domain = ? AND field_key = ?`,
		domain, strings.ToLower(strings.TrimSpace(fieldName)),
	)
	var m FieldMapping
	err := row.Scan(&m.Domain, &m.FieldName, &m.Keep, &m.MappedTo, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recall field")
	}
	return &m, nil
}

func (s *SQLiteStore) RecordRetrievals(ctx context.Context, jobID, domain string, results []model.FieldResult) error {
	entries := historyFromResults(jobID, domain, results, s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin history tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO retrieval_history (job_id, domain, field_name, strategy, source_doc_id, confidence, value, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare history insert")
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.JobID, e.Domain, e.FieldName, string(e.Strategy), e.SourceDocID, e.Confidence, e.Value, e.RecordedAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert history for %q", e.FieldName)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit history")
}

func (s *SQLiteStore) History(ctx context.Context, jobID string) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, domain, field_name, strategy, source_doc_id, confidence, value, recorded_at
		 FROM retrieval_history WHERE job_id = ? ORDER BY id`, jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query history")
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var strategy string
		if err := rows.Scan(&e.JobID, &e.Domain, &e.FieldName, &strategy, &e.SourceDocID, &e.Confidence, &e.Value, &e.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history")
		}
		e.Strategy = model.MatchType(strategy)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: history iterate")
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*model.Job, error) {
	var job model.Job
	var status string
	var report sql.NullString
	var completed sql.NullTime

	err := row.Scan(&job.ID, &job.Domain, &status, &job.FieldCount, &report, &job.Error,
		&job.CreatedAt, &job.UpdatedAt, &completed)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(err, "sqlite: job not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}
	job.Status = model.JobStatus(status)
	if report.Valid {
		job.Report = &model.FillReport{}
		if err := json.Unmarshal([]byte(report.String), job.Report); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal report")
		}
	}
	if completed.Valid {
		t := completed.Time
		job.CompletedAt = &t
	}
	return &job, nil
}
