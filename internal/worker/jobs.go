package worker

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/fieldscout/internal/metrics"
	"github.com/ppiankov/fieldscout/internal/model"
	"github.com/ppiankov/fieldscout/internal/pipeline"
	"github.com/ppiankov/fieldscout/internal/store"
)

// Filler fills one form
type Filler interface {
	Fill(ctx context.Context, req pipeline.FillRequest) (*model.FillReport, error)
}

// FillJob runs one stored asynchronous fill request
type FillJob struct {
	JobID   string
	Request pipeline.FillRequest
	Filler  Filler
	Store   store.Store
	Logger  *zap.Logger
}

// FillResult is the outcome of a fill task
type FillResult struct {
	JobID  string
	Name   string // Batch item name, empty for API jobs
	Report *model.FillReport
	Error  error
}

// GetError returns the task error
func (r *FillResult) GetError() error {
	return r.Error
}

// Execute moves the job to running, fills the form and stores the terminal
// state. Store failures are returned; fill failures are recorded on the job.
func (j *FillJob) Execute(ctx context.Context) Result {
	log := j.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("job_id", j.JobID))

	job, err := j.Store.Get(ctx, j.JobID)
	if err != nil {
		return &FillResult{JobID: j.JobID, Error: err}
	}
	job.Status = model.JobRunning
	if err := j.Store.Update(ctx, job); err != nil {
		return &FillResult{JobID: j.JobID, Error: err}
	}

	start := time.Now()
	report, fillErr := j.Filler.Fill(ctx, j.Request)
	if fillErr != nil {
		job.Status = model.JobFailed
		job.Error = fillErr.Error()
		log.Warn("fill job failed", zap.Error(fillErr))
	} else {
		job.Status = model.JobCompleted
		job.Report = report
		if err := j.Store.RecordRetrievals(ctx, j.JobID, job.Domain, report.Fields); err != nil {
			log.Warn("record retrieval history", zap.Error(err))
		}
		log.Info("fill job completed",
			zap.Int("fields", report.Summary.TotalFields),
			zap.Float64("fill_rate", report.Summary.FillRate),
			zap.Duration("duration", time.Since(start)),
		)
	}
	metrics.JobsTotal.WithLabelValues(string(job.Status)).Inc()

	// The terminal state must be stored even when the request was canceled
	if err := j.Store.Update(context.WithoutCancel(ctx), job); err != nil {
		return &FillResult{JobID: j.JobID, Error: err}
	}
	return &FillResult{JobID: j.JobID, Report: report, Error: fillErr}
}

// Dispatcher accepts fill requests, stores them as queued jobs and runs them
// in the background
type Dispatcher struct {
	pool   *Pool
	filler Filler
	store  store.Store
	logger *zap.Logger
	done   chan struct{}
}

// NewDispatcher starts a dispatcher with the given number of workers.
// queueSize bounds jobs waiting for a worker.
func NewDispatcher(ctx context.Context, filler Filler, st store.Store, workers, queueSize int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		pool:   NewPool(ctx, workers, queueSize),
		filler: filler,
		store:  st,
		logger: logger,
		done:   make(chan struct{}),
	}
	d.pool.Start()
	go d.drain()
	return d
}

func (d *Dispatcher) drain() {
	defer close(d.done)
	for res := range d.pool.Results() {
		if err := res.GetError(); err != nil {
			d.logger.Debug("job finished with error", zap.Error(err))
		}
	}
}

// Enqueue stores a queued job and schedules it. A full queue fails the job
// immediately.
func (d *Dispatcher) Enqueue(ctx context.Context, req pipeline.FillRequest) (*model.Job, error) {
	job, err := d.store.Create(ctx, req.Domain, len(req.Fields))
	if err != nil {
		return nil, eris.Wrap(err, "create job")
	}

	task := &FillJob{
		JobID:   job.ID,
		Request: req,
		Filler:  d.filler,
		Store:   d.store,
		Logger:  d.logger,
	}
	if !d.pool.TrySubmit(task) {
		job.Status = model.JobFailed
		job.Error = "job queue is full"
		if err := d.store.Update(ctx, job); err != nil {
			return nil, err
		}
		metrics.JobsTotal.WithLabelValues(string(model.JobFailed)).Inc()
		return job, nil
	}
	return job, nil
}

// Close stops accepting jobs and waits for queued ones until ctx expires,
// then cancels whatever is still running
func (d *Dispatcher) Close(ctx context.Context) error {
	d.pool.Close()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.pool.Shutdown()
		<-d.done
		return eris.Wrap(ctx.Err(), "dispatcher shutdown")
	}
}
