// Package registry holds the in-memory job store. It is the single
// source of truth for job state; every other component mutates jobs
// only through its operations.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediagrab/api/internal/model"
)

// record pairs a job with its own lock so transitions on one job
// never serialize against unrelated jobs. The registry-wide mutex
// only guards the id map.
type record struct {
	mu  sync.Mutex
	job model.Job
}

// Registry is a concurrency-safe store of job records keyed by
// opaque random ids.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*record
}

func New() *Registry {
	return &Registry{
		records: make(map[string]*record),
	}
}

// Create inserts a fresh job in queued state and returns a snapshot.
func (r *Registry) Create(sourceURL string, format model.Format) model.Job {
	job := model.Job{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		Format:    format,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.records[job.ID] = &record{job: job}
	r.mu.Unlock()

	return job
}

// Get returns a snapshot of the job, if it exists.
func (r *Registry) Get(id string) (model.Job, bool) {
	rec := r.lookup(id)
	if rec == nil {
		return model.Job{}, false
	}
	rec.mu.Lock()
	job := rec.job
	rec.mu.Unlock()
	return job, true
}

// Start transitions queued -> running. No-op for any other state.
func (r *Registry) Start(id string) {
	rec := r.lookup(id)
	if rec == nil {
		return
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.job.Status != model.JobStatusQueued {
		return
	}
	now := time.Now()
	rec.job.Status = model.JobStatusRunning
	rec.job.StartedAt = &now
}

// UpdateProgress raises the progress of a running job. Updates are
// ignored unless the job is running, and a lower percentage than the
// current one never wins (engine callbacks may arrive out of order).
func (r *Registry) UpdateProgress(id string, percent int) {
	rec := r.lookup(id)
	if rec == nil {
		return
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.job.Status != model.JobStatusRunning {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > rec.job.Progress {
		rec.job.Progress = percent
	}
}

// Complete transitions running -> completed and records the artifact
// path. Idempotent: once a job is terminal, later terminal calls are
// no-ops, so duplicate engine callbacks collapse to one transition.
func (r *Registry) Complete(id, outputPath, filename string) {
	rec := r.lookup(id)
	if rec == nil {
		return
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.job.Status != model.JobStatusRunning {
		return
	}
	now := time.Now()
	rec.job.Status = model.JobStatusCompleted
	rec.job.Progress = 100
	rec.job.OutputPath = outputPath
	rec.job.Filename = filename
	rec.job.TerminalAt = &now
}

// Fail transitions running -> failed and records the cause. Same
// idempotence contract as Complete.
func (r *Registry) Fail(id, errMsg string) {
	rec := r.lookup(id)
	if rec == nil {
		return
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.job.Status != model.JobStatusRunning {
		return
	}
	now := time.Now()
	rec.job.Status = model.JobStatusFailed
	rec.job.ErrorMessage = errMsg
	rec.job.TerminalAt = &now
}

// Expire transitions a terminal job to expired and forgets its
// artifact path. Live jobs and already-expired jobs are untouched:
// the sweeper must never reach into a queued or running job.
func (r *Registry) Expire(id string) {
	rec := r.lookup(id)
	if rec == nil {
		return
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.job.Status.IsTerminal() {
		return
	}
	rec.job.Status = model.JobStatusExpired
	rec.job.OutputPath = ""
}

// Terminal returns snapshots of completed/failed jobs whose terminal
// timestamp precedes the cutoff.
func (r *Registry) Terminal(olderThan time.Time) []model.Job {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	var out []model.Job
	for _, rec := range recs {
		rec.mu.Lock()
		if rec.job.Status.IsTerminal() && rec.job.TerminalAt != nil && rec.job.TerminalAt.Before(olderThan) {
			out = append(out, rec.job)
		}
		rec.mu.Unlock()
	}
	return out
}

func (r *Registry) lookup(id string) *record {
	r.mu.RLock()
	rec := r.records[id]
	r.mu.RUnlock()
	return rec
}
