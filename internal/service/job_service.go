package service

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/semaphore"

	"github.com/mediagrab/api/internal/engine"
	"github.com/mediagrab/api/internal/model"
	"github.com/mediagrab/api/internal/registry"
	"github.com/mediagrab/api/internal/websocket"
)

var (
	ErrInvalidFormat = errors.New("invalid format")
	ErrJobNotFound   = errors.New("job not found")
	ErrJobNotReady   = errors.New("job not completed")
)

// JobService orchestrates download jobs: it creates registry records,
// runs one goroutine per job against the engine, and exposes snapshot
// reads for polling. Only that goroutine mutates its job's progress
// and terminal fields.
type JobService struct {
	registry *registry.Registry
	engine   engine.Engine
	hub      *websocket.Hub

	// Caps concurrently active downloads; a job waiting on the
	// semaphore stays visible in queued state.
	active *semaphore.Weighted

	downloadDir  string
	maxFileBytes int64
}

func NewJobService(reg *registry.Registry, eng engine.Engine, hub *websocket.Hub, downloadDir string, maxActive, maxFileSizeMB int) *JobService {
	if maxActive <= 0 {
		maxActive = 1
	}
	return &JobService{
		registry:     reg,
		engine:       eng,
		hub:          hub,
		active:       semaphore.NewWeighted(int64(maxActive)),
		downloadDir:  downloadDir,
		maxFileBytes: int64(maxFileSizeMB) * 1024 * 1024,
	}
}

// Submit validates the request, creates the job record and launches
// its execution. It returns as soon as the queued record exists;
// engine failures are never reported here, only via polling.
func (s *JobService) Submit(req *model.SubmitRequest) (*model.SubmitResponse, error) {
	if !req.Format.IsValid() {
		return nil, ErrInvalidFormat
	}

	job := s.registry.Create(req.SourceURL, req.Format)
	go s.run(job)

	return &model.SubmitResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}, nil
}

// Status returns the polling snapshot for a job. Unknown and expired
// jobs are indistinguishable to callers.
func (s *JobService) Status(id string) (*model.StatusResponse, error) {
	job, ok := s.registry.Get(id)
	if !ok || job.Status == model.JobStatusExpired {
		return nil, ErrJobNotFound
	}

	return &model.StatusResponse{
		JobID:      job.ID,
		Status:     job.Status,
		Progress:   job.Progress,
		Error:      job.ErrorMessage,
		Filename:   job.Filename,
		CreatedAt:  job.CreatedAt,
		StartedAt:  job.StartedAt,
		TerminalAt: job.TerminalAt,
	}, nil
}

// Artifact resolves the downloadable file for a completed job.
func (s *JobService) Artifact(id string) (path, filename string, err error) {
	job, ok := s.registry.Get(id)
	if !ok || job.Status == model.JobStatusExpired {
		return "", "", ErrJobNotFound
	}
	if job.Status != model.JobStatusCompleted {
		return "", "", ErrJobNotReady
	}
	return job.OutputPath, job.Filename, nil
}

// run executes a single job to its terminal state. It owns every
// mutating registry call for this job from here on.
func (s *JobService) run(job model.Job) {
	if err := s.active.Acquire(context.Background(), 1); err != nil {
		s.registry.Start(job.ID)
		s.registry.Fail(job.ID, "failed to schedule download")
		return
	}
	defer s.active.Release(1)

	s.registry.Start(job.ID)
	s.hub.BroadcastProgress(job.ID, 0, model.JobStatusRunning)

	progress := func(percent int) {
		s.registry.UpdateProgress(job.ID, percent)
		// Mirror the registry, not the raw callback: the floor has
		// already been applied.
		if snap, ok := s.registry.Get(job.ID); ok && snap.Status == model.JobStatusRunning {
			s.hub.BroadcastProgress(job.ID, snap.Progress, snap.Status)
		}
	}

	result, err := s.engine.Fetch(context.Background(), engine.FetchRequest{
		SourceURL:    job.SourceURL,
		Format:       job.Format,
		OutputDir:    s.downloadDir,
		Tag:          shortTag(job.ID),
		MaxFileBytes: s.maxFileBytes,
	}, progress)

	if err != nil {
		log.Printf("Job %s failed: %v", job.ID, err)
		s.registry.Fail(job.ID, err.Error())
		s.hub.BroadcastError(job.ID, "DOWNLOAD_FAILED", err.Error())
		return
	}

	s.registry.Complete(job.ID, result.OutputPath, result.Filename)
	s.hub.BroadcastComplete(job.ID, result.Filename)
	log.Printf("Job %s completed: %s", job.ID, result.Filename)
}

// shortTag derives the filename tag from the job id, like the first
// uuid block.
func shortTag(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
