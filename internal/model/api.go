package model

import "time"

// LoginRequest represents the body of POST /auth/login
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// SubmitRequest represents the body of POST /api/jobs
type SubmitRequest struct {
	SourceURL string `json:"source_url" validate:"required,url"`
	Format    Format `json:"format" validate:"required"`
}

// SubmitResponse is returned when a job is accepted
type SubmitResponse struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusResponse is returned when polling a job
type StatusResponse struct {
	JobID      string     `json:"job_id"`
	Status     JobStatus  `json:"status"`
	Progress   int        `json:"progress"`
	Error      string     `json:"error,omitempty"`
	Filename   string     `json:"filename,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	TerminalAt *time.Time `json:"terminalAt,omitempty"`
}

// ProbeRequest represents the body of POST /api/media/probe
type ProbeRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ProbeResponse carries basic media metadata for preview
type ProbeResponse struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  int    `json:"duration"`
	Uploader  string `json:"uploader"`
}

// CookiesStatusResponse describes the stored engine cookie file
type CookiesStatusResponse struct {
	Present bool  `json:"present"`
	Size    int64 `json:"size"`
}
