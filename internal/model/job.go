package model

import "time"

// Job represents one download job tracked by the registry.
type Job struct {
	ID           string     `json:"id"`
	SourceURL    string     `json:"sourceUrl"`
	Format       Format     `json:"format"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`
	OutputPath   string     `json:"-"` // set only on completion, never exposed
	Filename     string     `json:"filename,omitempty"`
	ErrorMessage string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	TerminalAt   *time.Time `json:"terminalAt,omitempty"`
}
