package model

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusExpired   JobStatus = "expired"
)

// IsTerminal reports whether the status is completed or failed.
// Expired is the post-terminal state reached only by the sweeper.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Output formats
type Format string

const (
	FormatVideoBest    Format = "video-best"
	FormatVideo1080p   Format = "video-1080p"
	FormatVideo720p    Format = "video-720p"
	FormatVideo480p    Format = "video-480p"
	FormatAudioExtract Format = "audio-extract"
)

var ValidFormats = []Format{
	FormatVideoBest, FormatVideo1080p, FormatVideo720p,
	FormatVideo480p, FormatAudioExtract,
}

// IsValid reports whether f is a recognized output format.
func (f Format) IsValid() bool {
	for _, v := range ValidFormats {
		if f == v {
			return true
		}
	}
	return false
}

// IsAudio reports whether f produces an audio-only artifact.
func (f Format) IsAudio() bool {
	return f == FormatAudioExtract
}

// Height returns the maximum video height for capped formats, or 0
// when no cap applies.
func (f Format) Height() int {
	switch f {
	case FormatVideo1080p:
		return 1080
	case FormatVideo720p:
		return 720
	case FormatVideo480p:
		return 480
	default:
		return 0
	}
}
