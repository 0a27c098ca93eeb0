package domain

import "time"

type JobStatus string

const (
	JobStatusInitializing JobStatus = "initializing"
	JobStatusDownloading  JobStatus = "downloading"
	JobStatusStreaming    JobStatus = "streaming"
	JobStatusCompleted    JobStatus = "completed"
	JobStatusFailed       JobStatus = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one tracked invocation of the external download tool, from request
// to terminal state. Snapshots are passed by value; the registry owns the
// canonical copy.
type Job struct {
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Error           *string   `json:"error,omitempty"`
	ID              string    `json:"id"`
	Status          JobStatus `json:"status"`
	Stage           string    `json:"stage"`
	Title           string    `json:"title,omitempty"`
	TotalSize       string    `json:"total_size,omitempty"`
	ETA             string    `json:"eta,omitempty"`
	SourceURL       string    `json:"source_url"`
	RequestedFormat string    `json:"requested_format,omitempty"`
	OutputPath      string    `json:"-"`
	Progress        float64   `json:"progress"`
}

// Update is a partial change to a job. Nil fields leave the corresponding
// attribute untouched.
type Update struct {
	Status     *JobStatus
	Progress   *float64
	Stage      *string
	Title      *string
	TotalSize  *string
	ETA        *string
	OutputPath *string
	Error      *string
}

func StatusPtr(s JobStatus) *JobStatus { return &s }
func Float64Ptr(f float64) *float64    { return &f }
func StringPtr(s string) *string       { return &s }
