package dto

import "github.com/dmarceau/streamgate/internal/domain"

type JobResponse struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	Stage     string  `json:"stage"`
	Title     string  `json:"title,omitempty"`
	TotalSize string  `json:"total_size,omitempty"`
	ETA       string  `json:"eta,omitempty"`
	SourceURL string  `json:"source_url"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	Error     string  `json:"error,omitempty"`
	Progress  float64 `json:"progress"`
}

func NewJobResponse(j domain.Job) JobResponse {
	resp := JobResponse{
		ID:        j.ID,
		Status:    string(j.Status),
		Stage:     j.Stage,
		Title:     j.Title,
		TotalSize: j.TotalSize,
		ETA:       j.ETA,
		SourceURL: j.SourceURL,
		Progress:  j.Progress,
		CreatedAt: j.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: j.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if j.Error != nil {
		resp.Error = *j.Error
	}
	return resp
}
