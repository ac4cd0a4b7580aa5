// package models defines the data model for the restora client
package models

import (
	"time"
)

// Session is the decoded identity and validity window derived from the
// backend-issued access token. It is never constructed directly by the
// client; session.Guard produces it by decoding a persisted token.
type Session struct {
	SubjectID   string
	DisplayName string
	Email       string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the session's validity window has passed at the
// given instant.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// JobStatus enumerates the backend's processing states for a job.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// Job is a read-only projection of a server-tracked restoration job.
type Job struct {
	ID         int64     `json:"id"`
	ImageName  string    `json:"imageName"`
	StorageKey string    `json:"key"`
	CreatedAt  time.Time `json:"createdAt"`
	Status     JobStatus `json:"status"`
	OwnerID    int64     `json:"userId"`
}

// JobPage is one window of a paginated job listing, normalized from the
// backend's envelope.
type JobPage struct {
	Jobs     []Job
	Total    int
	Page     int
	LastPage int
}

// FileRef describes a local file selected for upload. Size and ContentType
// are informational; the pipeline reads content from Path when the upload
// starts.
type FileRef struct {
	Name        string
	Path        string
	Size        int64
	ContentType string
}
