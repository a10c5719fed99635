package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-digitizer/constants"
)

// Job is one document waiting to be structured.
type Job struct {
	ID          uuid.UUID
	Path        string
	Languages   []string // empty means the configured defaults
	SubmittedAt time.Time
	TraceID     string
}

// JobState is the last known state of a submitted job.
type JobState struct {
	ID          uuid.UUID           `json:"id"`
	Path        string              `json:"path"`
	Status      constants.JobStatus `json:"status"`
	ResultID    *uuid.UUID          `json:"result_id,omitempty"`
	Error       string              `json:"error,omitempty"`
	SubmittedAt time.Time           `json:"submitted_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) (uuid.UUID, error)
	Status(id uuid.UUID) (JobState, bool)
	Shutdown(ctx context.Context)
}
