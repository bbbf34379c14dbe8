package warmup

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a warmup job. Terminal states are final;
// a failed job is only re-run through a manual or scheduled re-trigger.
type Status int

const (
	// StatusPending means the job is created but not yet started.
	StatusPending Status = iota
	// StatusRunning means the job is loading its hot set.
	StatusRunning
	// StatusSucceeded means the job loaded its hot set completely.
	StatusSucceeded
	// StatusFailed means the job stopped on an error.
	StatusFailed
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusRunning:
		return "RUNNING"
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler for JSON responses.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "PENDING":
		*s = StatusPending
	case "RUNNING":
		*s = StatusRunning
	case "SUCCEEDED":
		*s = StatusSucceeded
	case "FAILED":
		*s = StatusFailed
	default:
		return fmt.Errorf("unknown warmup status %q", text)
	}
	return nil
}

// Job records one region warmup attempt.
type Job struct {
	ID          string    `json:"id"`
	Region      string    `json:"region"`
	Status      Status    `json:"status"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
	ItemsLoaded int       `json:"items_loaded"`
	Error       string    `json:"error,omitempty"`
}

func newJob(region string) *Job {
	return &Job{
		ID:     uuid.NewString(),
		Region: region,
		Status: StatusPending,
	}
}
