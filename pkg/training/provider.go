package training

import (
	"context"
	"errors"
)

// JobStatus is the lifecycle state of a training job at the provider.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// TrainingRequest describes one model training submission: the selfies the
// user uploaded and the subject descriptor baked into the model.
type TrainingRequest struct {
	ImageURLs     []string
	TriggerPhrase string
	Steps         int
}

// Job is a submitted training job tracked by its provider request ID.
type Job struct {
	RequestID string
	Status    JobStatus
	// ModelURL is set once the job completes: the trained weights location.
	ModelURL string
	// Error describes the failure when Status is StatusFailed.
	Error string
}

// Provider abstracts the model training backend.
type Provider interface {
	// SubmitTraining enqueues a training job and returns its handle.
	SubmitTraining(ctx context.Context, req TrainingRequest) (*Job, error)

	// JobStatus fetches the current state of a previously submitted job.
	JobStatus(ctx context.Context, requestID string) (*Job, error)
}

var (
	ErrNoTrainingImages = errors.New("training: at least one input image is required")
	ErrSubmitFailed     = errors.New("training: job submission failed")
	ErrJobNotFound      = errors.New("training: job not found")
)
