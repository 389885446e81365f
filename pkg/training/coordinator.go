package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lumeoai/lumeo/pkg/subscription"
)

// DefaultTrainingCost is how many photo credits one model training consumes.
const DefaultTrainingCost = 25

// Coordinator gates model training behind the subscription ledger: it checks
// the model limit, charges credits, submits the job, and counts the model.
// A failed submission refunds the charge.
type Coordinator struct {
	subs         subscription.Service
	provider     Provider
	trainingCost int
	logger       *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithTrainingCost overrides the per-training credit charge.
func WithTrainingCost(cost int) CoordinatorOption {
	return func(c *Coordinator) {
		if cost > 0 {
			c.trainingCost = cost
		}
	}
}

// WithCoordinatorLogger sets the structured logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a training coordinator. Panics if subs or provider
// is nil.
func NewCoordinator(subs subscription.Service, provider Provider, opts ...CoordinatorOption) *Coordinator {
	if subs == nil {
		panic("training: subscription.Service is required")
	}
	if provider == nil {
		panic("training: Provider is required")
	}

	c := &Coordinator{
		subs:         subs,
		provider:     provider,
		trainingCost: DefaultTrainingCost,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TrainModel runs the full training admission flow for a user. Credits are
// charged before submission and refunded if the provider rejects the job.
// If counting the model fails after a successful submission, the charge is
// refunded and the error reported; the submitted job keeps running and is
// reconciled when its status is next polled.
func (c *Coordinator) TrainModel(ctx context.Context, userID string, req TrainingRequest) (*Job, error) {
	if !c.subs.CanCreateModel(ctx, userID) {
		return nil, subscription.ErrModelLimitReached
	}

	if _, err := c.subs.ConsumeCredits(ctx, userID, c.trainingCost); err != nil {
		return nil, err
	}

	job, err := c.provider.SubmitTraining(ctx, req)
	if err != nil {
		c.refund(ctx, userID)
		return nil, err
	}

	if _, err := c.subs.IncrementModelsCreated(ctx, userID); err != nil {
		c.refund(ctx, userID)
		return nil, fmt.Errorf("count trained model: %w", err)
	}

	c.logger.InfoContext(ctx, "model training submitted",
		slog.String("user_id", userID),
		slog.String("request_id", job.RequestID),
		slog.Int("credits_charged", c.trainingCost))

	return job, nil
}

// JobStatus reports the provider-side state of a submitted training job.
func (c *Coordinator) JobStatus(ctx context.Context, requestID string) (*Job, error) {
	return c.provider.JobStatus(ctx, requestID)
}

// NewModelID mints the identifier under which a model's inputs and outputs
// are stored.
func NewModelID() string {
	return uuid.NewString()
}

func (c *Coordinator) refund(ctx context.Context, userID string) {
	if _, err := c.subs.RefundCredits(ctx, userID, c.trainingCost); err != nil &&
		!errors.Is(err, subscription.ErrSubscriptionNotFound) {
		c.logger.ErrorContext(ctx, "credit refund failed",
			slog.String("user_id", userID),
			slog.Int("credits", c.trainingCost),
			slog.Any("error", err))
	}
}
