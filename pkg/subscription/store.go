package subscription

import (
	"context"
	"time"
)

// Store defines the interface for subscription persistence.
// Each user has exactly one subscription, so UserID serves as the primary key.
// Any backend offering get/put by key works; the service layers its own
// per-user serialization on top, so Save may be a plain last-write-wins
// overwrite.
type Store interface {
	// Get retrieves a subscription by user ID.
	// Returns ErrSubscriptionNotFound if no subscription exists; absence is
	// an expected result, not an infrastructure failure.
	Get(ctx context.Context, userID string) (*UserSubscription, error)

	// Save creates or updates a subscription, keyed by UserID.
	Save(ctx context.Context, sub *UserSubscription) error

	// ListDue returns subscriptions whose billing period ended at or before
	// the given time and that still need renewal handling (status active or
	// cancelling). Feeds the periodic renewal job.
	ListDue(ctx context.Context, before time.Time) ([]*UserSubscription, error)
}
