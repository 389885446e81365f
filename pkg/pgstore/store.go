package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumeoai/lumeo/pkg/pg"
	"github.com/lumeoai/lumeo/pkg/subscription"
)

// Store implements subscription.Store on PostgreSQL. One row per user,
// written with an upsert so Save never needs to know whether the record
// already exists.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL-backed subscription store.
// Panics if pool is nil.
func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("pgstore: pgxpool.Pool is required")
	}
	return &Store{pool: pool}
}

const getQuery = `
SELECT user_id, plan_id, status, current_period_start, current_period_end,
       billing_cycle, cancel_at_period_end, available_credits, models_created,
       created_at, updated_at
FROM user_subscriptions
WHERE user_id = $1`

// Get retrieves the subscription for a user.
func (s *Store) Get(ctx context.Context, userID string) (*subscription.UserSubscription, error) {
	var sub subscription.UserSubscription
	err := s.pool.QueryRow(ctx, getQuery, userID).Scan(
		&sub.UserID,
		&sub.PlanID,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.BillingCycle,
		&sub.CancelAtPeriodEnd,
		&sub.AvailableCredits,
		&sub.ModelsCreated,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

const saveQuery = `
INSERT INTO user_subscriptions (
	user_id, plan_id, status, current_period_start, current_period_end,
	billing_cycle, cancel_at_period_end, available_credits, models_created,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (user_id) DO UPDATE SET
	plan_id = EXCLUDED.plan_id,
	status = EXCLUDED.status,
	current_period_start = EXCLUDED.current_period_start,
	current_period_end = EXCLUDED.current_period_end,
	billing_cycle = EXCLUDED.billing_cycle,
	cancel_at_period_end = EXCLUDED.cancel_at_period_end,
	available_credits = EXCLUDED.available_credits,
	models_created = EXCLUDED.models_created,
	updated_at = EXCLUDED.updated_at`

// Save upserts the subscription keyed by its UserID.
func (s *Store) Save(ctx context.Context, sub *subscription.UserSubscription) error {
	_, err := s.pool.Exec(ctx, saveQuery,
		sub.UserID,
		sub.PlanID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.BillingCycle,
		sub.CancelAtPeriodEnd,
		sub.AvailableCredits,
		sub.ModelsCreated,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

const listDueQuery = `
SELECT user_id, plan_id, status, current_period_start, current_period_end,
       billing_cycle, cancel_at_period_end, available_credits, models_created,
       created_at, updated_at
FROM user_subscriptions
WHERE status IN ($1, $2) AND current_period_end <= $3
ORDER BY current_period_end`

// ListDue returns subscriptions whose billing period ended at or before the
// given time and that still need renewal handling.
func (s *Store) ListDue(ctx context.Context, before time.Time) ([]*subscription.UserSubscription, error) {
	rows, err := s.pool.Query(ctx, listDueQuery,
		subscription.StatusActive, subscription.StatusCancelling, before)
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	defer rows.Close()

	var due []*subscription.UserSubscription
	for rows.Next() {
		var sub subscription.UserSubscription
		if err := rows.Scan(
			&sub.UserID,
			&sub.PlanID,
			&sub.Status,
			&sub.CurrentPeriodStart,
			&sub.CurrentPeriodEnd,
			&sub.BillingCycle,
			&sub.CancelAtPeriodEnd,
			&sub.AvailableCredits,
			&sub.ModelsCreated,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan subscription row: %w", err)
		}
		due = append(due, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription rows: %w", err)
	}
	return due, nil
}
