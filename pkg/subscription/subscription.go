package subscription

import "time"

// UserSubscription is the single mutable record the core manages: one per
// user, created on first purchase and mutated by every service operation.
type UserSubscription struct {
	UserID             string // opaque identifier supplied by the external identity provider
	PlanID             Tier
	Status             Status
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	BillingCycle       BillingCycle
	CancelAtPeriodEnd  bool
	AvailableCredits   int
	ModelsCreated      int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsActive reports whether the subscription currently grants access.
// A cancelling subscription stays usable until the period ends.
func (s *UserSubscription) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusCancelling
}

// IsCancelling reports whether cancellation was requested but the paid
// period has not elapsed yet.
func (s *UserSubscription) IsCancelling() bool {
	return s.Status == StatusCancelling
}

// PeriodExpiredAt reports whether the billing period has elapsed at the
// given time. Useful for testing with fixed clocks.
func (s *UserSubscription) PeriodExpiredAt(now time.Time) bool {
	return !now.Before(s.CurrentPeriodEnd)
}

// periodEnd computes the end of a billing period started at start.
func periodEnd(start time.Time, cycle BillingCycle) time.Time {
	if cycle == CycleYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}
