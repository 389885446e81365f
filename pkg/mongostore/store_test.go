package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lumeoai/lumeo/pkg/subscription"
)

func TestRecordMapping(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)
	sub := &subscription.UserSubscription{
		UserID:             "u-123",
		PlanID:             subscription.TierPremium,
		Status:             subscription.StatusCancelling,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		BillingCycle:       subscription.CycleMonthly,
		CancelAtPeriodEnd:  true,
		AvailableCredits:   1234,
		ModelsCreated:      5,
		CreatedAt:          now.AddDate(0, -3, 0),
		UpdatedAt:          now,
	}

	assert.Equal(t, sub, toRecord(sub).toDomain())
}
