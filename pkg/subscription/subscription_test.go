package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lumeoai/lumeo/pkg/subscription"
)

func TestUserSubscription_IsActive(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status subscription.Status
		want   bool
	}{
		{subscription.StatusActive, true},
		{subscription.StatusCancelling, true},
		{subscription.StatusCanceled, false},
		{subscription.StatusExpired, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			t.Parallel()
			sub := subscription.UserSubscription{Status: tc.status}
			assert.Equal(t, tc.want, sub.IsActive())
		})
	}
}

func TestUserSubscription_PeriodExpiredAt(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	sub := subscription.UserSubscription{CurrentPeriodEnd: end}

	assert.False(t, sub.PeriodExpiredAt(end.Add(-time.Second)))
	assert.True(t, sub.PeriodExpiredAt(end))
	assert.True(t, sub.PeriodExpiredAt(end.Add(time.Second)))
}
