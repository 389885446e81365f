package subscription_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumeoai/lumeo/pkg/subscription"
)

func TestSessionAdapter(t *testing.T) {
	t.Parallel()

	t.Run("operations without a signed-in user", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		adapter := subscription.NewSessionAdapter(newTestService(t))

		_, ok := adapter.UserID()
		assert.False(t, ok)
		assert.Nil(t, adapter.Current())

		_, err := adapter.Subscribe(ctx, subscription.TierPro, subscription.CycleMonthly,
			paymentFor(subscription.TierPro, subscription.CycleMonthly))
		assert.ErrorIs(t, err, subscription.ErrNotSignedIn)

		_, err = adapter.ConsumeCredits(ctx, 1)
		assert.ErrorIs(t, err, subscription.ErrNotSignedIn)

		_, err = adapter.CancelSubscription(ctx)
		assert.ErrorIs(t, err, subscription.ErrNotSignedIn)

		_, err = adapter.Refresh(ctx)
		assert.ErrorIs(t, err, subscription.ErrNotSignedIn)

		assert.False(t, adapter.CanCreateModel(ctx))
		assert.Equal(t, 1, adapter.MaxParallelImages(ctx))
	})

	t.Run("sign in without a subscription is fine", func(t *testing.T) {
		t.Parallel()
		adapter := subscription.NewSessionAdapter(newTestService(t))

		require.NoError(t, adapter.SignIn(context.Background(), "new-user"))

		userID, ok := adapter.UserID()
		assert.True(t, ok)
		assert.Equal(t, "new-user", userID)
		assert.Nil(t, adapter.Current())
	})

	t.Run("mutations refresh the cached record", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		adapter := subscription.NewSessionAdapter(newTestService(t))
		require.NoError(t, adapter.SignIn(ctx, "u"))

		sub, err := adapter.Subscribe(ctx, subscription.TierPro, subscription.CycleMonthly,
			paymentFor(subscription.TierPro, subscription.CycleMonthly))
		require.NoError(t, err)
		assert.Equal(t, sub, adapter.Current())

		spent, err := adapter.ConsumeCredits(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, 900, spent.AvailableCredits)
		assert.Equal(t, 900, adapter.Current().AvailableCredits)

		assert.True(t, adapter.CanCreateModel(ctx))
		assert.Equal(t, 4, adapter.MaxParallelImages(ctx))
	})

	t.Run("sign in loads an existing subscription", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		svc := newTestService(t)

		_, err := svc.Subscribe(ctx, "u", subscription.TierStarter, subscription.CycleYearly,
			paymentFor(subscription.TierStarter, subscription.CycleYearly))
		require.NoError(t, err)

		adapter := subscription.NewSessionAdapter(svc)
		require.NoError(t, adapter.SignIn(ctx, "u"))

		current := adapter.Current()
		require.NotNil(t, current)
		assert.Equal(t, subscription.TierStarter, current.PlanID)
	})

	t.Run("current returns a copy", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		adapter := subscription.NewSessionAdapter(newTestService(t))
		require.NoError(t, adapter.SignIn(ctx, "u"))

		_, err := adapter.Subscribe(ctx, subscription.TierPro, subscription.CycleMonthly,
			paymentFor(subscription.TierPro, subscription.CycleMonthly))
		require.NoError(t, err)

		adapter.Current().AvailableCredits = -1
		assert.Equal(t, 1000, adapter.Current().AvailableCredits)
	})

	t.Run("sign out clears identity and cache", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		adapter := subscription.NewSessionAdapter(newTestService(t))
		require.NoError(t, adapter.SignIn(ctx, "u"))

		_, err := adapter.Subscribe(ctx, subscription.TierPro, subscription.CycleMonthly,
			paymentFor(subscription.TierPro, subscription.CycleMonthly))
		require.NoError(t, err)

		adapter.SignOut()

		_, ok := adapter.UserID()
		assert.False(t, ok)
		assert.Nil(t, adapter.Current())
		assert.False(t, adapter.CanCreateModel(ctx))
	})

	t.Run("switching users replaces the cached record", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		svc := newTestService(t)

		_, err := svc.Subscribe(ctx, "alice", subscription.TierUltra, subscription.CycleMonthly,
			paymentFor(subscription.TierUltra, subscription.CycleMonthly))
		require.NoError(t, err)

		adapter := subscription.NewSessionAdapter(svc)
		require.NoError(t, adapter.SignIn(ctx, "alice"))
		require.NotNil(t, adapter.Current())

		require.NoError(t, adapter.SignIn(ctx, "bob"))
		assert.Nil(t, adapter.Current())

		userID, _ := adapter.UserID()
		assert.Equal(t, "bob", userID)
	})

	t.Run("refresh picks up out-of-band changes", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		svc := newTestService(t)
		adapter := subscription.NewSessionAdapter(svc)
		require.NoError(t, adapter.SignIn(ctx, "u"))

		_, err := adapter.Subscribe(ctx, subscription.TierPro, subscription.CycleMonthly,
			paymentFor(subscription.TierPro, subscription.CycleMonthly))
		require.NoError(t, err)

		// Mutation through the service directly, bypassing the adapter.
		_, err = svc.ConsumeCredits(ctx, "u", 250)
		require.NoError(t, err)
		assert.Equal(t, 1000, adapter.Current().AvailableCredits)

		refreshed, err := adapter.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, 750, refreshed.AvailableCredits)
		assert.Equal(t, 750, adapter.Current().AvailableCredits)
	})

	t.Run("panics on nil service", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { subscription.NewSessionAdapter(nil) })
	})
}
