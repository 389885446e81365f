package subscription

import (
	"context"
	"errors"
	"sync"
)

// SessionAdapter binds the Service to a single signed-in identity and keeps
// the latest known record for cheap re-reads by a UI layer. The cache is
// never a source of truth: it is refreshed after every successful mutation
// and can be force-refreshed at any time.
type SessionAdapter struct {
	svc Service

	mu      sync.RWMutex
	userID  string
	current *UserSubscription
}

// NewSessionAdapter creates an adapter with no signed-in user.
// Panics if svc is nil.
func NewSessionAdapter(svc Service) *SessionAdapter {
	if svc == nil {
		panic("subscription: Service is required")
	}
	return &SessionAdapter{svc: svc}
}

// SignIn binds the adapter to the given identity and loads the current
// record. A missing subscription is a normal state for new users.
func (a *SessionAdapter) SignIn(ctx context.Context, userID string) error {
	sub, err := a.svc.GetSubscription(ctx, userID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return err
	}

	a.mu.Lock()
	a.userID = userID
	a.current = sub
	a.mu.Unlock()
	return nil
}

// SignOut clears the bound identity and the cached record.
func (a *SessionAdapter) SignOut() {
	a.mu.Lock()
	a.userID = ""
	a.current = nil
	a.mu.Unlock()
}

// UserID returns the bound identity, if any.
func (a *SessionAdapter) UserID() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userID, a.userID != ""
}

// Current returns a copy of the last known record, which may be stale.
// Nil means no subscription was seen at the last refresh.
func (a *SessionAdapter) Current() *UserSubscription {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return nil
	}
	subCopy := *a.current
	return &subCopy
}

// Refresh re-reads the record from the service and updates the cache.
func (a *SessionAdapter) Refresh(ctx context.Context) (*UserSubscription, error) {
	userID, ok := a.UserID()
	if !ok {
		return nil, ErrNotSignedIn
	}

	sub, err := a.svc.GetSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			a.setCurrent(userID, nil)
		}
		return nil, err
	}

	a.setCurrent(userID, sub)
	return sub, nil
}

// Subscribe subscribes the signed-in user and caches the new record.
func (a *SessionAdapter) Subscribe(ctx context.Context, tier Tier, cycle BillingCycle, payment PaymentConfirmation) (*UserSubscription, error) {
	userID, ok := a.UserID()
	if !ok {
		return nil, ErrNotSignedIn
	}
	sub, err := a.svc.Subscribe(ctx, userID, tier, cycle, payment)
	if err != nil {
		return nil, err
	}
	a.setCurrent(userID, sub)
	return sub, nil
}

// ChangePlan changes the signed-in user's plan and caches the result.
func (a *SessionAdapter) ChangePlan(ctx context.Context, newTier Tier, newCycle BillingCycle, payment PaymentConfirmation) (*UserSubscription, error) {
	userID, ok := a.UserID()
	if !ok {
		return nil, ErrNotSignedIn
	}
	sub, err := a.svc.ChangePlan(ctx, userID, newTier, newCycle, payment)
	if err != nil {
		return nil, err
	}
	a.setCurrent(userID, sub)
	return sub, nil
}

// CancelSubscription schedules cancellation for the signed-in user.
func (a *SessionAdapter) CancelSubscription(ctx context.Context) (*UserSubscription, error) {
	userID, ok := a.UserID()
	if !ok {
		return nil, ErrNotSignedIn
	}
	sub, err := a.svc.CancelSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.setCurrent(userID, sub)
	return sub, nil
}

// ConsumeCredits spends credits for the signed-in user.
func (a *SessionAdapter) ConsumeCredits(ctx context.Context, amount int) (*UserSubscription, error) {
	userID, ok := a.UserID()
	if !ok {
		return nil, ErrNotSignedIn
	}
	sub, err := a.svc.ConsumeCredits(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	a.setCurrent(userID, sub)
	return sub, nil
}

// IncrementModelsCreated counts a trained model for the signed-in user.
func (a *SessionAdapter) IncrementModelsCreated(ctx context.Context) (*UserSubscription, error) {
	userID, ok := a.UserID()
	if !ok {
		return nil, ErrNotSignedIn
	}
	sub, err := a.svc.IncrementModelsCreated(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.setCurrent(userID, sub)
	return sub, nil
}

// CanCreateModel reports whether the signed-in user may train another model.
func (a *SessionAdapter) CanCreateModel(ctx context.Context) bool {
	userID, ok := a.UserID()
	if !ok {
		return false
	}
	return a.svc.CanCreateModel(ctx, userID)
}

// MaxParallelImages returns the signed-in user's parallel generation limit,
// or 1 when nobody is signed in.
func (a *SessionAdapter) MaxParallelImages(ctx context.Context) int {
	userID, ok := a.UserID()
	if !ok {
		return 1
	}
	return a.svc.MaxParallelImages(ctx, userID)
}

// setCurrent updates the cache only if the same user is still signed in,
// so a slow mutation cannot resurrect state after SignOut.
func (a *SessionAdapter) setCurrent(userID string, sub *UserSubscription) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.userID != userID {
		return
	}
	a.current = sub
}
