package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Service defines the public interface for subscription management.
// Every mutating operation is a single load -> validate -> compute -> persist
// cycle serialized per user ID; on any validation failure the stored record
// is left untouched and a typed error is returned.
type Service interface {
	// Subscribe creates the user's subscription after verifying payment.
	// Fails with ErrAlreadySubscribed if a record already exists.
	Subscribe(ctx context.Context, userID string, tier Tier, cycle BillingCycle, payment PaymentConfirmation) (*UserSubscription, error)

	// ChangePlan switches the user to a new tier after verifying payment.
	// Passing an empty newCycle keeps the current billing cycle; a non-empty
	// cycle recomputes the period end from the unchanged period start.
	ChangePlan(ctx context.Context, userID string, newTier Tier, newCycle BillingCycle, payment PaymentConfirmation) (*UserSubscription, error)

	// CancelSubscription schedules cancellation at period end. Idempotent;
	// access remains until CurrentPeriodEnd.
	CancelSubscription(ctx context.Context, userID string) (*UserSubscription, error)

	// ConsumeCredits atomically decrements the credit balance.
	// Fails with ErrInsufficientCredits without touching the record.
	ConsumeCredits(ctx context.Context, userID string, amount int) (*UserSubscription, error)

	// RefundCredits returns previously consumed credits, capped at the plan
	// allotment. Used to compensate failed downstream submissions.
	RefundCredits(ctx context.Context, userID string, amount int) (*UserSubscription, error)

	// IncrementModelsCreated counts a trained model against the plan limit.
	// Fails with ErrModelLimitReached at the boundary.
	IncrementModelsCreated(ctx context.Context, userID string) (*UserSubscription, error)

	// GetSubscription retrieves the user's subscription record.
	GetSubscription(ctx context.Context, userID string) (*UserSubscription, error)

	// CanCreateModel reports whether another model fits the plan limit.
	// False for users without a subscription and on lookup errors.
	CanCreateModel(ctx context.Context, userID string) bool

	// MaxParallelImages returns the plan's parallel generation limit,
	// or 1 for users without a subscription.
	MaxParallelImages(ctx context.Context, userID string) int

	// RenewDue rolls forward every subscription whose period ended at or
	// before now and returns how many records changed.
	RenewDue(ctx context.Context, now time.Time) (int, error)

	// HandleWebhook processes a billing provider webhook.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type service struct {
	catalog *Catalog
	store   Store
	billing BillingProvider
	locker  Locker
	clock   func() time.Time
	logger  *slog.Logger
}

// NewService creates a Service with the given dependencies.
// Panics if catalog, store, or billing is nil to fail fast during
// initialization. Use ServiceOption functions for optional settings.
func NewService(catalog *Catalog, store Store, billing BillingProvider, opts ...ServiceOption) Service {
	if catalog == nil {
		panic("subscription: Catalog is required")
	}
	if store == nil {
		panic("subscription: Store is required")
	}
	if billing == nil {
		panic("subscription: BillingProvider is required")
	}

	s := &service{
		catalog: catalog,
		store:   store,
		billing: billing,
		locker:  NewKeyedMutex(),
		clock:   func() time.Time { return time.Now().UTC() },
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) Subscribe(ctx context.Context, userID string, tier Tier, cycle BillingCycle, payment PaymentConfirmation) (*UserSubscription, error) {
	limits, err := s.catalog.LimitsFor(tier)
	if err != nil {
		return nil, err
	}
	if !cycle.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBillingCycle, cycle)
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrLockNotAcquired, err)
	}
	defer unlock()

	// Duplicate check before the (remote) payment verification so an
	// already-subscribed user gets the cheap local error.
	if _, err := s.store.Get(ctx, userID); err == nil {
		return nil, ErrAlreadySubscribed
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	if err := s.verifyPayment(ctx, payment, tier, cycle); err != nil {
		return nil, err
	}

	sub := s.newSubscription(userID, tier, cycle, limits)
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "subscription created",
		slog.String("user_id", userID),
		slog.String("tier", string(tier)),
		slog.String("cycle", string(cycle)))

	return sub, nil
}

func (s *service) ChangePlan(ctx context.Context, userID string, newTier Tier, newCycle BillingCycle, payment PaymentConfirmation) (*UserSubscription, error) {
	newLimits, err := s.catalog.LimitsFor(newTier)
	if err != nil {
		return nil, err
	}
	if newCycle != "" && !newCycle.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBillingCycle, newCycle)
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrLockNotAcquired, err)
	}
	defer unlock()

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	effectiveCycle := sub.BillingCycle
	if newCycle != "" {
		effectiveCycle = newCycle
	}
	if err := s.verifyPayment(ctx, payment, newTier, effectiveCycle); err != nil {
		return nil, err
	}

	oldLimits, err := s.catalog.LimitsFor(sub.PlanID)
	if err != nil {
		return nil, err
	}

	sub.PlanID = newTier
	if newCycle != "" {
		sub.BillingCycle = newCycle
		// Period start is kept; only the end moves with the new cycle.
		sub.CurrentPeriodEnd = periodEnd(sub.CurrentPeriodStart, newCycle)
	}

	// Credit policy: upgrades grant the new plan's full allotment,
	// downgrades clamp the balance to the new allotment.
	if newLimits.PhotoCredits > oldLimits.PhotoCredits {
		sub.AvailableCredits = newLimits.PhotoCredits
	} else if sub.AvailableCredits > newLimits.PhotoCredits {
		sub.AvailableCredits = newLimits.PhotoCredits
	}

	sub.UpdatedAt = s.clock()

	if err := s.store.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "subscription plan changed",
		slog.String("user_id", userID),
		slog.String("tier", string(newTier)))

	return sub, nil
}

func (s *service) CancelSubscription(ctx context.Context, userID string) (*UserSubscription, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrLockNotAcquired, err)
	}
	defer unlock()

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Idempotent: a second cancellation returns the record untouched.
	if sub.CancelAtPeriodEnd && sub.Status == StatusCancelling {
		return sub, nil
	}

	sub.CancelAtPeriodEnd = true
	sub.Status = StatusCancelling
	sub.UpdatedAt = s.clock()

	if err := s.store.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "subscription cancellation scheduled",
		slog.String("user_id", userID),
		slog.Time("access_until", sub.CurrentPeriodEnd))

	return sub, nil
}

func (s *service) ConsumeCredits(ctx context.Context, userID string, amount int) (*UserSubscription, error) {
	if amount <= 0 {
		return nil, ErrInvalidCreditAmount
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrLockNotAcquired, err)
	}
	defer unlock()

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if amount > sub.AvailableCredits {
		return nil, fmt.Errorf("%w: requested %d, available %d",
			ErrInsufficientCredits, amount, sub.AvailableCredits)
	}

	sub.AvailableCredits -= amount
	sub.UpdatedAt = s.clock()

	if err := s.store.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}

	return sub, nil
}

func (s *service) RefundCredits(ctx context.Context, userID string, amount int) (*UserSubscription, error) {
	if amount <= 0 {
		return nil, ErrInvalidCreditAmount
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrLockNotAcquired, err)
	}
	defer unlock()

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	limits, err := s.catalog.LimitsFor(sub.PlanID)
	if err != nil {
		return nil, err
	}

	sub.AvailableCredits = min(sub.AvailableCredits+amount, limits.PhotoCredits)
	sub.UpdatedAt = s.clock()

	if err := s.store.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}

	return sub, nil
}

func (s *service) IncrementModelsCreated(ctx context.Context, userID string) (*UserSubscription, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrLockNotAcquired, err)
	}
	defer unlock()

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	limits, err := s.catalog.LimitsFor(sub.PlanID)
	if err != nil {
		return nil, err
	}

	if sub.ModelsCreated >= limits.MaxModels {
		return nil, fmt.Errorf("%w: %d of %d", ErrModelLimitReached, sub.ModelsCreated, limits.MaxModels)
	}

	sub.ModelsCreated++
	sub.UpdatedAt = s.clock()

	if err := s.store.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}

	return sub, nil
}

func (s *service) GetSubscription(ctx context.Context, userID string) (*UserSubscription, error) {
	return s.store.Get(ctx, userID)
}

// CanCreateModel fails closed: any lookup error reads as "no".
func (s *service) CanCreateModel(ctx context.Context, userID string) bool {
	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return false
	}
	limits, err := s.catalog.LimitsFor(sub.PlanID)
	if err != nil {
		return false
	}
	return sub.ModelsCreated < limits.MaxModels
}

// MaxParallelImages returns 1 as the safe default for users without a
// subscription or on lookup errors.
func (s *service) MaxParallelImages(ctx context.Context, userID string) int {
	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return 1
	}
	limits, err := s.catalog.LimitsFor(sub.PlanID)
	if err != nil {
		return 1
	}
	return limits.MaxParallelGeneration
}

// RenewDue advances expired billing periods. Cancelling subscriptions become
// canceled; everything else rolls into a fresh period with the plan's full
// credit allotment and a reset model counter. Each record is re-read under
// its user lock so the job never races a concurrent mutation.
func (s *service) RenewDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due subscriptions: %w", err)
	}

	renewed := 0
	for _, stale := range due {
		n, err := s.renewOne(ctx, stale.UserID, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "subscription renewal failed",
				slog.String("user_id", stale.UserID),
				slog.Any("error", err))
			continue
		}
		renewed += n
	}
	return renewed, nil
}

func (s *service) renewOne(ctx context.Context, userID string, now time.Time) (int, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return 0, errors.Join(ErrLockNotAcquired, err)
	}
	defer unlock()

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !sub.PeriodExpiredAt(now) {
		return 0, nil // renewed by someone else between list and lock
	}

	if sub.CancelAtPeriodEnd {
		sub.Status = StatusCanceled
		sub.UpdatedAt = now
		if err := s.store.Save(ctx, sub); err != nil {
			return 0, err
		}
		return 1, nil
	}

	limits, err := s.catalog.LimitsFor(sub.PlanID)
	if err != nil {
		return 0, err
	}

	sub.CurrentPeriodStart = sub.CurrentPeriodEnd
	sub.CurrentPeriodEnd = periodEnd(sub.CurrentPeriodStart, sub.BillingCycle)
	sub.AvailableCredits = limits.PhotoCredits
	sub.ModelsCreated = 0
	sub.Status = StatusActive
	sub.UpdatedAt = now

	if err := s.store.Save(ctx, sub); err != nil {
		return 0, err
	}
	return 1, nil
}

// HandleWebhook applies provider-confirmed billing events. The webhook path
// is how asynchronous payment captures activate subscriptions without the
// client ever calling Subscribe directly.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.billing.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}
	if event.UserID == "" {
		return fmt.Errorf("webhook event %s carries no user ID", event.ProviderEvent)
	}

	switch event.Type {
	case EventPaymentSucceeded:
		return s.applyPaidEvent(ctx, event)

	case EventSubscriptionCancelled:
		_, err := s.CancelSubscription(ctx, event.UserID)
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil
		}
		return err

	case EventPaymentFailed:
		s.logger.WarnContext(ctx, "payment failed",
			slog.String("user_id", event.UserID),
			slog.String("transaction_id", event.TransactionID))
		return nil
	}

	return nil
}

// applyPaidEvent creates or upgrades a subscription from a verified payment
// event. The webhook signature already proves the capture, so no second
// VerifyPayment round-trip is made.
func (s *service) applyPaidEvent(ctx context.Context, event *WebhookEvent) error {
	limits, err := s.catalog.LimitsFor(event.Tier)
	if err != nil {
		return err
	}
	cycle := event.Cycle
	if !cycle.Valid() {
		cycle = CycleMonthly
	}

	unlock, err := s.locker.Lock(ctx, event.UserID)
	if err != nil {
		return errors.Join(ErrLockNotAcquired, err)
	}
	defer unlock()

	sub, err := s.store.Get(ctx, event.UserID)
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		sub = s.newSubscription(event.UserID, event.Tier, cycle, limits)
	case err != nil:
		return err
	default:
		if sub.PlanID == event.Tier && sub.BillingCycle == cycle {
			return nil // duplicate delivery
		}
		oldLimits, err := s.catalog.LimitsFor(sub.PlanID)
		if err != nil {
			return err
		}
		sub.PlanID = event.Tier
		sub.BillingCycle = cycle
		sub.CurrentPeriodEnd = periodEnd(sub.CurrentPeriodStart, cycle)
		if limits.PhotoCredits > oldLimits.PhotoCredits {
			sub.AvailableCredits = limits.PhotoCredits
		} else if sub.AvailableCredits > limits.PhotoCredits {
			sub.AvailableCredits = limits.PhotoCredits
		}
		sub.UpdatedAt = s.clock()
	}

	if err := s.store.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "subscription updated from webhook",
		slog.String("user_id", event.UserID),
		slog.String("tier", string(event.Tier)))

	return nil
}

func (s *service) verifyPayment(ctx context.Context, conf PaymentConfirmation, tier Tier, cycle BillingCycle) error {
	if conf.Tier != tier || conf.Cycle != cycle {
		return fmt.Errorf("%w: confirmation is for %s/%s", ErrPaymentMismatch, conf.Tier, conf.Cycle)
	}
	if err := s.billing.VerifyPayment(ctx, conf); err != nil {
		return err
	}
	return nil
}

func (s *service) newSubscription(userID string, tier Tier, cycle BillingCycle, limits Limits) *UserSubscription {
	now := s.clock()
	return &UserSubscription{
		UserID:             userID,
		PlanID:             tier,
		Status:             StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd(now, cycle),
		BillingCycle:       cycle,
		CancelAtPeriodEnd:  false,
		AvailableCredits:   limits.PhotoCredits,
		ModelsCreated:      0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
