package subscription

import "errors"

var (
	ErrUnknownTier              = errors.New("unknown subscription tier")
	ErrInvalidBillingCycle      = errors.New("invalid billing cycle")
	ErrInvalidPlanConfiguration = errors.New("invalid subscription plan configuration")
	ErrFailedToLoadPlans        = errors.New("failed to load subscription plans")

	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrAlreadySubscribed    = errors.New("subscription already exists")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrModelLimitReached    = errors.New("model limit reached for current plan")
	ErrInvalidCreditAmount  = errors.New("credit amount must be positive")

	ErrPaymentNotVerified = errors.New("payment confirmation could not be verified")
	ErrPaymentMismatch    = errors.New("payment confirmation does not match requested plan")

	ErrNotSignedIn = errors.New("no signed-in user")

	ErrLockNotAcquired = errors.New("subscription lock not acquired")

	// Provider-specific errors
	ErrMissingAPIKey             = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret      = errors.New("billing provider webhook secret is required")
	ErrInvalidProviderEnv        = errors.New("invalid billing provider environment")
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
)
