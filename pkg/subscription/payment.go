package subscription

import "context"

// PaymentConfirmation proves a completed payment capture for a specific plan
// purchase. Subscribe and ChangePlan refuse to mutate any record until the
// confirmation is verified against the billing provider.
type PaymentConfirmation struct {
	TransactionID string       // provider's transaction identifier
	Tier          Tier         // tier the payment was captured for
	Cycle         BillingCycle // cycle the payment was captured for
}

// BillingProvider defines the minimal interface for payment provider
// integrations (Paddle, Stripe, ...). The core never touches card data;
// payment capture happens on the provider's hosted surface and this
// interface only verifies the outcome.
type BillingProvider interface {
	// VerifyPayment confirms that the referenced transaction completed for
	// the claimed tier and cycle. Returns ErrPaymentNotVerified when the
	// transaction is missing, incomplete, or captured for a different plan.
	VerifyPayment(ctx context.Context, conf PaymentConfirmation) error

	// ParseWebhook validates and parses incoming webhook data.
	// Must verify the signature to prevent webhook spoofing.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// WebhookEvent is a normalized billing event from the provider.
type WebhookEvent struct {
	Type          EventType
	ProviderEvent string // original provider event name
	TransactionID string
	UserID        string // our user ID, carried in provider custom data
	Tier          Tier
	Cycle         BillingCycle
	Status        string
	Raw           map[string]any
}

// EventType represents the normalized billing event type.
type EventType string

const (
	EventPaymentSucceeded      EventType = "payment_succeeded"
	EventPaymentFailed         EventType = "payment_failed"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
)

// noopBillingProvider approves every confirmation. For development and tests
// only; production wiring must use a real provider.
type noopBillingProvider struct{}

// NewNoopBillingProvider returns a BillingProvider that accepts any
// confirmation and cannot parse webhooks.
func NewNoopBillingProvider() BillingProvider {
	return noopBillingProvider{}
}

func (noopBillingProvider) VerifyPayment(ctx context.Context, conf PaymentConfirmation) error {
	return nil
}

func (noopBillingProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	return nil, ErrWebhookVerificationFailed
}
