package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements BillingProvider for Paddle.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle billing provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProviderEnv, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

// VerifyPayment looks up the transaction at Paddle and checks that it was
// captured for the claimed tier and billing cycle. The tier and cycle ride
// in the transaction's custom data, set when the checkout was created.
func (p *PaddleProvider) VerifyPayment(ctx context.Context, conf PaymentConfirmation) error {
	if conf.TransactionID == "" {
		return fmt.Errorf("%w: empty transaction ID", ErrPaymentNotVerified)
	}

	txn, err := p.client.TransactionsClient.GetTransaction(ctx, &paddle.GetTransactionRequest{
		TransactionID: conf.TransactionID,
	})
	if err != nil {
		return errors.Join(ErrPaymentNotVerified, err)
	}

	switch string(txn.Status) {
	case "completed", "paid":
	default:
		return fmt.Errorf("%w: transaction status %s", ErrPaymentNotVerified, txn.Status)
	}

	if tier, ok := txn.CustomData["tier"].(string); ok && Tier(tier) != conf.Tier {
		return fmt.Errorf("%w: transaction was for tier %s", ErrPaymentMismatch, tier)
	}
	if cycle, ok := txn.CustomData["billing_cycle"].(string); ok && BillingCycle(cycle) != conf.Cycle {
		return fmt.Errorf("%w: transaction was for cycle %s", ErrPaymentMismatch, cycle)
	}

	return nil
}

// ParseWebhook validates the Paddle-Signature header and normalizes the
// event. Our user ID, tier, and cycle are read back from the custom data
// attached at checkout time.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	var paddleEvent struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	event := &WebhookEvent{
		Type:          mapPaddleEventType(paddleEvent.EventType),
		ProviderEvent: paddleEvent.EventType,
		Raw:           paddleEvent.Data,
	}

	if id, ok := paddleEvent.Data["id"].(string); ok {
		event.TransactionID = id
	}
	if status, ok := paddleEvent.Data["status"].(string); ok {
		event.Status = status
	}
	if customData, ok := paddleEvent.Data["custom_data"].(map[string]any); ok {
		if userID, ok := customData["user_id"].(string); ok {
			event.UserID = userID
		}
		if tier, ok := customData["tier"].(string); ok {
			event.Tier = Tier(tier)
		}
		if cycle, ok := customData["billing_cycle"].(string); ok {
			event.Cycle = BillingCycle(cycle)
		}
	}

	return event, nil
}

func mapPaddleEventType(paddleEvent string) EventType {
	switch paddleEvent {
	case "transaction.completed", "transaction.payment_succeeded":
		return EventPaymentSucceeded
	case "transaction.payment_failed":
		return EventPaymentFailed
	case "subscription.canceled":
		return EventSubscriptionCancelled
	default:
		return EventType(paddleEvent)
	}
}
