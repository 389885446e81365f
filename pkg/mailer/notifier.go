package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lumeoai/lumeo/pkg/subscription"
)

// Notifier sends subscription lifecycle emails. It is best-effort by
// contract: callers decide whether a failed notification aborts the
// surrounding operation (it usually should not).
type Notifier struct {
	sender Sender
	logger *slog.Logger
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithNotifierLogger sets the logger used for delivery failures.
func WithNotifierLogger(logger *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNotifier creates a Notifier. Panics if sender is nil.
func NewNotifier(sender Sender, opts ...NotifierOption) *Notifier {
	if sender == nil {
		panic("mailer: sender is required")
	}
	n := &Notifier{sender: sender, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SubscriptionCreated welcomes a user after their first successful purchase.
func (n *Notifier) SubscriptionCreated(ctx context.Context, email string, plan subscription.Plan, sub *subscription.UserSubscription) error {
	msg := Message{
		To:      email,
		Subject: fmt.Sprintf("Welcome to the %s plan", plan.Name),
		Tag:     "subscription-created",
		BodyHTML: body(
			fmt.Sprintf("Your %s subscription is active.", plan.Name),
			fmt.Sprintf("You have %d photo credits and can train up to %d AI models.",
				sub.AvailableCredits, plan.MaxModels),
			fmt.Sprintf("Your current billing period ends on %s.",
				sub.CurrentPeriodEnd.Format("January 2, 2006")),
		),
	}
	return n.send(ctx, msg)
}

// PlanChanged confirms an upgrade or downgrade.
func (n *Notifier) PlanChanged(ctx context.Context, email string, plan subscription.Plan, sub *subscription.UserSubscription) error {
	msg := Message{
		To:      email,
		Subject: fmt.Sprintf("Your plan is now %s", plan.Name),
		Tag:     "plan-changed",
		BodyHTML: body(
			fmt.Sprintf("Your subscription was switched to the %s plan.", plan.Name),
			fmt.Sprintf("Your balance is %d photo credits.", sub.AvailableCredits),
		),
	}
	return n.send(ctx, msg)
}

// CancellationScheduled confirms that access continues until the period end.
func (n *Notifier) CancellationScheduled(ctx context.Context, email string, sub *subscription.UserSubscription) error {
	msg := Message{
		To:      email,
		Subject: "Your subscription will not renew",
		Tag:     "cancellation-scheduled",
		BodyHTML: body(
			"We have scheduled your subscription for cancellation.",
			fmt.Sprintf("You keep full access until %s. No further charges will be made.",
				sub.CurrentPeriodEnd.Format("January 2, 2006")),
		),
	}
	return n.send(ctx, msg)
}

// SubscriptionRenewed confirms a successful renewal and the credit reset.
func (n *Notifier) SubscriptionRenewed(ctx context.Context, email string, sub *subscription.UserSubscription) error {
	msg := Message{
		To:      email,
		Subject: "Your subscription renewed",
		Tag:     "subscription-renewed",
		BodyHTML: body(
			"Your subscription renewed for another billing period.",
			fmt.Sprintf("Your photo credits were reset to %d.", sub.AvailableCredits),
			fmt.Sprintf("The new period ends on %s.",
				sub.CurrentPeriodEnd.Format("January 2, 2006")),
		),
	}
	return n.send(ctx, msg)
}

func (n *Notifier) send(ctx context.Context, msg Message) error {
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.ErrorContext(ctx, "failed to send notification",
			slog.String("tag", msg.Tag),
			slog.String("to", msg.To),
			slog.Any("error", err))
		return err
	}
	return nil
}

func body(paragraphs ...string) string {
	var b strings.Builder
	for _, p := range paragraphs {
		b.WriteString("<p>")
		b.WriteString(p)
		b.WriteString("</p>")
	}
	return b.String()
}
