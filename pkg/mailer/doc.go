// Package mailer sends transactional email through Postmark.
//
// The Sender interface abstracts delivery so development environments can
// swap in NewLogSender, which logs instead of sending. Notifier builds the
// subscription lifecycle emails (welcome, plan change, cancellation,
// renewal) on top of any Sender.
//
// Usage:
//
//	sender, err := mailer.NewPostmarkSender(cfg)
//	if err != nil {
//		return err
//	}
//	notifier := mailer.NewNotifier(sender)
//	_ = notifier.SubscriptionCreated(ctx, "user@example.com", plan, sub)
package mailer
