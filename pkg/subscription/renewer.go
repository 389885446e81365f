package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Renewer runs the periodic renewal job: it advances billing periods,
// replenishes credits, and finalizes scheduled cancellations.
type Renewer struct {
	svc      Service
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
	clock    func() time.Time
	logger   *slog.Logger
}

// RenewerOption configures a Renewer.
type RenewerOption func(*Renewer)

// WithRenewSchedule sets the cron schedule. Accepts standard cron specs and
// descriptors like "@every 1h" (the default).
func WithRenewSchedule(spec string) RenewerOption {
	return func(r *Renewer) {
		if spec != "" {
			r.schedule = spec
		}
	}
}

// WithRenewTimeout bounds a single renewal sweep.
func WithRenewTimeout(d time.Duration) RenewerOption {
	return func(r *Renewer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRenewerClock overrides the time source for testing.
func WithRenewerClock(clock func() time.Time) RenewerOption {
	return func(r *Renewer) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRenewerLogger sets the structured logger.
func WithRenewerLogger(logger *slog.Logger) RenewerOption {
	return func(r *Renewer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRenewer creates a renewal job runner. Panics if svc is nil.
func NewRenewer(svc Service, opts ...RenewerOption) *Renewer {
	if svc == nil {
		panic("subscription: Service is required")
	}

	r := &Renewer{
		svc:      svc,
		cron:     cron.New(),
		schedule: "@every 1h",
		timeout:  5 * time.Minute,
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start registers the sweep with the cron scheduler and begins running it.
func (r *Renewer) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.sweep); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("subscription renewer started", slog.String("schedule", r.schedule))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (r *Renewer) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Renewer) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	renewed, err := r.svc.RenewDue(ctx, r.clock())
	if err != nil {
		r.logger.ErrorContext(ctx, "renewal sweep failed", slog.Any("error", err))
		return
	}
	if renewed > 0 {
		r.logger.InfoContext(ctx, "renewal sweep finished", slog.Int("renewed", renewed))
	}
}
