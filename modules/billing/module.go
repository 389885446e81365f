package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumeoai/lumeo/pkg/mailer"
	"github.com/lumeoai/lumeo/pkg/subscription"
)

// UserResolver extracts the authenticated user ID from a request. It is
// supplied by the auth layer so the billing module stays decoupled from the
// session implementation.
type UserResolver func(r *http.Request) (string, error)

// EmailResolver extracts the signed-in user's email for notifications.
// An empty return suppresses the notification.
type EmailResolver func(r *http.Request) string

// Module exposes the subscription service over HTTP.
type Module struct {
	svc          subscription.Service
	catalog      *subscription.Catalog
	resolveUser  UserResolver
	resolveEmail EmailResolver
	notifier     *mailer.Notifier
	logger       *slog.Logger
}

// ModuleOption configures a Module.
type ModuleOption func(*Module)

// WithLogger sets the logger used for handler errors.
func WithLogger(logger *slog.Logger) ModuleOption {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotifier enables lifecycle emails for purchases, plan changes, and
// cancellations. Both arguments are required for notifications to fire.
func WithNotifier(notifier *mailer.Notifier, resolveEmail EmailResolver) ModuleOption {
	return func(m *Module) {
		m.notifier = notifier
		m.resolveEmail = resolveEmail
	}
}

// NewModule creates the billing HTTP module.
// Panics if any required dependency is nil.
func NewModule(svc subscription.Service, catalog *subscription.Catalog, resolveUser UserResolver, opts ...ModuleOption) *Module {
	if svc == nil {
		panic("billing: subscription service is required")
	}
	if catalog == nil {
		panic("billing: catalog is required")
	}
	if resolveUser == nil {
		panic("billing: user resolver is required")
	}

	m := &Module{
		svc:         svc,
		catalog:     catalog,
		resolveUser: resolveUser,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle returns the module's router, ready to be mounted.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billingModule.Handle())
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/plans", m.listPlans)
	r.Get("/subscription", m.getSubscription)
	r.Post("/subscription", m.subscribe)
	r.Put("/subscription/plan", m.changePlan)
	r.Delete("/subscription", m.cancelSubscription)
	r.Post("/credits/consume", m.consumeCredits)
	r.Post("/webhooks/paddle", m.paddleWebhook)

	return r
}
