package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lumeoai/lumeo/pkg/subscription"
)

// maxWebhookBody caps webhook payload reads. Paddle events are small; a
// larger body indicates abuse.
const maxWebhookBody = 1 << 20

// planView is the public representation of a catalog entry.
type planView struct {
	ID                    subscription.Tier         `json:"id"`
	Name                  string                    `json:"name"`
	MonthlyPrice          subscription.Money        `json:"monthly_price"`
	YearlyPrice           subscription.Money        `json:"yearly_price"`
	PhotoCredits          int                       `json:"photo_credits"`
	MaxModels             int                       `json:"max_models"`
	MaxParallelGeneration int                       `json:"max_parallel_generation"`
	Capabilities          subscription.Capabilities `json:"capabilities"`
	Popular               bool                      `json:"popular"`
}

// subscriptionView is the public representation of a user subscription.
type subscriptionView struct {
	PlanID             subscription.Tier         `json:"plan_id"`
	Status             subscription.Status       `json:"status"`
	BillingCycle       subscription.BillingCycle `json:"billing_cycle"`
	CurrentPeriodStart time.Time                 `json:"current_period_start"`
	CurrentPeriodEnd   time.Time                 `json:"current_period_end"`
	CancelAtPeriodEnd  bool                      `json:"cancel_at_period_end"`
	AvailableCredits   int                       `json:"available_credits"`
	ModelsCreated      int                       `json:"models_created"`
}

func toSubscriptionView(sub *subscription.UserSubscription) subscriptionView {
	return subscriptionView{
		PlanID:             sub.PlanID,
		Status:             sub.Status,
		BillingCycle:       sub.BillingCycle,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		AvailableCredits:   sub.AvailableCredits,
		ModelsCreated:      sub.ModelsCreated,
	}
}

func (m *Module) listPlans(w http.ResponseWriter, r *http.Request) {
	plans := m.catalog.Plans()
	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, planView{
			ID:                    p.ID,
			Name:                  p.Name,
			MonthlyPrice:          p.MonthlyPrice,
			YearlyPrice:           p.YearlyPrice,
			PhotoCredits:          p.PhotoCredits,
			MaxModels:             p.MaxModels,
			MaxParallelGeneration: p.MaxParallelGeneration,
			Capabilities:          p.Capabilities,
			Popular:               p.Popular,
		})
	}
	m.writeJSON(w, http.StatusOK, views)
}

func (m *Module) getSubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := m.resolveUser(r)
	if err != nil {
		m.writeError(w, r, errors.Join(errUnauthorized, err))
		return
	}

	sub, err := m.svc.GetSubscription(r.Context(), userID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeJSON(w, http.StatusOK, toSubscriptionView(sub))
}

type purchaseRequest struct {
	Tier          subscription.Tier         `json:"tier"`
	BillingCycle  subscription.BillingCycle `json:"billing_cycle"`
	TransactionID string                    `json:"transaction_id"`
}

func (req purchaseRequest) confirmation() subscription.PaymentConfirmation {
	return subscription.PaymentConfirmation{
		TransactionID: req.TransactionID,
		Tier:          req.Tier,
		Cycle:         req.BillingCycle,
	}
}

func (m *Module) subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := m.resolveUser(r)
	if err != nil {
		m.writeError(w, r, errors.Join(errUnauthorized, err))
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.writeError(w, r, errors.Join(errBadRequest, err))
		return
	}
	if req.TransactionID == "" {
		m.writeError(w, r, fmt.Errorf("%w: transaction_id is required", errBadRequest))
		return
	}

	sub, err := m.svc.Subscribe(r.Context(), userID, req.Tier, req.BillingCycle, req.confirmation())
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	if plan, perr := m.catalog.Plan(sub.PlanID); perr == nil {
		m.notify(r, func(ctx context.Context, email string) error {
			return m.notifier.SubscriptionCreated(ctx, email, plan, sub)
		})
	}
	m.writeJSON(w, http.StatusCreated, toSubscriptionView(sub))
}

func (m *Module) changePlan(w http.ResponseWriter, r *http.Request) {
	userID, err := m.resolveUser(r)
	if err != nil {
		m.writeError(w, r, errors.Join(errUnauthorized, err))
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.writeError(w, r, errors.Join(errBadRequest, err))
		return
	}
	if req.TransactionID == "" {
		m.writeError(w, r, fmt.Errorf("%w: transaction_id is required", errBadRequest))
		return
	}

	sub, err := m.svc.ChangePlan(r.Context(), userID, req.Tier, req.BillingCycle, req.confirmation())
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	if plan, perr := m.catalog.Plan(sub.PlanID); perr == nil {
		m.notify(r, func(ctx context.Context, email string) error {
			return m.notifier.PlanChanged(ctx, email, plan, sub)
		})
	}
	m.writeJSON(w, http.StatusOK, toSubscriptionView(sub))
}

func (m *Module) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := m.resolveUser(r)
	if err != nil {
		m.writeError(w, r, errors.Join(errUnauthorized, err))
		return
	}

	sub, err := m.svc.CancelSubscription(r.Context(), userID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	m.notify(r, func(ctx context.Context, email string) error {
		return m.notifier.CancellationScheduled(ctx, email, sub)
	})
	m.writeJSON(w, http.StatusOK, toSubscriptionView(sub))
}

type consumeRequest struct {
	Amount int `json:"amount"`
}

func (m *Module) consumeCredits(w http.ResponseWriter, r *http.Request) {
	userID, err := m.resolveUser(r)
	if err != nil {
		m.writeError(w, r, errors.Join(errUnauthorized, err))
		return
	}

	var req consumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.writeError(w, r, errors.Join(errBadRequest, err))
		return
	}

	sub, err := m.svc.ConsumeCredits(r.Context(), userID, req.Amount)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeJSON(w, http.StatusOK, toSubscriptionView(sub))
}

// notify dispatches a lifecycle email off the request path. Delivery
// failures are logged by the notifier and never affect the response.
func (m *Module) notify(r *http.Request, send func(ctx context.Context, email string) error) {
	if m.notifier == nil || m.resolveEmail == nil {
		return
	}
	email := m.resolveEmail(r)
	if email == "" {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	go func() { _ = send(ctx, email) }()
}

func (m *Module) paddleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		m.writeError(w, r, errors.Join(errBadRequest, err))
		return
	}

	signature := r.Header.Get("Paddle-Signature")
	if err := m.svc.HandleWebhook(r.Context(), payload, signature); err != nil {
		m.writeError(w, r, err)
		return
	}
	m.writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
