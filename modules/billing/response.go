package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lumeoai/lumeo/pkg/subscription"
)

// envelope is the standard JSON response shape for the module.
type envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (m *Module) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		m.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (m *Module) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		m.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorDetail{
		Code:    code,
		Message: err.Error(),
	}})
}

// errorStatus maps domain errors to HTTP status codes and stable error codes
// clients can branch on.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		return http.StatusNotFound, "subscription_not_found"
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		return http.StatusConflict, "already_subscribed"
	case errors.Is(err, subscription.ErrInsufficientCredits):
		return http.StatusPaymentRequired, "insufficient_credits"
	case errors.Is(err, subscription.ErrModelLimitReached):
		return http.StatusUnprocessableEntity, "model_limit_reached"
	case errors.Is(err, subscription.ErrUnknownTier),
		errors.Is(err, subscription.ErrInvalidBillingCycle),
		errors.Is(err, subscription.ErrInvalidCreditAmount):
		return http.StatusUnprocessableEntity, "invalid_request"
	case errors.Is(err, subscription.ErrPaymentNotVerified),
		errors.Is(err, subscription.ErrPaymentMismatch):
		return http.StatusPaymentRequired, "payment_not_verified"
	case errors.Is(err, subscription.ErrWebhookVerificationFailed):
		return http.StatusBadRequest, "invalid_signature"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

var (
	errBadRequest   = errors.New("bad request")
	errUnauthorized = errors.New("unauthorized")
)
