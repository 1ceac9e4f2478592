package billing

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

type errorResponse struct {
	Error string `json:"error"`
}

type cancelResponse struct {
	Success bool              `json:"success"`
	Plan    subscription.Plan `json:"plan"`
}

type subscriptionResponse struct {
	Plan             subscription.Plan   `json:"plan"`
	Status           subscription.Status `json:"status"`
	PriceID          string              `json:"price_id,omitempty"`
	CurrentPeriodEnd *time.Time          `json:"current_period_end,omitempty"`
	TrialEndsAt      *time.Time          `json:"trial_ends_at,omitempty"`
	RenewsAt         *time.Time          `json:"renews_at,omitempty"`
}

func newSubscriptionResponse(rec *subscription.Record, now time.Time) subscriptionResponse {
	schedule := subscription.Derive(rec, now)
	return subscriptionResponse{
		Plan:             rec.Plan,
		Status:           rec.Status,
		PriceID:          rec.PriceID,
		CurrentPeriodEnd: rec.CurrentPeriodEnd,
		TrialEndsAt:      schedule.TrialEndsAt,
		RenewsAt:         schedule.RenewsAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP statuses. Unknown
// errors surface as 500 with a generic message so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var msg string

	switch {
	case errors.Is(err, subscription.ErrAuthenticationRequired):
		status, msg = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, subscription.ErrForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, subscription.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, subscription.ErrSignatureVerification):
		status, msg = http.StatusBadRequest, "signature verification failed"
	case errors.Is(err, subscription.ErrRecordNotFound):
		status, msg = http.StatusNotFound, "subscription not found"
	case errors.Is(err, subscription.ErrProcessor):
		status, msg = http.StatusBadGateway, "payment processor unavailable"
	default:
		status, msg = http.StatusInternalServerError, "internal error"
	}

	writeJSON(w, status, errorResponse{Error: msg})
}
