package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/jwt"
	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

// maxWebhookBody caps webhook reads; Stripe events are well under this.
const maxWebhookBody = 1 << 20

type handlers struct {
	svc subscription.Service
	cfg Config
	log *slog.Logger
	now func() time.Time
}

type checkoutRequest struct {
	PriceID string `json:"price_id"`
}

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// createCheckout opens a hosted checkout session for the authenticated user.
func (h *handlers) createCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, subscription.ErrAuthenticationRequired)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Join(subscription.ErrValidation, err))
		return
	}

	link, err := h.svc.CreateCheckout(r.Context(), userID, req.PriceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{SessionID: link.SessionID, URL: link.URL})
}

// checkoutSuccess handles the post-checkout browser redirect. This path has
// no redelivery, so a reconciliation failure is terminal for the attempt and
// must surface as an error instead of a redirect; the webhook path remains
// the eventual-correctness fallback.
func (h *handlers) checkoutSuccess(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, errors.Join(subscription.ErrValidation, errors.New("missing session_id")))
		return
	}

	if _, err := h.svc.CompleteCheckout(r.Context(), sessionID); err != nil {
		h.log.ErrorContext(r.Context(), "checkout reconciliation failed",
			logger.Component("billing"),
			slog.String("session_id", sessionID),
			logger.Error(err))
		writeError(w, err)
		return
	}

	http.Redirect(w, r, h.cfg.SuccessRedirectURL, http.StatusSeeOther)
}

// webhook ingests one processor event. The raw body goes to the service
// untouched: signature verification runs over the exact received bytes.
func (h *handlers) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, errors.Join(subscription.ErrValidation, err))
		return
	}

	err = h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, subscription.ErrSignatureVerification):
		writeError(w, err)
	case err != nil:
		// Non-2xx makes the processor redeliver, which is safe: applying
		// the same event twice converges to the same record.
		writeError(w, err)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// cancel downgrades the authenticated user to free.
func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, subscription.ErrAuthenticationRequired)
		return
	}

	rec, err := h.svc.Cancel(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Success: true, Plan: rec.Plan})
}

// getSubscription returns the caller's record with the derived schedule.
// Users without a record get the free default rather than a 404.
func (h *handlers) getSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, subscription.ErrAuthenticationRequired)
		return
	}

	rec, err := h.svc.GetRecord(r.Context(), userID)
	if errors.Is(err, subscription.ErrRecordNotFound) {
		rec = subscription.FreeRecord(userID)
	} else if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubscriptionResponse(rec, h.now()))
}

type overrideRequest struct {
	UserID           uuid.UUID  `json:"user_id"`
	Plan             string     `json:"plan"`
	PriceID          string     `json:"price_id,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CancelProcessor  *bool      `json:"cancel_processor,omitempty"`
	// CancelStripe is the historical name of cancel_processor; older admin
	// clients still send it.
	CancelStripe *bool `json:"cancelStripe,omitempty"`
}

func (r overrideRequest) cancelProcessor() *bool {
	if r.CancelProcessor != nil {
		return r.CancelProcessor
	}
	return r.CancelStripe
}

// adminOverride force-writes a user's record. Reachable only through the
// admin allow-list middleware.
func (h *handlers) adminOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Join(subscription.ErrValidation, err))
		return
	}
	if req.UserID == uuid.Nil {
		writeError(w, errors.Join(subscription.ErrValidation, errors.New("user_id is required")))
		return
	}

	rec, err := h.svc.AdminOverride(r.Context(), subscription.OverrideParams{
		UserID:           req.UserID,
		Plan:             subscription.Plan(req.Plan),
		PriceID:          req.PriceID,
		CurrentPeriodEnd: req.CurrentPeriodEnd,
		CancelProcessor:  req.cancelProcessor(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.log.InfoContext(r.Context(), "admin override applied",
		logger.Component("billing"),
		logger.UserID(req.UserID),
		slog.String("plan", req.Plan))
	writeJSON(w, http.StatusOK, newSubscriptionResponse(rec, h.now()))
}
