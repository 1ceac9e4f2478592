package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds configuration for the Stripe processor.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
	SuccessURL    string `env:"STRIPE_CHECKOUT_SUCCESS_URL,required"` // may contain {CHECKOUT_SESSION_ID}
	CancelURL     string `env:"STRIPE_CHECKOUT_CANCEL_URL,required"`
}

// StripeProcessor implements Processor on the Stripe API.
type StripeProcessor struct {
	api *client.API
	cfg StripeConfig
}

// NewStripeProcessor creates a Stripe-backed processor with its own client
// instance. The client is constructed once and injected; nothing touches the
// SDK's package-level key.
func NewStripeProcessor(cfg StripeConfig) (*StripeProcessor, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeProcessor{api: api, cfg: cfg}, nil
}

// CreateCheckoutSession opens a subscription-mode checkout session. The user
// ID goes into both the session metadata and the subscription metadata: the
// latter is the collaborator contract every later webhook event depends on.
func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(p.cfg.SuccessURL),
		CancelURL:         stripe.String(p.cfg.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserIDKey: req.UserID},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, req.UserID)

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Join(ErrProcessor, err)
	}

	return &CheckoutLink{SessionID: s.ID, URL: s.URL}, nil
}

// CheckoutSubscription retrieves a checkout session expanded with its
// subscription and customer and normalizes the subscription's terminal state.
func (p *StripeProcessor) CheckoutSubscription(ctx context.Context, sessionID string) (*SubscriptionState, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	params.AddExpand("customer")

	s, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, errors.Join(ErrProcessor, err)
	}
	if s.Subscription == nil {
		return nil, errors.Join(ErrValidation, fmt.Errorf("checkout session %s has no subscription", sessionID))
	}

	state := normalizeStripeSubscription(s.Subscription)
	if state.CustomerID == "" && s.Customer != nil {
		state.CustomerID = s.Customer.ID
	}
	return state, nil
}

// CancelSubscription cancels upstream with no proration and no immediate
// invoice. A subscription Stripe no longer knows about is reported as
// ErrSubscriptionAlreadyCanceled so callers can treat it as convergence.
func (p *StripeProcessor) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{
		Prorate:    stripe.Bool(false),
		InvoiceNow: stripe.Bool(false),
	}
	params.Context = ctx

	if _, err := p.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		var sErr *stripe.Error
		if errors.As(err, &sErr) {
			if sErr.Code == stripe.ErrorCodeResourceMissing || sErr.HTTPStatusCode == http.StatusNotFound {
				return ErrSubscriptionAlreadyCanceled
			}
		}
		return errors.Join(ErrProcessor, err)
	}
	return nil
}

// ParseWebhook verifies the signature against the raw payload bytes and maps
// Stripe's event vocabulary onto the closed EventKind union. Verification
// must run before any parsing; re-serializing the body first breaks it.
func (p *StripeProcessor) ParseWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(ErrSignatureVerification, err)
	}

	out := &Event{
		Kind:          EventIgnored,
		ProviderEvent: string(event.Type),
		OccurredAt:    time.Unix(event.Created, 0).UTC(),
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, errors.Join(ErrValidation, err)
		}
		out.Kind = EventSubscriptionChanged
		out.Subscription = normalizeStripeSubscription(&sub)
	}

	return out, nil
}

// normalizeStripeSubscription projects a Stripe subscription onto the
// engine's terminal state. The period end resolves through the ordered
// fallback chain current_period_end -> trial_end -> billing_cycle_anchor;
// the first non-zero value wins.
func normalizeStripeSubscription(sub *stripe.Subscription) *SubscriptionState {
	state := &SubscriptionState{
		UserID:         sub.Metadata[MetadataUserIDKey],
		SubscriptionID: sub.ID,
		Status:         Status(sub.Status),
	}

	if sub.Customer != nil {
		state.CustomerID = sub.Customer.ID
	}

	var periodEnd int64
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			state.PriceID = item.Price.ID
		}
		periodEnd = item.CurrentPeriodEnd
	}
	if periodEnd == 0 {
		periodEnd = sub.TrialEnd
	}
	if periodEnd == 0 {
		periodEnd = sub.BillingCycleAnchor
	}
	if periodEnd > 0 {
		t := time.Unix(periodEnd, 0).UTC()
		state.PeriodEnd = &t
	}

	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0).UTC()
		state.TrialEnd = &t
	}

	return state
}
