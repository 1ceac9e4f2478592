package subscription

import (
	"context"
	"time"
)

// PriceIDPrefix is the processor's price identifier convention. Price IDs
// failing this prefix check are rejected on checkout creation and silently
// discarded during admin price resolution.
const PriceIDPrefix = "price_"

// MetadataUserIDKey is the correlation key the checkout-create path stamps
// into the processor subscription's metadata. Its absence on incoming events
// is the single largest failure mode of the whole design: without it there is
// no way to know whose record to upsert.
const MetadataUserIDKey = "user_id"

// EventKind is the closed set of normalized webhook event kinds. The
// processor implementation maps its open-ended event vocabulary onto this
// union; everything the engine does not act on arrives as EventIgnored.
type EventKind string

const (
	EventSubscriptionChanged EventKind = "subscription_changed"
	EventIgnored             EventKind = "ignored"
)

// Event is a verified, normalized webhook event.
type Event struct {
	Kind          EventKind
	ProviderEvent string    // original processor event name, for logging
	OccurredAt    time.Time // processor-side event timestamp
	Subscription  *SubscriptionState
}

// SubscriptionState is the terminal subscription state carried by a processor
// event or checkout session. Upserts are computed from it alone — never from
// deltas — which is what makes redelivery idempotent.
type SubscriptionState struct {
	UserID         string // correlation key from metadata; empty when absent
	CustomerID     string
	SubscriptionID string
	PriceID        string // first line item's price ID
	Status         Status
	PeriodEnd      *time.Time // resolved via the period-end fallback chain
	TrialEnd       *time.Time
}

// CheckoutRequest carries what the processor needs to open a hosted checkout.
type CheckoutRequest struct {
	UserID  string // stamped into session and subscription metadata
	PriceID string
}

// CheckoutLink is a hosted checkout session handle.
type CheckoutLink struct {
	SessionID string
	URL       string
}

// Processor is the payment provider abstraction. The production
// implementation is StripeProcessor; tests substitute mocks. A single
// instance is constructed at process start and injected into the Service —
// no hidden global client state.
type Processor interface {
	// CreateCheckoutSession opens a hosted checkout in subscription mode
	// with the user's correlation key in the subscription metadata.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)

	// CheckoutSubscription retrieves a checkout session expanded with its
	// subscription and customer, and returns the normalized terminal
	// state. Returns an ErrValidation-wrapped error when the session
	// carries no subscription.
	CheckoutSubscription(ctx context.Context, sessionID string) (*SubscriptionState, error)

	// CancelSubscription cancels upstream with no proration and no
	// immediate invoice. Returns ErrSubscriptionAlreadyCanceled when the
	// processor already converged; any other failure is wrapped in
	// ErrProcessor.
	CancelSubscription(ctx context.Context, subscriptionID string) error

	// ParseWebhook verifies the signature against the raw payload bytes
	// (before any JSON parsing) and returns the normalized event.
	// Verification failures are wrapped in ErrSignatureVerification.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
