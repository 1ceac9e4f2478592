package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service exposes the reconciliation entry points. Each method is a
// stateless, independent writer; all of them converge the per-user record
// through RecordStore.Upsert, and none of them assumes any ordering relative
// to the others.
type Service interface {
	// CreateCheckout validates the price ID and opens a hosted checkout
	// session carrying the user's correlation key.
	CreateCheckout(ctx context.Context, userID uuid.UUID, priceID string) (*CheckoutLink, error)

	// CompleteCheckout is the synchronous fallback triggered by the
	// post-checkout redirect. It has no redelivery: a failure here is
	// terminal for the attempt and the user depends on the webhook path
	// for eventual correctness.
	CompleteCheckout(ctx context.Context, sessionID string) (*Record, error)

	// HandleWebhook verifies and applies one asynchronous processor
	// event. Redelivery of the same event is naturally idempotent.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	// Cancel downgrades the user's record to free, idempotently against
	// both the processor and the store.
	Cancel(ctx context.Context, userID uuid.UUID) (*Record, error)

	// AdminOverride force-writes a record with the trial-buffer and
	// price-resolution rules. Caller authorization happens at the HTTP
	// layer.
	AdminOverride(ctx context.Context, params OverrideParams) (*Record, error)

	// GetRecord returns the stored record, or ErrRecordNotFound.
	GetRecord(ctx context.Context, userID uuid.UUID) (*Record, error)
}

// OverrideParams are the administrative override inputs.
type OverrideParams struct {
	UserID           uuid.UUID
	Plan             Plan
	PriceID          string     // optional explicit price ID
	CurrentPeriodEnd *time.Time // optional explicit period end; skips the computed one
	CancelProcessor  *bool      // cancel upstream on downgrade; defaults to true
}

type service struct {
	store          RecordStore
	processor      Processor
	log            *slog.Logger
	defaultPriceID string
	trialBuffer    time.Duration
	now            func() time.Time
	staleGuard     bool
}

// NewService creates the reconciliation service. Panics if store or processor
// is nil to fail fast during initialization.
func NewService(store RecordStore, processor Processor, opts ...ServiceOption) Service {
	if store == nil {
		panic("subscription: RecordStore is required")
	}
	if processor == nil {
		panic("subscription: Processor is required")
	}

	s := &service{
		store:       store,
		processor:   processor,
		log:         slog.Default(),
		trialBuffer: 7 * 24 * time.Hour,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateCheckout(ctx context.Context, userID uuid.UUID, priceID string) (*CheckoutLink, error) {
	if !strings.HasPrefix(priceID, PriceIDPrefix) {
		return nil, errors.Join(ErrValidation, fmt.Errorf("malformed price id %q", priceID))
	}

	link, err := s.processor.CreateCheckoutSession(ctx, CheckoutRequest{
		UserID:  userID.String(),
		PriceID: priceID,
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout session created",
		slog.String("user_id", userID.String()),
		slog.String("session_id", link.SessionID))
	return link, nil
}

func (s *service) CompleteCheckout(ctx context.Context, sessionID string) (*Record, error) {
	state, err := s.processor.CheckoutSubscription(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(state.UserID)
	if err != nil {
		return nil, errors.Join(ErrValidation,
			fmt.Errorf("checkout session %s subscription has no usable %s metadata", sessionID, MetadataUserIDKey))
	}

	rec, err := s.applyState(ctx, userID, state)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout reconciled",
		slog.String("user_id", userID.String()),
		slog.String("plan", string(rec.Plan)),
		slog.String("status", string(rec.Status)))
	return rec, nil
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	if event.Kind != EventSubscriptionChanged {
		s.log.DebugContext(ctx, "ignoring webhook event", slog.String("event", event.ProviderEvent))
		return nil
	}

	state := event.Subscription
	userID, err := uuid.Parse(state.UserID)
	if err != nil {
		// Without the correlation key there is nothing to upsert. The
		// event is acknowledged, not failed: redelivering it cannot help.
		s.log.WarnContext(ctx, "subscription event without usable user_id metadata, skipping",
			slog.String("event", event.ProviderEvent),
			slog.String("subscription_id", state.SubscriptionID))
		return nil
	}

	if s.staleGuard {
		if existing, err := s.store.Get(ctx, userID); err == nil && event.OccurredAt.Before(existing.UpdatedAt) {
			s.log.DebugContext(ctx, "dropping stale webhook event",
				slog.String("event", event.ProviderEvent),
				slog.String("user_id", userID.String()),
				slog.Time("occurred_at", event.OccurredAt))
			return nil
		}
	}

	rec, err := s.applyState(ctx, userID, state)
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "webhook event applied",
		slog.String("event", event.ProviderEvent),
		slog.String("user_id", userID.String()),
		slog.String("plan", string(rec.Plan)),
		slog.String("status", string(rec.Status)))
	return nil
}

func (s *service) Cancel(ctx context.Context, userID uuid.UUID) (*Record, error) {
	rec, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		// Nothing to cancel; succeed with the free default.
		return FreeRecord(userID), nil
	}
	if err != nil {
		return nil, err
	}

	// Already free: skip the processor call, but still converge the local
	// record below in case earlier writers left partial state behind.
	if rec.Plan != PlanFree && rec.SubscriptionID != "" {
		err := s.processor.CancelSubscription(ctx, rec.SubscriptionID)
		switch {
		case errors.Is(err, ErrSubscriptionAlreadyCanceled):
			s.log.DebugContext(ctx, "subscription already canceled upstream",
				slog.String("subscription_id", rec.SubscriptionID))
		case err != nil:
			return nil, err
		}
	}

	rec.Plan = PlanFree
	rec.Status = StatusFree
	rec.CurrentPeriodEnd = nil
	rec.SubscriptionID = ""
	// CustomerID is kept: the processor customer survives cancellation and
	// is reused on resubscribe.
	rec.UpdatedAt = s.now()

	if err := s.store.Upsert(ctx, rec); err != nil {
		// Partial failure: the processor may already have canceled while
		// the local write failed. The next webhook reconciles; the caller
		// must treat this as "state may be stale".
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription canceled", slog.String("user_id", userID.String()))
	return rec, nil
}

func (s *service) AdminOverride(ctx context.Context, params OverrideParams) (*Record, error) {
	if params.Plan != PlanFree && params.Plan != PlanPro {
		return nil, errors.Join(ErrValidation, fmt.Errorf("unknown plan %q", params.Plan))
	}

	rec, err := s.store.Get(ctx, params.UserID)
	if errors.Is(err, ErrRecordNotFound) {
		rec = FreeRecord(params.UserID)
	} else if err != nil {
		return nil, err
	}

	now := s.now()
	wasPro := rec.Plan == PlanPro

	if params.Plan == PlanPro {
		switch {
		case params.CurrentPeriodEnd != nil:
			end := params.CurrentPeriodEnd.UTC()
			rec.CurrentPeriodEnd = &end
		default:
			end := AddMonthsClamped(now, 1)
			// The trial buffer is granted at most once per
			// becomes-pro-from-non-pro transition; TrialConsumed keeps
			// churn-and-return from collecting it twice.
			if !wasPro && !rec.TrialConsumed {
				end = end.Add(s.trialBuffer)
				rec.TrialConsumed = true
			}
			rec.CurrentPeriodEnd = &end
		}
		rec.PriceID = s.resolvePriceID(ctx, params.PriceID, rec.PriceID)
	} else {
		subscriptionID := rec.SubscriptionID
		rec.CurrentPeriodEnd = nil
		rec.PriceID = ""
		rec.SubscriptionID = ""

		cancelProcessor := params.CancelProcessor == nil || *params.CancelProcessor
		if cancelProcessor && subscriptionID != "" {
			err := s.processor.CancelSubscription(ctx, subscriptionID)
			switch {
			case errors.Is(err, ErrSubscriptionAlreadyCanceled):
				s.log.DebugContext(ctx, "subscription already canceled upstream",
					slog.String("subscription_id", subscriptionID))
			case err != nil:
				return nil, err
			}
		}
	}

	// The admin path writes the reduced vocabulary: status equals plan by
	// construction.
	rec.Plan = params.Plan
	rec.Status = Status(params.Plan)
	rec.UpdatedAt = now

	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "admin override applied",
		slog.String("user_id", params.UserID.String()),
		slog.String("plan", string(params.Plan)))
	return rec, nil
}

func (s *service) GetRecord(ctx context.Context, userID uuid.UUID) (*Record, error) {
	return s.store.Get(ctx, userID)
}

// applyState is the single normalization shared by the webhook and
// checkout-success paths. The record is a pure function of the event's
// terminal state plus the preserved trial fields, so applying the same state
// twice yields an identical record.
func (s *service) applyState(ctx context.Context, userID uuid.UUID, state *SubscriptionState) (*Record, error) {
	rec := &Record{
		UserID:           userID,
		Plan:             PlanForStatus(state.Status),
		Status:           state.Status,
		CustomerID:       state.CustomerID,
		SubscriptionID:   state.SubscriptionID,
		PriceID:          state.PriceID,
		CurrentPeriodEnd: state.PeriodEnd,
		TrialEndsAt:      state.TrialEnd,
		UpdatedAt:        s.now(),
	}

	existing, err := s.store.Get(ctx, userID)
	switch {
	case err == nil:
		rec.TrialConsumed = existing.TrialConsumed
		if rec.TrialEndsAt == nil {
			rec.TrialEndsAt = existing.TrialEndsAt
		}
	case errors.Is(err, ErrRecordNotFound):
		// First event for this user creates the record.
	default:
		return nil, err
	}

	if state.Status == StatusTrialing {
		rec.TrialConsumed = true
	}

	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// resolvePriceID walks the precedence chain explicit -> stored -> configured
// default, taking the first candidate that matches the processor's price
// prefix convention. Candidates failing the check are discarded with a
// warning, not rejected.
func (s *service) resolvePriceID(ctx context.Context, explicit, stored string) string {
	for _, candidate := range []string{explicit, stored, s.defaultPriceID} {
		if candidate == "" {
			continue
		}
		if !strings.HasPrefix(candidate, PriceIDPrefix) {
			s.log.WarnContext(ctx, "discarding malformed price id", slog.String("price_id", candidate))
			continue
		}
		return candidate
	}
	return ""
}
