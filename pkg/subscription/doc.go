// Package subscription reconciles per-user subscription state between an
// external payment processor and the local datastore.
//
// The datastore holds exactly one record per user and is the application's
// source of truth for feature gating. Four independent writers converge on
// that record: the processor's asynchronous webhook, the synchronous
// checkout-success redirect, user-initiated cancellation, and the
// administrative override. There is no ordering guarantee between them; the
// store resolves races with a plain last-write-wins upsert, and every writer
// produces the record as a pure function of the terminal state it observed,
// which makes redelivery and replays naturally idempotent.
//
// Core pieces:
//
//   - Record: the per-user subscription row and its two status vocabularies
//     (the processor's rich one and the reduced free/pro literals written by
//     the cancellation and admin paths).
//   - RecordStore: the single write primitive (upsert keyed by user ID), with
//     Postgres, in-memory, and Redis read-through implementations.
//   - Processor: the payment provider abstraction; StripeProcessor is the
//     production implementation.
//   - Service: the reconciliation entry points (HandleWebhook,
//     CompleteCheckout, Cancel, AdminOverride, CreateCheckout).
//   - Derive: the pure schedule derivation used for trial/renewal display.
//
// Usage:
//
//	store := subscription.NewPGStore(pool)
//	processor, err := subscription.NewStripeProcessor(stripeCfg)
//	if err != nil { ... }
//
//	svc := subscription.NewService(store, processor,
//		subscription.WithLogger(log),
//		subscription.WithDefaultPriceID(cfg.DefaultPriceID),
//	)
//
//	// webhook endpoint
//	err = svc.HandleWebhook(ctx, rawBody, r.Header.Get("Stripe-Signature"))
//
// Signature verification always runs against the raw request bytes before any
// JSON parsing; re-serializing the payload first would break it.
package subscription
