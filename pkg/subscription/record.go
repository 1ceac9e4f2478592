package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the binary feature-gating tier derived from subscription status.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Status is a subscription status literal. Records written by the automatic
// webhook/checkout pipeline carry the processor's rich vocabulary; records
// written by the cancellation and admin paths carry the reduced free/pro
// literals. Readers must tolerate both.
type Status string

const (
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusUnpaid            Status = "unpaid"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusPaused            Status = "paused"

	// Reduced vocabulary written by the cancel and admin paths.
	StatusFree Status = "free"
	StatusPro  Status = "pro"
)

// Record is the per-user subscription row. Each user has at most one record;
// all writers converge on it via upsert and it is never deleted.
type Record struct {
	UserID         uuid.UUID
	Plan           Plan
	Status         Status
	CustomerID     string // processor customer ID, empty when unknown
	SubscriptionID string // processor subscription ID, empty when unknown
	PriceID        string // processor price ID, empty when unknown

	CurrentPeriodEnd *time.Time
	TrialEndsAt      *time.Time

	// TrialConsumed is monotonic: once true it is never reset by any
	// reconciliation path, which is what makes the one-time trial buffer
	// on admin upgrades safe against churn-and-return.
	TrialConsumed bool

	UpdatedAt time.Time
}

// IsPro reports whether the record grants paid access.
func (r *Record) IsPro() bool {
	return r.Plan == PlanPro
}

// FreeRecord returns the default record for a user without any stored state.
func FreeRecord(userID uuid.UUID) *Record {
	return &Record{
		UserID: userID,
		Plan:   PlanFree,
		Status: StatusFree,
	}
}

// Clone returns a deep copy so callers can mutate records without affecting
// store-internal state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.CurrentPeriodEnd != nil {
		t := *r.CurrentPeriodEnd
		out.CurrentPeriodEnd = &t
	}
	if r.TrialEndsAt != nil {
		t := *r.TrialEndsAt
		out.TrialEndsAt = &t
	}
	return &out
}
