package subscription

import (
	"context"

	"github.com/google/uuid"
)

// RecordStore is the single write primitive of the reconciliation engine.
// Every correctness property of the system reduces to "what did the last
// writer of this row see": Upsert is insert-or-replace keyed by user ID with
// last-write-wins semantics, and the row-level atomicity of that upsert is
// the only lock shared between the concurrent entry points.
type RecordStore interface {
	// Get retrieves the record for a user.
	// Returns ErrRecordNotFound if no record exists.
	Get(ctx context.Context, userID uuid.UUID) (*Record, error)

	// Upsert creates or replaces the record keyed by Record.UserID.
	// Implementations must keep TrialConsumed monotonic: once stored as
	// true it stays true regardless of the incoming value.
	Upsert(ctx context.Context, rec *Record) error
}
