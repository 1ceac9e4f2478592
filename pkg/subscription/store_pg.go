package subscription

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a RecordStore backed by the billing_subscriptions table.
// The upsert conflicts on user_id and overwrites every column except
// trial_consumed, which is OR-ed with the stored value so it stays monotonic
// at the database level no matter which writer loses a race.
func NewPGStore(pool *pgxpool.Pool) RecordStore {
	if pool == nil {
		panic("subscription: pgxpool is required")
	}
	return &pgStore{pool: pool}
}

const upsertQuery = `
INSERT INTO billing_subscriptions (
	user_id, plan, subscription_status,
	processor_customer_id, processor_subscription_id, processor_price_id,
	current_period_end, trial_end_at, trial_consumed, updated_at
) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10)
ON CONFLICT (user_id) DO UPDATE SET
	plan = EXCLUDED.plan,
	subscription_status = EXCLUDED.subscription_status,
	processor_customer_id = EXCLUDED.processor_customer_id,
	processor_subscription_id = EXCLUDED.processor_subscription_id,
	processor_price_id = EXCLUDED.processor_price_id,
	current_period_end = EXCLUDED.current_period_end,
	trial_end_at = EXCLUDED.trial_end_at,
	trial_consumed = billing_subscriptions.trial_consumed OR EXCLUDED.trial_consumed,
	updated_at = EXCLUDED.updated_at`

const getQuery = `
SELECT
	user_id, plan, subscription_status,
	COALESCE(processor_customer_id, ''), COALESCE(processor_subscription_id, ''), COALESCE(processor_price_id, ''),
	current_period_end, trial_end_at, trial_consumed, updated_at
FROM billing_subscriptions
WHERE user_id = $1`

func (s *pgStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, getQuery, userID).Scan(
		&rec.UserID, &rec.Plan, &rec.Status,
		&rec.CustomerID, &rec.SubscriptionID, &rec.PriceID,
		&rec.CurrentPeriodEnd, &rec.TrialEndsAt, &rec.TrialConsumed, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.Join(ErrDatastore, err)
	}
	return &rec, nil
}

func (s *pgStore) Upsert(ctx context.Context, rec *Record) error {
	_, err := s.pool.Exec(ctx, upsertQuery,
		rec.UserID, rec.Plan, rec.Status,
		rec.CustomerID, rec.SubscriptionID, rec.PriceID,
		rec.CurrentPeriodEnd, rec.TrialEndsAt, rec.TrialConsumed, rec.UpdatedAt,
	)
	if err != nil {
		return errors.Join(ErrDatastore, err)
	}
	return nil
}
