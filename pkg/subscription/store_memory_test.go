package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

func TestInMemStore(t *testing.T) {
	t.Parallel()

	t.Run("get on empty store", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewInMemStore()
		_, err := store.Get(context.Background(), uuid.New())
		assert.ErrorIs(t, err, subscription.ErrRecordNotFound)
	})

	t.Run("upsert replaces the record", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewInMemStore()
		userID := uuid.New()

		require.NoError(t, store.Upsert(context.Background(), &subscription.Record{
			UserID: userID,
			Plan:   subscription.PlanPro,
			Status: subscription.StatusActive,
		}))
		require.NoError(t, store.Upsert(context.Background(), &subscription.Record{
			UserID: userID,
			Plan:   subscription.PlanFree,
			Status: subscription.StatusFree,
		}))

		rec, err := store.Get(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, subscription.PlanFree, rec.Plan)
	})

	t.Run("trial consumed is monotonic", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewInMemStore()
		userID := uuid.New()

		require.NoError(t, store.Upsert(context.Background(), &subscription.Record{
			UserID:        userID,
			Plan:          subscription.PlanPro,
			Status:        subscription.StatusTrialing,
			TrialConsumed: true,
		}))
		require.NoError(t, store.Upsert(context.Background(), &subscription.Record{
			UserID: userID,
			Plan:   subscription.PlanFree,
			Status: subscription.StatusFree,
		}))

		rec, err := store.Get(context.Background(), userID)
		require.NoError(t, err)
		assert.True(t, rec.TrialConsumed)
	})

	t.Run("returned records are detached copies", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewInMemStore()
		userID := uuid.New()
		periodEnd := time.Now().UTC()

		require.NoError(t, store.Upsert(context.Background(), &subscription.Record{
			UserID:           userID,
			Plan:             subscription.PlanPro,
			Status:           subscription.StatusActive,
			CurrentPeriodEnd: &periodEnd,
		}))

		rec, err := store.Get(context.Background(), userID)
		require.NoError(t, err)
		rec.Plan = subscription.PlanFree
		*rec.CurrentPeriodEnd = periodEnd.Add(time.Hour)

		fresh, err := store.Get(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, subscription.PlanPro, fresh.Plan)
		assert.Equal(t, periodEnd, *fresh.CurrentPeriodEnd)
	})
}
