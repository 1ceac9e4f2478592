package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonthsClamped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     time.Time
		months int
		want   time.Time
	}{
		{"jan 31 leap year clamps to feb 29", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"jan 31 non-leap year clamps to feb 28", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"aug 31 clamps to sep 30", date(2024, time.August, 31), 1, date(2024, time.September, 30)},
		{"mid-month day is preserved", date(2024, time.March, 15), 1, date(2024, time.April, 15)},
		{"year rollover keeps day 31", date(2024, time.December, 31), 1, date(2025, time.January, 31)},
		{"multiple months", date(2024, time.January, 31), 3, date(2024, time.April, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, subscription.AddMonthsClamped(tt.in, tt.months))
		})
	}
}

func TestAddMonthsClamped_PreservesTimeOfDay(t *testing.T) {
	t.Parallel()

	in := time.Date(2024, time.January, 31, 13, 45, 30, 0, time.UTC)
	got := subscription.AddMonthsClamped(in, 1)
	assert.Equal(t, time.Date(2024, time.February, 29, 13, 45, 30, 0, time.UTC), got)
}

func TestDerive(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	t.Run("nil record derives nothing", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, subscription.Schedule{}, subscription.Derive(nil, now))
	})

	t.Run("active trial end drives both dates", func(t *testing.T) {
		t.Parallel()
		trialEnd := now.Add(3 * 24 * time.Hour)
		rec := &subscription.Record{
			Status:      subscription.StatusTrialing,
			TrialEndsAt: &trialEnd,
		}

		got := subscription.Derive(rec, now)
		require.NotNil(t, got.TrialEndsAt)
		require.NotNil(t, got.RenewsAt)
		assert.Equal(t, trialEnd, *got.TrialEndsAt)
		assert.Equal(t, subscription.AddMonthsClamped(trialEnd, 1), *got.RenewsAt)
	})

	t.Run("expired trial end is ignored", func(t *testing.T) {
		t.Parallel()
		trialEnd := now.Add(-24 * time.Hour)
		periodEnd := now.Add(20 * 24 * time.Hour)
		rec := &subscription.Record{
			Status:           subscription.StatusActive,
			TrialEndsAt:      &trialEnd,
			CurrentPeriodEnd: &periodEnd,
		}

		got := subscription.Derive(rec, now)
		assert.Nil(t, got.TrialEndsAt)
		require.NotNil(t, got.RenewsAt)
		assert.Equal(t, periodEnd, *got.RenewsAt)
	})

	t.Run("trialing status falls back to period end for legacy records", func(t *testing.T) {
		t.Parallel()
		periodEnd := now.Add(10 * 24 * time.Hour)
		rec := &subscription.Record{
			Status:           subscription.StatusTrialing,
			CurrentPeriodEnd: &periodEnd,
		}

		got := subscription.Derive(rec, now)
		require.NotNil(t, got.TrialEndsAt)
		assert.Equal(t, periodEnd, *got.TrialEndsAt)
		require.NotNil(t, got.RenewsAt)
		assert.Equal(t, subscription.AddMonthsClamped(periodEnd, 1), *got.RenewsAt)
	})

	t.Run("period end alone yields renewal only", func(t *testing.T) {
		t.Parallel()
		periodEnd := now.Add(15 * 24 * time.Hour)
		rec := &subscription.Record{
			Status:           subscription.StatusActive,
			CurrentPeriodEnd: &periodEnd,
		}

		got := subscription.Derive(rec, now)
		assert.Nil(t, got.TrialEndsAt)
		require.NotNil(t, got.RenewsAt)
		assert.Equal(t, periodEnd, *got.RenewsAt)
	})

	t.Run("empty record derives nothing", func(t *testing.T) {
		t.Parallel()
		got := subscription.Derive(&subscription.Record{Status: subscription.StatusFree}, now)
		assert.Equal(t, subscription.Schedule{}, got)
	})
}
