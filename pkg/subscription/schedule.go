package subscription

import "time"

// Schedule holds the display dates derived from a record: when the trial ends
// (if one is running) and when the subscription renews.
type Schedule struct {
	TrialEndsAt *time.Time
	RenewsAt    *time.Time
}

// Derive computes the trial/renewal schedule for a record at a given instant.
// It is a pure function: no I/O, no clock access.
//
// The trial-end candidate is TrialEndsAt when it has not yet passed; older
// records from before the trial_end_at column existed stored the trial end in
// CurrentPeriodEnd with a trialing status, so that is kept as a legacy
// fallback. When a trial is running, the renewal lands exactly one billing
// interval after it ends.
func Derive(rec *Record, now time.Time) Schedule {
	if rec == nil {
		return Schedule{}
	}

	var trialEnd *time.Time
	switch {
	case rec.TrialEndsAt != nil && !rec.TrialEndsAt.Before(now):
		trialEnd = rec.TrialEndsAt
	case rec.Status == StatusTrialing && rec.CurrentPeriodEnd != nil:
		trialEnd = rec.CurrentPeriodEnd
	}

	if trialEnd != nil {
		te := trialEnd.UTC()
		renews := AddMonthsClamped(te, 1)
		return Schedule{TrialEndsAt: &te, RenewsAt: &renews}
	}

	if rec.CurrentPeriodEnd != nil {
		cpe := rec.CurrentPeriodEnd.UTC()
		return Schedule{RenewsAt: &cpe}
	}

	return Schedule{}
}

// AddMonthsClamped advances t by the given number of calendar months in UTC,
// preserving the day of month and clamping it to the target month's length:
// Jan 31 + 1 month lands on Feb 28 (or Feb 29 in a leap year), never Mar 2.
// The naive time.AddDate overflows short months, which is why the day is
// reset to 1 before the month arithmetic.
func AddMonthsClamped(t time.Time, months int) time.Time {
	t = t.UTC()
	day := t.Day()

	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	shifted := first.AddDate(0, months, 0)

	if last := daysInMonth(shifted.Year(), shifted.Month()); day > last {
		day = last
	}

	return time.Date(shifted.Year(), shifted.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
