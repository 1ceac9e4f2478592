package subscription

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDefaultPriceID sets the configured fallback price ID used as the last
// candidate of the admin price-resolution chain.
func WithDefaultPriceID(priceID string) ServiceOption {
	return func(s *service) { s.defaultPriceID = priceID }
}

// WithTrialBuffer overrides the 7-day trial buffer appended to a fresh
// upgrade's renewal date.
func WithTrialBuffer(d time.Duration) ServiceOption {
	return func(s *service) {
		if d >= 0 {
			s.trialBuffer = d
		}
	}
}

// WithClock injects a time source for deterministic tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStaleEventGuard drops webhook events whose processor timestamp predates
// the stored record's updated_at, closing the window where a late-redelivered
// stale event overwrites a newer write. Off by default: plain last-write-wins
// is the historical behavior, and the guard changes what concurrent writers
// observe.
func WithStaleEventGuard() ServiceOption {
	return func(s *service) { s.staleGuard = true }
}
