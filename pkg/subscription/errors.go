package subscription

import "errors"

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrForbidden              = errors.New("caller is not allowed to perform this action")
	ErrValidation             = errors.New("invalid subscription request")

	ErrRecordNotFound = errors.New("subscription record not found")
	ErrDatastore      = errors.New("subscription datastore failure")

	// ErrProcessor covers non-recoverable payment processor failures.
	// ErrSubscriptionAlreadyCanceled is the one recoverable subclass: the
	// processor already converged to the state we were about to request.
	ErrProcessor                   = errors.New("payment processor request failed")
	ErrSubscriptionAlreadyCanceled = errors.New("subscription already canceled upstream")

	// ErrSignatureVerification is terminal and security-relevant; the
	// processor retries delivery on its own schedule.
	ErrSignatureVerification = errors.New("webhook signature verification failed")

	ErrMissingAPIKey        = errors.New("payment processor API key is required")
	ErrMissingWebhookSecret = errors.New("payment processor webhook secret is required")
)
