package subscription

// IsProStatus reports whether a processor status grants paid access.
// Exactly active, trialing, and past_due map to pro; everything else,
// including unknown statuses, fails closed to free.
func IsProStatus(s Status) bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue:
		return true
	default:
		return false
	}
}

// PlanForStatus is the reduced free/pro projection of the processor's status
// vocabulary. It is the single normalization function shared by the webhook
// and checkout-success paths so the two cannot drift.
func PlanForStatus(s Status) Plan {
	if IsProStatus(s) {
		return PlanPro
	}
	return PlanFree
}
