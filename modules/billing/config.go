package billing

import (
	"github.com/google/uuid"
)

// Config holds the HTTP-layer settings of the billing module. Core
// reconciliation settings live on the subscription service itself.
type Config struct {
	// AdminUserIDs is the allow-list for the administrative override
	// endpoints. Empty list means no one can reach them.
	AdminUserIDs []uuid.UUID `env:"BILLING_ADMIN_USER_IDS" envSeparator:","`

	// SuccessRedirectURL is where the browser lands after the hosted
	// checkout redirects back to us.
	SuccessRedirectURL string `env:"BILLING_SUCCESS_REDIRECT_URL" envDefault:"/"`
}

func (c Config) isAdmin(userID uuid.UUID) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
