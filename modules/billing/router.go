// Package billing exposes the subscription reconciliation service over HTTP:
// checkout creation and completion, processor webhooks, cancellation, and
// the admin override surface.
package billing

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/billingkit/pkg/jwt"
	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

// Router mounts the billing endpoints. The webhook and the checkout-success
// redirect are unauthenticated by nature: the webhook authenticates with its
// signature, and the redirect arrives from the processor's hosted page
// without our bearer token.
func Router(svc subscription.Service, auth func(http.Handler) http.Handler, cfg Config, log *slog.Logger) chi.Router {
	if log == nil {
		log = slog.Default()
	}
	h := &handlers{
		svc: svc,
		cfg: cfg,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}

	r := chi.NewRouter()

	r.Post("/webhook", h.webhook)
	r.Get("/checkout/success", h.checkoutSuccess)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/subscription", h.getSubscription)
		r.Post("/checkout", h.createCheckout)
		r.Post("/cancel", h.cancel)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin(cfg))
			// POST and PATCH are aliases: the operation is a full
			// force-write either way.
			r.Post("/admin/subscription", h.adminOverride)
			r.Patch("/admin/subscription", h.adminOverride)
		})
	})

	return r
}

// requireAdmin gates the override endpoints on the configured allow-list.
func requireAdmin(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := jwt.UserIDFromContext(r.Context())
			if !ok {
				writeError(w, subscription.ErrAuthenticationRequired)
				return
			}
			if !cfg.isAdmin(userID) {
				writeError(w, subscription.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
