package subscription_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

const testWebhookSecret = "whsec_test_secret"

func newStripeProcessor(t *testing.T) *subscription.StripeProcessor {
	t.Helper()
	p, err := subscription.NewStripeProcessor(subscription.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		SuccessURL:    "https://app.example/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "https://app.example/billing/canceled",
	})
	require.NoError(t, err)
	return p
}

// signPayload builds a Stripe-Signature header the same way Stripe does:
// v1 = HMAC-SHA256(secret, "<timestamp>.<payload>").
func signPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func subscriptionEventPayload(userID, object string) []byte {
	return fmt.Appendf(nil, `{
		"id": "evt_test_1",
		"type": "customer.subscription.updated",
		"created": %d,
		"data": {"object": %s}
	}`, time.Now().Unix(), fmt.Sprintf(object, userID))
}

func TestNewStripeProcessor_Validation(t *testing.T) {
	t.Parallel()

	_, err := subscription.NewStripeProcessor(subscription.StripeConfig{WebhookSecret: "whsec_x"})
	assert.ErrorIs(t, err, subscription.ErrMissingAPIKey)

	_, err = subscription.NewStripeProcessor(subscription.StripeConfig{SecretKey: "sk_test_x"})
	assert.ErrorIs(t, err, subscription.ErrMissingWebhookSecret)
}

func TestStripeProcessor_ParseWebhook(t *testing.T) {
	t.Parallel()

	t.Run("normalizes a subscription event", func(t *testing.T) {
		t.Parallel()
		p := newStripeProcessor(t)

		payload := subscriptionEventPayload("11111111-2222-3333-4444-555555555555", `{
			"id": "sub_123",
			"object": "subscription",
			"status": "active",
			"customer": "cus_123",
			"metadata": {"user_id": "%s"},
			"items": {"data": [{"id": "si_1", "price": {"id": "price_123"}, "current_period_end": 1750000000}]}
		}`)

		event, err := p.ParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		require.Equal(t, subscription.EventSubscriptionChanged, event.Kind)
		assert.Equal(t, "customer.subscription.updated", event.ProviderEvent)

		state := event.Subscription
		require.NotNil(t, state)
		assert.Equal(t, "11111111-2222-3333-4444-555555555555", state.UserID)
		assert.Equal(t, "cus_123", state.CustomerID)
		assert.Equal(t, "sub_123", state.SubscriptionID)
		assert.Equal(t, "price_123", state.PriceID)
		assert.Equal(t, subscription.StatusActive, state.Status)
		require.NotNil(t, state.PeriodEnd)
		assert.Equal(t, time.Unix(1750000000, 0).UTC(), *state.PeriodEnd)
	})

	t.Run("falls back to trial end then billing cycle anchor", func(t *testing.T) {
		t.Parallel()
		p := newStripeProcessor(t)

		payload := subscriptionEventPayload("11111111-2222-3333-4444-555555555555", `{
			"id": "sub_123",
			"status": "trialing",
			"customer": "cus_123",
			"metadata": {"user_id": "%s"},
			"trial_end": 1751000000,
			"items": {"data": [{"id": "si_1", "price": {"id": "price_123"}}]}
		}`)

		event, err := p.ParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		require.NotNil(t, event.Subscription)
		require.NotNil(t, event.Subscription.PeriodEnd)
		assert.Equal(t, time.Unix(1751000000, 0).UTC(), *event.Subscription.PeriodEnd)

		payload = subscriptionEventPayload("11111111-2222-3333-4444-555555555555", `{
			"id": "sub_123",
			"status": "active",
			"customer": "cus_123",
			"metadata": {"user_id": "%s"},
			"billing_cycle_anchor": 1752000000
		}`)

		event, err = p.ParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		require.NotNil(t, event.Subscription)
		require.NotNil(t, event.Subscription.PeriodEnd)
		assert.Equal(t, time.Unix(1752000000, 0).UTC(), *event.Subscription.PeriodEnd)
	})

	t.Run("missing metadata leaves the correlation key empty", func(t *testing.T) {
		t.Parallel()
		p := newStripeProcessor(t)

		payload := []byte(fmt.Sprintf(`{
			"id": "evt_test_2",
			"type": "customer.subscription.deleted",
			"created": %d,
			"data": {"object": {"id": "sub_123", "status": "canceled", "customer": "cus_123"}}
		}`, time.Now().Unix()))

		event, err := p.ParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		require.Equal(t, subscription.EventSubscriptionChanged, event.Kind)
		assert.Empty(t, event.Subscription.UserID)
		assert.Nil(t, event.Subscription.PeriodEnd)
	})

	t.Run("unrelated event types map to ignored", func(t *testing.T) {
		t.Parallel()
		p := newStripeProcessor(t)

		payload := []byte(fmt.Sprintf(`{
			"id": "evt_test_3",
			"type": "invoice.paid",
			"created": %d,
			"data": {"object": {"id": "in_123"}}
		}`, time.Now().Unix()))

		event, err := p.ParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, subscription.EventIgnored, event.Kind)
		assert.Nil(t, event.Subscription)
	})

	t.Run("rejects a bad signature before parsing", func(t *testing.T) {
		t.Parallel()
		p := newStripeProcessor(t)

		payload := []byte(`{"id":"evt_test_4","type":"customer.subscription.updated"}`)

		_, err := p.ParseWebhook(payload, signPayload(payload, "whsec_wrong", time.Now()))
		assert.ErrorIs(t, err, subscription.ErrSignatureVerification)

		_, err = p.ParseWebhook(payload, "garbage")
		assert.ErrorIs(t, err, subscription.ErrSignatureVerification)
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		t.Parallel()
		p := newStripeProcessor(t)

		payload := []byte(`{"id":"evt_test_5","type":"customer.subscription.updated"}`)
		header := signPayload(payload, testWebhookSecret, time.Now())

		tampered := []byte(`{"id":"evt_test_5","type":"customer.subscription.deleted"}`)
		_, err := p.ParseWebhook(tampered, header)
		assert.ErrorIs(t, err, subscription.ErrSignatureVerification)
	})
}
