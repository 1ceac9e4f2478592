package logger

import (
	"log/slog"

	"github.com/google/uuid"
)

// Attribute helpers keep log field names consistent across packages, so the
// same key always addresses the same concept in aggregated logs.

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

func UserID(id uuid.UUID) slog.Attr {
	return slog.String("user_id", id.String())
}

func SubscriptionID(id string) slog.Attr {
	return slog.String("subscription_id", id)
}

func CustomerID(id string) slog.Attr {
	return slog.String("customer_id", id)
}

func PriceID(id string) slog.Attr {
	return slog.String("price_id", id)
}

func ProviderEvent(name string) slog.Attr {
	return slog.String("provider_event", name)
}
