package main

import (
	"context"
	"net/http"
	"time"
)

// healthHandler probes every dependency and reports 503 when any of them is
// down. Probes share a short deadline so a hung dependency cannot stall the
// load balancer check.
func healthHandler(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check(ctx); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
