package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lukechats/retail-backend/pkg/logger"
)

const (
	customerIDHeader  = "X-Customer-Id"
	defaultCustomerID = "guest"
)

type contextKey string

const customerIDKey contextKey = "customer_id"

// CustomerContext resolves the calling customer from the X-Customer-Id header.
// Anonymous callers all share the "guest" identity.
func CustomerContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			customerID := strings.TrimSpace(r.Header.Get(customerIDHeader))
			if customerID == "" {
				customerID = defaultCustomerID
			}

			ctx := context.WithValue(r.Context(), customerIDKey, customerID)
			if logg != nil {
				ctx = logg.WithCustomerID(ctx, customerID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CustomerID returns the customer id attached by CustomerContext.
func CustomerID(ctx context.Context) string {
	if v, ok := ctx.Value(customerIDKey).(string); ok && v != "" {
		return v
	}
	return defaultCustomerID
}
