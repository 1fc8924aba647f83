package gateway

import (
	"context"

	stripe "github.com/stripe/stripe-go"
)

// StripeGateway abstracts the Stripe API calls the reconciler needs.
type StripeGateway interface {
	GetSubscription(ctx context.Context, id string) (stripe.Subscription, error)
}
