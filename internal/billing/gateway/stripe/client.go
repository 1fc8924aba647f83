package stripegw

import (
	"context"

	stripe "github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/sub"

	gw "krewup/internal/billing/gateway"
)

// SetKey configures the Stripe SDK key once during startup.
func SetKey(key string) { stripe.Key = key }

// client is the Stripe SDK-backed implementation of the gateway.
type client struct{}

// New returns a StripeGateway backed by the official Stripe SDK.
func New() gw.StripeGateway { return client{} }

func (client) GetSubscription(ctx context.Context, id string) (stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	subPtr, err := sub.Get(id, params)
	if err != nil {
		return stripe.Subscription{}, err
	}
	if subPtr == nil {
		return stripe.Subscription{}, nil
	}
	return *subPtr, nil
}
