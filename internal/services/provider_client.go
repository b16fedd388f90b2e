package services

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// ProviderClient reads expanded objects back from the payment provider.
// Webhook payloads for checkout sessions carry only the subscription ID;
// the full object is fetched after the event arrives.
type ProviderClient interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

type stripeProviderClient struct {
	api *client.API
}

func NewStripeProviderClient(apiKey string) ProviderClient {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &stripeProviderClient{api: api}
}

func (c *stripeProviderClient) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return c.api.Subscriptions.Get(id, params)
}
