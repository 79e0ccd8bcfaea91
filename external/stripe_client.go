package external

import (
	"context"
	"errors"
	"fmt"

	extErrors "github.com/pkg/errors"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
)

func NewStripeClient(key string) *client.API {
	sc := &client.API{}
	sc.Init(key, nil)
	return sc
}

// StripeGateway narrows the Stripe API down to the calls the landing site makes
type StripeGateway struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeGateway wraps an initialized Stripe client
func NewStripeGateway(api *client.API, logger *zap.Logger) (*StripeGateway, error) {
	if api == nil {
		return nil, fmt.Errorf("nil StripeClient is invalid")
	}
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &StripeGateway{
		api:    api,
		logger: logger,
	}, nil
}

// PriceByLookupKey returns the first price carrying the lookup key, or nil when none does
func (g *StripeGateway) PriceByLookupKey(ctx context.Context, lookupKey string) (*stripe.Price, error) {
	params := &stripe.PriceListParams{
		ListParams: stripe.ListParams{
			Context: ctx,
		},
		LookupKeys: []*string{
			stripe.String(lookupKey),
		},
	}
	params.AddExpand("data.product")

	iter := g.api.Prices.List(params)
	if iter.Next() {
		return iter.Price(), nil
	}
	if err := iter.Err(); err != nil {
		g.logStripeError("ListPrices", err)
		return nil, extErrors.Wrap(err, "Cannot list prices by lookup key")
	}
	return nil, nil
}

// NewCheckoutSession creates a Checkout Session
func (g *StripeGateway) NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logStripeError("NewCheckoutSession", err)
		return nil, extErrors.Wrap(err, "Cannot create checkout session")
	}
	return s, nil
}

// GetCheckoutSession retrieves a Checkout Session by id
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{
			Context: ctx,
		},
	}
	s, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		g.logStripeError("GetCheckoutSession", err)
		return nil, extErrors.Wrap(err, "Cannot retrieve checkout session")
	}
	return s, nil
}

// NewPortalSession opens a billing portal session for the customer
func (g *StripeGateway) NewPortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		g.logStripeError("NewPortalSession", err)
		return nil, extErrors.Wrap(err, "Cannot create billing portal session")
	}
	return s, nil
}

// GetSubscription retrieves a subscription with its line items
func (g *StripeGateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Params: stripe.Params{
			Context: ctx,
		},
	}
	s, err := g.api.Subscriptions.Get(id, params)
	if err != nil {
		g.logStripeError("GetSubscription", err)
		return nil, extErrors.Wrap(err, "Unable to fetch subscription from Stripe")
	}
	return s, nil
}

func (g *StripeGateway) logStripeError(operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		g.logger.Error("Stripe returned error",
			zap.String("Operation", operation),
			zap.String("Type", string(stripeErr.Type)),
			zap.String("Code", string(stripeErr.Code)),
			zap.String("Param", stripeErr.Param),
			zap.String("RequestID", stripeErr.RequestID),
			zap.Int("StatusCode", stripeErr.HTTPStatusCode),
			zap.String("Message", stripeErr.Msg),
		)
		return
	}
	g.logger.Error("Stripe request failed",
		zap.String("Operation", operation),
		zap.Error(err),
	)
}
