package payment

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/price"
)

// StripeGateway creates a one-off price and a hosted checkout session
// for it, with the cart id as the client reference.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error) {
	priceParams := &stripe.PriceParams{
		Params:     stripe.Params{Context: ctx},
		UnitAmount: stripe.Int64(params.Amount),
		Currency:   stripe.String(params.Currency),
		ProductData: &stripe.PriceProductDataParams{
			Name: stripe.String(params.Description),
		},
	}
	created, err := price.New(priceParams)
	if err != nil {
		return nil, err
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(created.ID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(params.SuccessURL),
		CancelURL:         stripe.String(params.CancelURL),
		CustomerEmail:     stripe.String(params.CustomerEmail),
		ClientReferenceID: stripe.String(params.ClientReferenceID),
	}
	checkout, err := session.New(sessionParams)
	if err != nil {
		return nil, err
	}

	return &Session{ID: checkout.ID, URL: checkout.URL}, nil
}
