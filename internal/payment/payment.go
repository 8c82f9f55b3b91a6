// Package payment abstracts the checkout gateway. The core treats the
// returned session as opaque: it only forwards the redirect URL.
package payment

import "context"

// CheckoutParams describes one hosted-checkout session. Amount is in
// the currency's smallest unit.
type CheckoutParams struct {
	Amount            int64
	Currency          string
	Description       string
	CustomerEmail     string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
}

// Session is the gateway's answer: where to send the customer.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error)
}
