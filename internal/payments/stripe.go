// Package payments creates Stripe checkout sessions and in-person payment intents.
package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/terminal/connectiontoken"
)

// ErrInvalidAmount is returned for non-positive amounts.
var ErrInvalidAmount = errors.New("amount must be greater than zero")

const DefaultCurrency = "aud"

// Gateway is the payment surface used by the API.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CreateTapToPayIntent(ctx context.Context, amount float64) (*PaymentIntent, error)
	CreateConnectionToken(ctx context.Context) (string, error)
}

// CheckoutRequest describes a one-item hosted checkout.
type CheckoutRequest struct {
	Amount float64
	Name   string
	// Origin is the site the customer returns to.
	Origin string
}

type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"url,omitempty"`
}

type PaymentIntent struct {
	ID           string `json:"payment_intent_id"`
	ClientSecret string `json:"client_secret"`
}

// StripeGateway calls the Stripe API with a per-client key rather than the global stripe.Key.
type StripeGateway struct {
	currency    string
	checkout    session.Client
	intents     paymentintent.Client
	connections connectiontoken.Client
	logger      zerolog.Logger
}

// NewStripeGateway creates a gateway. A nil backend uses the default Stripe API backend.
func NewStripeGateway(secretKey, currency string, backend stripe.Backend, logger *zerolog.Logger) *StripeGateway {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &StripeGateway{
		currency:    strings.ToLower(currency),
		checkout:    session.Client{B: backend, Key: secretKey},
		intents:     paymentintent.Client{B: backend, Key: secretKey},
		connections: connectiontoken.Client{B: backend, Key: secretKey},
		logger:      logger.With().Str("component", "payments").Logger(),
	}
}

// minorUnits converts a major-unit amount to cents, rounding half away from zero.
func minorUnits(amount float64) (int64, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	return int64(math.Round(amount * 100)), nil
}

func (g *StripeGateway) checkoutParams(req CheckoutRequest) (*stripe.CheckoutSessionParams, error) {
	cents, err := minorUnits(req.Amount)
	if err != nil {
		return nil, err
	}
	name := req.Name
	if name == "" {
		name = "Booking"
	}
	origin := strings.TrimRight(req.Origin, "/")

	return &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(origin + "/success"),
		CancelURL:          stripe.String(origin + "/"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
					UnitAmount: stripe.Int64(cents),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params, err := g.checkoutParams(req)
	if err != nil {
		return nil, err
	}
	params.Context = ctx

	sess, err := g.checkout.New(params)
	if err != nil {
		g.logger.Error().Err(err).Msg("stripe checkout session create failed")
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) tapToPayParams(amount float64) (*stripe.PaymentIntentParams, error) {
	cents, err := minorUnits(amount)
	if err != nil {
		return nil, err
	}
	return &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(cents),
		Currency:           stripe.String(g.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card_present"}),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic)),
	}, nil
}

// CreateTapToPayIntent creates a card_present intent for in-person terminals.
func (g *StripeGateway) CreateTapToPayIntent(ctx context.Context, amount float64) (*PaymentIntent, error) {
	params, err := g.tapToPayParams(amount)
	if err != nil {
		return nil, err
	}
	params.Context = ctx

	pi, err := g.intents.New(params)
	if err != nil {
		g.logger.Error().Err(err).Msg("stripe payment intent create failed")
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// CreateConnectionToken returns the secret a terminal reader uses to connect.
func (g *StripeGateway) CreateConnectionToken(ctx context.Context) (string, error) {
	params := &stripe.TerminalConnectionTokenParams{}
	params.Context = ctx

	token, err := g.connections.New(params)
	if err != nil {
		g.logger.Error().Err(err).Msg("stripe connection token create failed")
		return "", fmt.Errorf("create connection token: %w", err)
	}
	return token.Secret, nil
}
