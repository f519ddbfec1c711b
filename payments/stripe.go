package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/chakshi/chakshi-api/models"
)

type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeIntents struct{}

func (stripeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.New(params)
}

func (stripeIntents) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.Get(id, params)
}

// Stripe is the Stripe gateway. Orders are payment intents.
type Stripe struct {
	webhookSecret string
	intents       intentAPI
}

// NewStripe sets the global Stripe key
func NewStripe(secretKey, webhookSecret string) *Stripe {
	stripe.Key = secretKey
	return &Stripe{webhookSecret: webhookSecret, intents: stripeIntents{}}
}

// Name returns "stripe"
func (s *Stripe) Name() string { return "stripe" }

// KeyID is empty, the client uses the intent's client secret
func (s *Stripe) KeyID() string { return "" }

// CreateOrder creates a payment intent
func (s *Stripe) CreateOrder(_ context.Context, req models.OrderRequest) (*models.Order, error) {
	if req.Amount <= 0 {
		return nil, errors.New("amount must be greater than zero")
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(currencyOrDefault(req.Currency))),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}
	if req.CaseID != "" {
		params.AddMetadata("caseId", req.CaseID)
	}
	if req.Receipt != "" {
		params.AddMetadata("receipt", req.Receipt)
	}
	pi, err := s.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return &models.Order{
		ID:           pi.ID,
		Provider:     s.Name(),
		Amount:       pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
		Receipt:      req.Receipt,
		Status:       string(pi.Status),
		ClientSecret: pi.ClientSecret,
	}, nil
}

// VerifyPayment fetches the intent named by OrderID. Amount and case come
// from the intent; it counts as paid once it has succeeded.
func (s *Stripe) VerifyPayment(_ context.Context, v models.PaymentVerification) (*models.VerifiedPayment, error) {
	if v.OrderID == "" {
		return nil, ErrInvalidSignature
	}
	pi, err := s.intents.Get(v.OrderID, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe get payment intent: %w", err)
	}
	if pi.AmountReceived < 0 {
		return nil, ErrInvalidAmount
	}
	vp := &models.VerifiedPayment{
		OrderID:   pi.ID,
		PaymentID: pi.ID,
		Amount:    FromMinorUnits(pi.AmountReceived),
		CaseID:    pi.Metadata["caseId"],
		Status:    string(pi.Status),
		Paid:      pi.Status == stripe.PaymentIntentStatusSucceeded,
	}
	if len(pi.PaymentMethodTypes) > 0 {
		vp.Method = pi.PaymentMethodTypes[0]
	}
	return vp, nil
}

// ParseWebhook verifies Stripe-Signature and maps intent events onto the
// Razorpay event names
func (s *Stripe) ParseWebhook(payload []byte, header http.Header) (*models.WebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, errors.New("webhook secret is not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, header.Get("Stripe-Signature"), s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, ErrInvalidSignature
	}

	ev := &models.WebhookEvent{Type: string(event.Type)}
	switch event.Type {
	case "payment_intent.succeeded":
		ev.Type = models.WebhookPaymentCaptured
	case "payment_intent.payment_failed":
		ev.Type = models.WebhookPaymentFailed
	default:
		return ev, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	if pi.Amount < 0 {
		return nil, ErrInvalidAmount
	}
	ev.PaymentID = pi.ID
	ev.OrderID = pi.ID
	ev.Amount = FromMinorUnits(pi.Amount)
	ev.CaseID = pi.Metadata["caseId"]
	if len(pi.PaymentMethodTypes) > 0 {
		ev.Method = pi.PaymentMethodTypes[0]
	}
	return ev, nil
}
