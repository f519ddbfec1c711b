// Package payments creates and verifies online payments through Razorpay
// or Stripe.
package payments

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/models"
)

// ErrInvalidSignature is returned when a checkout callback or webhook does
// not verify
var ErrInvalidSignature = errors.New("invalid signature")

// ErrInvalidAmount is returned when the gateway reports a negative amount
var ErrInvalidAmount = errors.New("invalid payment amount")

// Gateway is a payment provider
type Gateway interface {
	Name() string
	KeyID() string
	CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error)
	VerifyPayment(ctx context.Context, v models.PaymentVerification) (*models.VerifiedPayment, error)
	ParseWebhook(payload []byte, header http.Header) (*models.WebhookEvent, error)
}

// New returns the configured gateway, or nil when the provider's keys are
// not set
func New(conf *config.Config) (Gateway, error) {
	switch strings.ToLower(conf.PaymentProvider) {
	case "", "razorpay":
		if conf.RazorpayKeyID == "" || conf.RazorpayKeySecret == "" {
			return nil, nil
		}
		return NewRazorpay(conf.RazorpayKeyID, conf.RazorpayKeySecret, conf.RazorpayWebhookSecret), nil
	case "stripe":
		if conf.StripeSecretKey == "" {
			return nil, nil
		}
		return NewStripe(conf.StripeSecretKey, conf.StripeWebhookSecret), nil
	default:
		return nil, errors.New("unknown payment provider " + conf.PaymentProvider)
	}
}

// ToMinorUnits converts rupees to paise
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts paise to rupees
func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "INR"
	}
	return strings.ToUpper(c)
}
