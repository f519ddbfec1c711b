package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/chakshi/chakshi-api/models"
)

// orderAPI is the part of the Razorpay order resource the gateway uses
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay is the Razorpay gateway
type Razorpay struct {
	keyID         string
	keySecret     string
	webhookSecret string
	orders        orderAPI
	payments      paymentAPI
}

// NewRazorpay builds a gateway using the Razorpay REST client
func NewRazorpay(keyID, keySecret, webhookSecret string) *Razorpay {
	client := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		orders:        client.Order,
		payments:      client.Payment,
	}
}

// Name returns "razorpay"
func (r *Razorpay) Name() string { return "razorpay" }

// KeyID is the public key the checkout widget needs
func (r *Razorpay) KeyID() string { return r.keyID }

// CreateOrder creates a Razorpay order for req.Amount rupees
func (r *Razorpay) CreateOrder(_ context.Context, req models.OrderRequest) (*models.Order, error) {
	if req.Amount <= 0 {
		return nil, errors.New("amount must be greater than zero")
	}
	notes := map[string]interface{}{}
	for k, v := range req.Notes {
		notes[k] = v
	}
	if req.CaseID != "" {
		notes["caseId"] = req.CaseID
	}
	data := map[string]interface{}{
		"amount":   ToMinorUnits(req.Amount),
		"currency": currencyOrDefault(req.Currency),
		"receipt":  req.Receipt,
		"notes":    notes,
	}
	body, err := r.orders.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	o := &models.Order{Provider: r.Name(), KeyID: r.keyID}
	o.ID, _ = body["id"].(string)
	o.Currency, _ = body["currency"].(string)
	o.Receipt, _ = body["receipt"].(string)
	o.Status, _ = body["status"].(string)
	if amount, ok := body["amount"].(float64); ok {
		o.Amount = int64(amount)
	}
	if o.ID == "" {
		return nil, errors.New("razorpay create order: response has no id")
	}
	return o, nil
}

// VerifyPayment checks the checkout signature over "order_id|payment_id",
// then fetches the payment so the amount and case come from Razorpay. The
// case is read from the payment notes, falling back to the order's.
func (r *Razorpay) VerifyPayment(_ context.Context, v models.PaymentVerification) (*models.VerifiedPayment, error) {
	if v.OrderID == "" || v.PaymentID == "" || v.Signature == "" {
		return nil, ErrInvalidSignature
	}
	params := map[string]interface{}{
		"razorpay_order_id":   v.OrderID,
		"razorpay_payment_id": v.PaymentID,
	}
	if !utils.VerifyPaymentSignature(params, v.Signature, r.keySecret) {
		return nil, ErrInvalidSignature
	}

	p, err := r.payments.Fetch(v.PaymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch payment: %w", err)
	}
	if orderID, _ := p["order_id"].(string); orderID != v.OrderID {
		return nil, ErrInvalidSignature
	}
	amount, ok := p["amount"].(float64)
	if !ok || amount < 0 {
		return nil, ErrInvalidAmount
	}

	vp := &models.VerifiedPayment{
		OrderID:   v.OrderID,
		PaymentID: v.PaymentID,
		Amount:    FromMinorUnits(int64(amount)),
		CaseID:    noteString(p["notes"], "caseId"),
	}
	vp.Method, _ = p["method"].(string)
	vp.Status, _ = p["status"].(string)
	vp.Paid = vp.Status == "captured"

	if vp.CaseID == "" {
		o, err := r.orders.Fetch(v.OrderID, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("razorpay fetch order: %w", err)
		}
		vp.CaseID = noteString(o["notes"], "caseId")
	}
	return vp, nil
}

// noteString reads a key from Razorpay notes, which are an object when set
// and [] when empty
func noteString(notes interface{}, key string) string {
	m, ok := notes.(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string          `json:"id"`
				OrderID string          `json:"order_id"`
				Amount  int64           `json:"amount"`
				Method  string          `json:"method"`
				Notes   json.RawMessage `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhook verifies X-Razorpay-Signature against the raw body and
// reduces the event
func (r *Razorpay) ParseWebhook(payload []byte, header http.Header) (*models.WebhookEvent, error) {
	if r.webhookSecret == "" {
		return nil, errors.New("webhook secret is not configured")
	}
	signature := header.Get("X-Razorpay-Signature")
	if signature == "" || !utils.VerifyWebhookSignature(string(payload), signature, r.webhookSecret) {
		return nil, ErrInvalidSignature
	}
	var wh razorpayWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	p := wh.Payload.Payment.Entity
	if p.Amount < 0 {
		return nil, ErrInvalidAmount
	}
	ev := &models.WebhookEvent{
		Type:      wh.Event,
		PaymentID: p.ID,
		OrderID:   p.OrderID,
		Amount:    FromMinorUnits(p.Amount),
		Method:    p.Method,
	}
	var notes interface{}
	if json.Unmarshal(p.Notes, &notes) == nil {
		ev.CaseID = noteString(notes, "caseId")
	}
	return ev, nil
}
