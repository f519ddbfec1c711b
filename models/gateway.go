package models

// OrderRequest asks the payment gateway for an order. Amount is in rupees.
type OrderRequest struct {
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	CaseID   string            `json:"caseId"`
	Notes    map[string]string `json:"notes"`
}

// Order is a gateway order. Amount is in the smallest currency unit.
type Order struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Receipt      string `json:"receipt,omitempty"`
	Status       string `json:"status"`
	KeyID        string `json:"keyId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

// PaymentVerification is the checkout callback the client forwards. The
// amount and case are never taken from it.
type PaymentVerification struct {
	OrderID     string `json:"razorpay_order_id"`
	PaymentID   string `json:"razorpay_payment_id"`
	Signature   string `json:"razorpay_signature"`
	Description string `json:"description"`
}

// VerifiedPayment is a payment as reported by the gateway itself. Amount is
// in rupees. Paid is false until the money is captured.
type VerifiedPayment struct {
	OrderID   string  `json:"orderId"`
	PaymentID string  `json:"paymentId"`
	Amount    float64 `json:"amount"`
	CaseID    string  `json:"caseId,omitempty"`
	Method    string  `json:"method,omitempty"`
	Status    string  `json:"status"`
	Paid      bool    `json:"paid"`
}

// Webhook event types the API acts on
const (
	WebhookPaymentCaptured = "payment.captured"
	WebhookPaymentFailed   = "payment.failed"
	WebhookOrderPaid       = "order.paid"
)

// WebhookEvent is a verified gateway event reduced to what the API uses.
// Amount is in rupees.
type WebhookEvent struct {
	Type      string  `json:"type"`
	PaymentID string  `json:"paymentId"`
	OrderID   string  `json:"orderId"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method,omitempty"`
	CaseID    string  `json:"caseId,omitempty"`
}
