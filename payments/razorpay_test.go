package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/models"
)

type fakeOrders struct {
	got     map[string]interface{}
	resp    map[string]interface{}
	err     error
	fetched map[string]interface{}
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.got = data
	return f.resp, f.err
}

func (f *fakeOrders) Fetch(_ string, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	return f.fetched, f.err
}

type fakePayments struct {
	resp map[string]interface{}
	err  error
	ids  []string
}

func (f *fakePayments) Fetch(id string, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.ids = append(f.ids, id)
	return f.resp, f.err
}

func sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayCreateOrder(t *testing.T) {
	orders := &fakeOrders{resp: map[string]interface{}{
		"id": "order_9A33XWu170gUtm", "amount": float64(150050), "currency": "INR",
		"receipt": "rcpt-1", "status": "created",
	}}
	r := &Razorpay{keyID: "rzp_test_key", keySecret: "secret", orders: orders}

	o, err := r.CreateOrder(context.Background(), models.OrderRequest{
		Amount: 1500.5, Receipt: "rcpt-1", CaseID: "64b7f0c2e1d3a4b5c6d7e8f9",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(150050), orders.got["amount"])
	assert.Equal(t, "INR", orders.got["currency"])
	assert.Equal(t, "64b7f0c2e1d3a4b5c6d7e8f9", orders.got["notes"].(map[string]interface{})["caseId"])
	assert.Equal(t, "order_9A33XWu170gUtm", o.ID)
	assert.Equal(t, int64(150050), o.Amount)
	assert.Equal(t, "rzp_test_key", o.KeyID)
	assert.Equal(t, "razorpay", o.Provider)
}

func TestRazorpayCreateOrderErrors(t *testing.T) {
	r := &Razorpay{orders: &fakeOrders{err: errors.New("BAD_REQUEST_ERROR")}}
	_, err := r.CreateOrder(context.Background(), models.OrderRequest{Amount: 10})
	assert.EqualError(t, err, "razorpay create order: BAD_REQUEST_ERROR")

	_, err = r.CreateOrder(context.Background(), models.OrderRequest{Amount: 0})
	assert.Error(t, err)

	r.orders = &fakeOrders{resp: map[string]interface{}{}}
	_, err = r.CreateOrder(context.Background(), models.OrderRequest{Amount: 10})
	assert.Error(t, err)
}

func TestRazorpayVerifyPayment(t *testing.T) {
	pays := &fakePayments{resp: map[string]interface{}{
		"id": "pay_1", "order_id": "order_1", "amount": float64(250000), "status": "captured",
		"method": "upi", "notes": map[string]interface{}{"caseId": "64b7f0c2e1d3a4b5c6d7e8f9"},
	}}
	r := &Razorpay{keySecret: "s3cret", payments: pays, orders: &fakeOrders{}}
	v := models.PaymentVerification{
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: sign("order_1|pay_1", "s3cret"),
	}

	vp, err := r.VerifyPayment(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, &models.VerifiedPayment{
		OrderID: "order_1", PaymentID: "pay_1", Amount: 2500, CaseID: "64b7f0c2e1d3a4b5c6d7e8f9",
		Method: "upi", Status: "captured", Paid: true,
	}, vp)
	assert.Equal(t, []string{"pay_1"}, pays.ids)
}

func TestRazorpayVerifyPaymentRejectsBadSignature(t *testing.T) {
	pays := &fakePayments{}
	r := &Razorpay{keySecret: "s3cret", payments: pays}
	v := models.PaymentVerification{OrderID: "order_1", PaymentID: "pay_1", Signature: sign("order_1|pay_2", "s3cret")}

	_, err := r.VerifyPayment(context.Background(), v)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	v.Signature = ""
	_, err = r.VerifyPayment(context.Background(), v)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, pays.ids)
}

func TestRazorpayVerifyPaymentUsesGatewayAmount(t *testing.T) {
	r := &Razorpay{keySecret: "s3cret", orders: &fakeOrders{fetched: map[string]interface{}{
		"id": "order_1", "notes": map[string]interface{}{"caseId": "64b7f0c2e1d3a4b5c6d7e8f9"},
	}}}
	v := models.PaymentVerification{OrderID: "order_1", PaymentID: "pay_1", Signature: sign("order_1|pay_1", "s3cret")}

	r.payments = &fakePayments{resp: map[string]interface{}{
		"order_id": "order_1", "amount": float64(100), "status": "authorized", "notes": []interface{}{},
	}}
	vp, err := r.VerifyPayment(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, 1.0, vp.Amount)
	assert.False(t, vp.Paid)
	assert.Equal(t, "64b7f0c2e1d3a4b5c6d7e8f9", vp.CaseID, "case falls back to the order notes")

	r.payments = &fakePayments{resp: map[string]interface{}{"order_id": "order_1", "amount": float64(-500), "status": "captured"}}
	_, err = r.VerifyPayment(context.Background(), v)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	r.payments = &fakePayments{resp: map[string]interface{}{"order_id": "order_other", "amount": float64(100), "status": "captured"}}
	_, err = r.VerifyPayment(context.Background(), v)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	r.payments = &fakePayments{err: errors.New("BAD_REQUEST_ERROR")}
	_, err = r.VerifyPayment(context.Background(), v)
	assert.EqualError(t, err, "razorpay fetch payment: BAD_REQUEST_ERROR")
}

func TestRazorpayParseWebhook(t *testing.T) {
	r := &Razorpay{webhookSecret: "whsec"}
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":50000,"method":"upi","notes":{"caseId":"64b7f0c2e1d3a4b5c6d7e8f9"}}}}}`)

	h := http.Header{}
	h.Set("X-Razorpay-Signature", sign(string(body), "whsec"))
	ev, err := r.ParseWebhook(body, h)
	require.NoError(t, err)
	assert.Equal(t, &models.WebhookEvent{
		Type: models.WebhookPaymentCaptured, PaymentID: "pay_1", OrderID: "order_1",
		Amount: 500, Method: "upi", CaseID: "64b7f0c2e1d3a4b5c6d7e8f9",
	}, ev)

	h.Set("X-Razorpay-Signature", sign("tampered", "whsec"))
	_, err = r.ParseWebhook(body, h)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestRazorpayParseWebhookEmptyNotes(t *testing.T) {
	r := &Razorpay{webhookSecret: "whsec"}
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_2","amount":100,"notes":[]}}}}`)
	h := http.Header{}
	h.Set("X-Razorpay-Signature", sign(string(body), "whsec"))

	ev, err := r.ParseWebhook(body, h)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookPaymentFailed, ev.Type)
	assert.Empty(t, ev.CaseID)
	assert.Equal(t, 1.0, ev.Amount)
}

func TestNewGateway(t *testing.T) {
	g, err := New(&config.Config{PaymentProvider: "razorpay"})
	assert.NoError(t, err)
	assert.Nil(t, g)

	g, err = New(&config.Config{PaymentProvider: "razorpay", RazorpayKeyID: "k", RazorpayKeySecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, "razorpay", g.Name())

	_, err = New(&config.Config{PaymentProvider: "paypal"})
	assert.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
	assert.Equal(t, 19.99, FromMinorUnits(1999))
}

func TestRazorpayParseWebhookRejectsNegativeAmount(t *testing.T) {
	r := &Razorpay{webhookSecret: "whsec"}
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_3","order_id":"order_3","amount":-100}}}}`)
	h := http.Header{}
	h.Set("X-Razorpay-Signature", sign(string(body), "whsec"))

	_, err := r.ParseWebhook(body, h)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
