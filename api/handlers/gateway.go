package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chakshi/chakshi-api/api"
	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/databases"
	"github.com/chakshi/chakshi-api/logging"
	"github.com/chakshi/chakshi-api/models"
	"github.com/chakshi/chakshi-api/payments"
)

const maxWebhookBytes = 1 << 20

// Gateway exported for testing purposes
type Gateway struct {
	Provider  payments.Gateway
	PaymentDB databases.PaymentDatabase
	CaseDB    databases.CaseDatabase
}

// CreateOrderHandler opens a gateway order for the client checkout
func (g Gateway) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	if g.Provider == nil {
		writeNotConfigured(w, "payment gateway")
		return
	}
	var req models.OrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		config.ErrorStatus("amount must be greater than zero", http.StatusBadRequest, w, nil)
		return
	}
	if req.CaseID != "" {
		caseID, ok := parseObjectID(w, "caseId", req.CaseID)
		if !ok {
			return
		}
		if _, ok := findParentCase(w, r, g.CaseDB, caseID); !ok {
			return
		}
	}
	if req.Receipt == "" {
		id, err := gonanoid.New(12)
		if err != nil {
			config.ErrorStatus("failed to create receipt id", http.StatusInternalServerError, w, err)
			return
		}
		req.Receipt = "rcpt_" + id
	}

	order, err := g.Provider.CreateOrder(r.Context(), req)
	if err != nil {
		config.ErrorStatus("failed to create order", http.StatusBadGateway, w, err)
		return
	}
	logging.FromContext(r.Context()).Infow("payment order created", "provider", order.Provider, "orderId", order.ID, "amount", order.Amount)
	config.WriteSuccess(w, http.StatusCreated, order, "Order created successfully")
}

// VerifyPaymentHandler checks the checkout callback and, when the gateway
// reports the payment captured against a case, records it as paid. Amount
// and case come from the gateway, never from the request body.
func (g Gateway) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	if g.Provider == nil {
		writeNotConfigured(w, "payment gateway")
		return
	}
	var v models.PaymentVerification
	if !decodeJSON(w, r, &v) {
		return
	}
	vp, err := g.Provider.VerifyPayment(r.Context(), v)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			config.ErrorStatus("payment verification failed", http.StatusBadRequest, w, err)
			return
		}
		config.ErrorStatus("failed to verify payment", http.StatusBadGateway, w, err)
		return
	}

	log := logging.FromContext(r.Context())
	log.Infow("payment verified", "orderId", vp.OrderID, "paymentId", vp.PaymentID, "status", vp.Status)
	if !vp.Paid || !objectIDPattern.MatchString(vp.CaseID) {
		config.WriteSuccess(w, http.StatusOK, map[string]interface{}{"verified": true, "paid": vp.Paid}, "Payment verified")
		return
	}

	caseID, _ := primitive.ObjectIDFromHex(vp.CaseID)
	parent, ok := findParentCase(w, r, g.CaseDB, caseID)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	paymentID := vp.PaymentID
	if paymentID == "" {
		paymentID = vp.OrderID
	}
	description := v.Description
	if description == "" {
		description = "Online payment"
	}
	payment, err := g.recordPaid(ctx, parent, vp.OrderID, paymentID, vp.Amount, vp.Method, description)
	if err != nil {
		config.ErrorStatus("failed to record payment", http.StatusInternalServerError, w, err)
		return
	}
	config.WriteSuccess(w, http.StatusOK, map[string]interface{}{"verified": true, "paid": true, "payment": payment}, "Payment verified")
}

// recordPaid inserts a paid row for the gateway payment. The checkout
// callback and the webhook race for the same payment; the unique
// transactionId index lets exactly one insert win and the loser returns the
// stored row.
func (g Gateway) recordPaid(ctx context.Context, parent *models.Case, orderID, paymentID string, amount float64, method, description string) (*models.Payment, error) {
	if amount < 0 {
		return nil, payments.ErrInvalidAmount
	}
	ts := now()
	payment := models.Payment{
		ID:            primitive.NewObjectID(),
		CaseID:        parent.ID,
		CaseNumber:    parent.CaseNumber,
		Description:   description,
		Amount:        amount,
		Date:          time.Now().Format("2006-01-02"),
		Status:        models.PaymentPaid,
		Method:        method,
		TransactionID: paymentID,
		OrderID:       orderID,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	if _, err := g.PaymentDB.InsertOne(ctx, payment); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		existing, ferr := g.PaymentDB.FindOne(ctx, bson.M{"transactionId": paymentID})
		if ferr != nil {
			return nil, fmt.Errorf("load recorded payment: %w", ferr)
		}
		return existing, nil
	}
	return &payment, nil
}

// WebhookHandler handles signed gateway events. It sits outside the JWT
// middleware; the signature is the authentication.
func (g Gateway) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if g.Provider == nil {
		writeNotConfigured(w, "payment gateway")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		config.ErrorStatus("failed to read webhook body", http.StatusBadRequest, w, err)
		return
	}
	ev, err := g.Provider.ParseWebhook(body, r.Header)
	if err != nil {
		config.ErrorStatus("invalid webhook", http.StatusBadRequest, w, err)
		return
	}

	log := logging.FromContext(r.Context()).With("event", ev.Type, "orderId", ev.OrderID, "paymentId", ev.PaymentID)
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	switch ev.Type {
	case models.WebhookPaymentCaptured, models.WebhookOrderPaid:
		if !objectIDPattern.MatchString(ev.CaseID) {
			log.Infow("captured payment has no case, nothing to record")
			break
		}
		caseID, _ := primitive.ObjectIDFromHex(ev.CaseID)
		parent, err := g.CaseDB.FindOne(ctx, bson.M{"_id": caseID})
		if err != nil {
			log.Warnw("webhook names an unknown case", "caseId", ev.CaseID, "error", err)
			break
		}
		description := "Online payment"
		if ev.Method != "" {
			description += " (" + strings.ToUpper(ev.Method) + ")"
		}
		if _, err := g.recordPaid(ctx, parent, ev.OrderID, ev.PaymentID, ev.Amount, ev.Method, description); err != nil {
			config.ErrorStatus("failed to record payment", http.StatusInternalServerError, w, err)
			return
		}
		log.Infow("payment recorded from webhook", "caseId", ev.CaseID)
	case models.WebhookPaymentFailed:
		if ev.OrderID == "" {
			break
		}
		n, err := g.PaymentDB.UpdateMany(ctx,
			bson.M{"orderId": ev.OrderID, "status": bson.M{"$ne": models.PaymentPaid}},
			bson.M{"$set": bson.M{"status": models.PaymentDue, "updatedAt": now()}},
		)
		if err != nil {
			config.ErrorStatus("failed to update payments", http.StatusInternalServerError, w, err)
			return
		}
		log.Infow("payments marked due after failure", "count", n)
	default:
		log.Debugw("ignoring webhook event")
	}

	config.WriteSuccess(w, http.StatusOK, map[string]interface{}{"received": true}, "")
}
