package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chakshi/chakshi-api/api"
	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/databases"
	"github.com/chakshi/chakshi-api/logging"
	"github.com/chakshi/chakshi-api/models"
)

// Payment exported for testing purposes
type Payment struct {
	DB     databases.PaymentDatabase
	CaseDB databases.CaseDatabase
}

// CreatePaymentHandler records a payment against a case
func (p Payment) CreatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	var req models.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"description": req.Description}) {
		return
	}
	if req.Amount == nil {
		config.ErrorStatus("missing required fields: amount", http.StatusBadRequest, w, nil)
		return
	}
	if *req.Amount < 0 {
		config.ErrorStatus("amount must not be negative", http.StatusBadRequest, w, nil)
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = models.PaymentPending
	}
	if !contains(models.PaymentStatuses, status) {
		config.ErrorStatus("invalid status: "+req.Status, http.StatusBadRequest, w, nil)
		return
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	parent, ok := findParentCase(w, r, p.CaseDB, caseID)
	if !ok {
		return
	}

	ts := now()
	payment := models.Payment{
		ID:            primitive.NewObjectID(),
		CaseID:        caseID,
		CaseNumber:    parent.CaseNumber,
		Description:   strings.TrimSpace(req.Description),
		Amount:        *req.Amount,
		Date:          date,
		Status:        status,
		Method:        req.Method,
		TransactionID: req.TransactionID,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := p.DB.InsertOne(ctx, payment); err != nil {
		config.ErrorStatus("failed to create payment", http.StatusInternalServerError, w, err)
		return
	}
	logging.FromContext(r.Context()).Infow("payment created", "caseId", caseID.Hex(), "paymentId", payment.ID.Hex(), "amount", payment.Amount)
	config.WriteSuccess(w, http.StatusCreated, payment, "Payment created successfully")
}

// PaymentsHandler lists a case's payments, newest first
func (p Payment) PaymentsHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	payments, err := p.DB.Find(ctx, bson.M{"caseId": caseID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		config.ErrorStatus("failed to get payments", http.StatusInternalServerError, w, err)
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	config.WriteSuccess(w, http.StatusOK, payments, "")
}

// PaymentStatsHandler sums a case's payments by status. Nothing is cached.
func (p Payment) PaymentStatsHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	payments, err := p.DB.Find(ctx, bson.M{"caseId": caseID})
	if err != nil {
		config.ErrorStatus("failed to get payments", http.StatusInternalServerError, w, err)
		return
	}
	config.WriteSuccess(w, http.StatusOK, models.NewPaymentStats(payments), "")
}

// UpdatePaymentStatusHandler sets a payment's status. Values outside
// paid, pending and due are rejected before anything is written.
func (p Payment) UpdatePaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	paymentID, ok := parseObjectID(w, "paymentId", mux.Vars(r)["paymentId"])
	if !ok {
		return
	}
	var req models.StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !contains(models.PaymentStatuses, status) {
		config.ErrorStatus("invalid status: "+req.Status, http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{"_id": paymentID, "caseId": caseID}
	matched, err := p.DB.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": status, "updatedAt": now()}})
	if err != nil {
		config.ErrorStatus("failed to update payment", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("payment not found", http.StatusNotFound, w, nil)
		return
	}
	payment, err := p.DB.FindOne(ctx, filter)
	if err != nil {
		writeFindError(w, "payment", err)
		return
	}
	logging.FromContext(r.Context()).Infow("payment status updated", "paymentId", paymentID.Hex(), "status", status)
	config.WriteSuccess(w, http.StatusOK, payment, "Payment updated successfully")
}

// DeletePaymentHandler removes one payment
func (p Payment) DeletePaymentHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	paymentID, ok := parseObjectID(w, "paymentId", mux.Vars(r)["paymentId"])
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	deleted, err := p.DB.DeleteOne(ctx, bson.M{"_id": paymentID, "caseId": caseID})
	if err != nil {
		config.ErrorStatus("failed to delete payment", http.StatusInternalServerError, w, err)
		return
	}
	if deleted == 0 {
		config.ErrorStatus("payment not found", http.StatusNotFound, w, nil)
		return
	}
	logging.FromContext(r.Context()).Infow("payment deleted", "caseId", caseID.Hex(), "paymentId", paymentID.Hex())
	config.WriteSuccess(w, http.StatusOK, nil, "Payment deleted successfully")
}
