package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Payment statuses
const (
	PaymentPaid    = "paid"
	PaymentPending = "pending"
	PaymentDue     = "due"
)

// PaymentStatuses lists every accepted payment status
var PaymentStatuses = []string{PaymentPaid, PaymentPending, PaymentDue}

// Payment holds the structure for the payments collection in mongo
type Payment struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id"`
	CaseID        primitive.ObjectID `json:"caseId" bson:"caseId"`
	CaseNumber    string             `json:"caseNumber" bson:"caseNumber"`
	Description   string             `json:"description" bson:"description"`
	Amount        float64            `json:"amount" bson:"amount"`
	Date          string             `json:"date" bson:"date"`
	Status        string             `json:"status" bson:"status"`
	Method        string             `json:"method,omitempty" bson:"method,omitempty"`
	TransactionID string             `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	OrderID       string             `json:"orderId,omitempty" bson:"orderId,omitempty"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt     primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// PaymentRequest is the create payload for a case payment
type PaymentRequest struct {
	Description   string   `json:"description"`
	Amount        *float64 `json:"amount"`
	Date          string   `json:"date"`
	Status        string   `json:"status"`
	Method        string   `json:"method"`
	TransactionID string   `json:"transactionId"`
}

// PaymentStats is recomputed from the payment rows on every request
type PaymentStats struct {
	Total       float64 `json:"total"`
	Paid        float64 `json:"paid"`
	Pending     float64 `json:"pending"`
	Due         float64 `json:"due"`
	Outstanding float64 `json:"outstanding"`
	Count       int     `json:"count"`
}

// StatusTotal is one row of a $group-by-status aggregate
type StatusTotal struct {
	Status string  `json:"status" bson:"_id"`
	Amount float64 `json:"amount" bson:"amount"`
	Count  int64   `json:"count" bson:"count"`
}

// NewPaymentStats sums payments by status. outstanding is total minus paid.
func NewPaymentStats(payments []Payment) PaymentStats {
	var s PaymentStats
	for _, p := range payments {
		s.Total += p.Amount
		switch p.Status {
		case PaymentPaid:
			s.Paid += p.Amount
		case PaymentPending:
			s.Pending += p.Amount
		case PaymentDue:
			s.Due += p.Amount
		}
	}
	s.Outstanding = s.Total - s.Paid
	s.Count = len(payments)
	return s
}
