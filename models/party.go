package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Party types
const (
	PartyClient   = "client"
	PartyOpposite = "opposite"
	PartyWitness  = "witness"
	PartyOther    = "other"
)

// ID proof types
const (
	IDProofPAN     = "pan"
	IDProofAadhaar = "aadhaar"
)

// PartyTypes lists every accepted party type
var PartyTypes = []string{PartyClient, PartyOpposite, PartyWitness, PartyOther}

// Party holds the structure for the parties collection in mongo
type Party struct {
	ID             primitive.ObjectID   `json:"_id" bson:"_id"`
	Name           string               `json:"name" bson:"name"`
	Type           string               `json:"type" bson:"type"`
	Email          string               `json:"email,omitempty" bson:"email,omitempty"`
	Phone          string               `json:"phone,omitempty" bson:"phone,omitempty"`
	Address        string               `json:"address,omitempty" bson:"address,omitempty"`
	Organization   string               `json:"organization,omitempty" bson:"organization,omitempty"`
	Notes          string               `json:"notes,omitempty" bson:"notes,omitempty"`
	IDProofs       []IDProof            `json:"idProofs" bson:"idProofs"`
	LinkedCases    []PartyCaseLink      `json:"linkedCases" bson:"linkedCases"`
	Documents      []primitive.ObjectID `json:"documents" bson:"documents"`
	PaymentHistory []PartyPayment       `json:"paymentHistory" bson:"paymentHistory"`
	Communications []Communication      `json:"communications" bson:"communications"`
	Insights       PartyInsights        `json:"insights" bson:"insights"`
	CreatedAt      primitive.DateTime   `json:"createdAt" bson:"createdAt"`
	UpdatedAt      primitive.DateTime   `json:"updatedAt" bson:"updatedAt"`
}

// PartyInsights is stored and returned as-is; nothing computes it yet.
type PartyInsights struct {
	SuccessRate       float64 `json:"successRate" bson:"successRate"`
	SatisfactionScore float64 `json:"satisfactionScore" bson:"satisfactionScore"`
}

// IDProof is an uploaded identity document. Verified is never set by the API.
type IDProof struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	Type       string             `json:"type" bson:"type"`
	Number     string             `json:"number" bson:"number"`
	FileName   string             `json:"fileName" bson:"fileName"`
	StorageKey string             `json:"storageKey" bson:"storageKey"`
	URL        string             `json:"url" bson:"url"`
	MimeType   string             `json:"mimeType" bson:"mimeType"`
	Size       int64              `json:"size" bson:"size"`
	Verified   bool               `json:"verified" bson:"verified"`
	UploadedAt primitive.DateTime `json:"uploadedAt" bson:"uploadedAt"`
}

// PartyCaseLink links a party to a case
type PartyCaseLink struct {
	CaseID     primitive.ObjectID `json:"caseId" bson:"caseId"`
	CaseNumber string             `json:"caseNumber" bson:"caseNumber"`
	Role       string             `json:"role,omitempty" bson:"role,omitempty"`
	LinkedAt   primitive.DateTime `json:"linkedAt" bson:"linkedAt"`
}

// PartyPayment is one entry of a party's payment log
type PartyPayment struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	Amount      float64            `json:"amount" bson:"amount"`
	Date        string             `json:"date" bson:"date"`
	Method      string             `json:"method,omitempty" bson:"method,omitempty"`
	Reference   string             `json:"reference,omitempty" bson:"reference,omitempty"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// Communication is one entry of a party's communication log
type Communication struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Channel   string             `json:"channel" bson:"channel"`
	Direction string             `json:"direction,omitempty" bson:"direction,omitempty"`
	Summary   string             `json:"summary" bson:"summary"`
	Date      string             `json:"date" bson:"date"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// PartyRequest is the create/update payload for a party
type PartyRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Organization string `json:"organization"`
	Notes        string `json:"notes"`
}

// PartyFilter is decoded from the party list query string
type PartyFilter struct {
	Query string `form:"q"`
	Type  string `form:"type"`
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
}

// IDProofForm is decoded from the multipart text fields of an ID proof upload
type IDProofForm struct {
	Type   string `form:"type"`
	Number string `form:"number"`
}

// PartyCaseLinkRequest links a case to a party
type PartyCaseLinkRequest struct {
	CaseID string `json:"caseId"`
	Role   string `json:"role"`
}

var (
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)
)

// NormalizeIDProof validates an ID number for its proof type and returns
// the form that is stored. Aadhaar numbers keep only their last four
// digits.
func NormalizeIDProof(proofType, number string) (string, string, error) {
	proofType = strings.ToLower(strings.TrimSpace(proofType))
	number = strings.Join(strings.Fields(number), "")
	switch proofType {
	case IDProofPAN:
		number = strings.ToUpper(number)
		if !panPattern.MatchString(number) {
			return "", "", errors.New("invalid PAN number")
		}
		return proofType, number, nil
	case IDProofAadhaar:
		number = strings.ReplaceAll(number, "-", "")
		if !aadhaarPattern.MatchString(number) {
			return "", "", errors.New("aadhaar number must be 12 digits")
		}
		return proofType, "XXXX-XXXX-" + number[8:], nil
	default:
		return "", "", fmt.Errorf("unknown id proof type %q", proofType)
	}
}

// PartyPaymentRequest appends to a party's payment log
type PartyPaymentRequest struct {
	Amount      *float64 `json:"amount"`
	Date        string   `json:"date"`
	Method      string   `json:"method"`
	Reference   string   `json:"reference"`
	Description string   `json:"description"`
}

// CommunicationRequest appends to a party's communication log
type CommunicationRequest struct {
	Channel   string `json:"channel"`
	Direction string `json:"direction"`
	Summary   string `json:"summary"`
	Date      string `json:"date"`
}
