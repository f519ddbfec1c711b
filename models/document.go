package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Document statuses
const (
	DocumentUploaded = "uploaded"
	DocumentReviewed = "reviewed"
	DocumentApproved = "approved"
	DocumentRejected = "rejected"
)

// DocumentStatuses lists every accepted document status
var DocumentStatuses = []string{DocumentUploaded, DocumentReviewed, DocumentApproved, DocumentRejected}

// Document holds the structure for the documents collection in mongo.
// CaseRef keeps the raw reference when it resolved to no case.
type Document struct {
	ID         primitive.ObjectID  `json:"_id" bson:"_id"`
	Title      string              `json:"title" bson:"title"`
	Category   string              `json:"category,omitempty" bson:"category,omitempty"`
	FileName   string              `json:"fileName" bson:"fileName"`
	StorageKey string              `json:"storageKey" bson:"storageKey"`
	URL        string              `json:"url" bson:"url"`
	MimeType   string              `json:"mimeType" bson:"mimeType"`
	Size       int64               `json:"size" bson:"size"`
	Status     string              `json:"status" bson:"status"`
	CaseID     *primitive.ObjectID `json:"caseId,omitempty" bson:"caseId,omitempty"`
	CaseNumber string              `json:"caseNumber,omitempty" bson:"caseNumber,omitempty"`
	CaseRef    string              `json:"caseRef,omitempty" bson:"caseRef,omitempty"`
	ClientID   *primitive.ObjectID `json:"clientId,omitempty" bson:"clientId,omitempty"`
	UploadedBy string              `json:"uploadedBy,omitempty" bson:"uploadedBy,omitempty"`
	CreatedAt  primitive.DateTime  `json:"createdAt" bson:"createdAt"`
	UpdatedAt  primitive.DateTime  `json:"updatedAt" bson:"updatedAt"`
}

// DocumentForm is decoded from the multipart text fields of an upload
type DocumentForm struct {
	Title      string `form:"title"`
	Category   string `form:"category"`
	CaseID     string `form:"caseId"`
	CaseNumber string `form:"caseNumber"`
	ClientID   string `form:"clientId"`
}

// DocumentFilter is decoded from the document list query string
type DocumentFilter struct {
	CaseID     string `form:"caseId"`
	CaseNumber string `form:"caseNumber"`
	ClientID   string `form:"clientId"`
	Status     string `form:"status"`
}
