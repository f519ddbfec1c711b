package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Timeline entry statuses
const (
	TimelineCompleted = "completed"
	TimelineActive    = "active"
	TimelineOngoing   = "ongoing"
	TimelinePending   = "pending"
)

// TimelineStatuses lists every accepted timeline status
var TimelineStatuses = []string{TimelineCompleted, TimelineActive, TimelineOngoing, TimelinePending}

// TimelineEntry holds the structure for the timelines collection in mongo
type TimelineEntry struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	CaseID      primitive.ObjectID `json:"caseId" bson:"caseId"`
	CaseNumber  string             `json:"caseNumber" bson:"caseNumber"`
	Stage       string             `json:"stage" bson:"stage"`
	Date        string             `json:"date" bson:"date"`
	Status      string             `json:"status" bson:"status"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Remarks     string             `json:"remarks,omitempty" bson:"remarks,omitempty"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// TimelineRequest is the create/update payload for a timeline entry
type TimelineRequest struct {
	Stage       string `json:"stage"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Remarks     string `json:"remarks"`
}

// StatusRequest carries a status transition for any sub-resource
type StatusRequest struct {
	Status string `json:"status"`
}
