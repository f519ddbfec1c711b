package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Note holds the structure for the notes collection in mongo
type Note struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	CaseID     primitive.ObjectID `json:"caseId" bson:"caseId"`
	CaseNumber string             `json:"caseNumber" bson:"caseNumber"`
	Content    string             `json:"content" bson:"content"`
	Author     string             `json:"author,omitempty" bson:"author,omitempty"`
	Category   string             `json:"category,omitempty" bson:"category,omitempty"`
	Pinned     bool               `json:"pinned" bson:"pinned"`
	Tags       []string           `json:"tags" bson:"tags"`
	CreatedAt  primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt  primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// NoteRequest is the create/update payload for a note. Pinned is a
// pointer so updates can leave it alone.
type NoteRequest struct {
	Content  string   `json:"content"`
	Author   string   `json:"author"`
	Category string   `json:"category"`
	Pinned   *bool    `json:"pinned"`
	Tags     []string `json:"tags"`
}
