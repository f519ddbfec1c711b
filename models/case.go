package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Case statuses. Incoming values are matched case-insensitively.
const (
	CaseStatusActive   = "Active"
	CaseStatusPending  = "Pending"
	CaseStatusOnHold   = "On Hold"
	CaseStatusClosed   = "Closed"
	CaseStatusDisposed = "Disposed"
)

// Case priorities
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"
)

// Hearing statuses
const (
	HearingScheduled = "scheduled"
	HearingCompleted = "completed"
	HearingAdjourned = "adjourned"
	HearingCancelled = "cancelled"
)

var caseStatuses = []string{CaseStatusActive, CaseStatusPending, CaseStatusOnHold, CaseStatusClosed, CaseStatusDisposed}

var priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

var hearingStatuses = []string{HearingScheduled, HearingCompleted, HearingAdjourned, HearingCancelled}

// Case holds the structure for the cases collection in mongo. The clerk
// routes read the same documents through a projection.
type Case struct {
	ID              primitive.ObjectID  `json:"_id" bson:"_id"`
	CaseNumber      string              `json:"caseNumber" bson:"caseNumber"`
	CaseTitle       string              `json:"caseTitle" bson:"caseTitle"`
	ClientName      string              `json:"clientName" bson:"clientName"`
	ClientID        string              `json:"clientId,omitempty" bson:"clientId,omitempty"`
	OppositeParty   string              `json:"oppositeParty" bson:"oppositeParty"`
	Court           string              `json:"court" bson:"court"`
	Judge           string              `json:"judge,omitempty" bson:"judge,omitempty"`
	CaseType        string              `json:"caseType,omitempty" bson:"caseType,omitempty"`
	Description     string              `json:"description,omitempty" bson:"description,omitempty"`
	Status          string              `json:"status" bson:"status"`
	Priority        string              `json:"priority" bson:"priority"`
	FilingDate      primitive.DateTime  `json:"filingDate" bson:"filingDate"`
	NextHearingDate *primitive.DateTime `json:"nextHearingDate,omitempty" bson:"nextHearingDate,omitempty"`
	AdvocateName    string              `json:"advocateName,omitempty" bson:"advocateName,omitempty"`
	AdvocateEmail   string              `json:"advocateEmail,omitempty" bson:"advocateEmail,omitempty"`
	Documents       []CaseDocumentRef   `json:"documents" bson:"documents"`
	CaseHistory     []HistoryEntry      `json:"caseHistory" bson:"caseHistory"`
	Hearings        []Hearing           `json:"hearings" bson:"hearings"`
	Archived        bool                `json:"archived" bson:"archived"`
	CreatedBy       string              `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt       primitive.DateTime  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       primitive.DateTime  `json:"updatedAt" bson:"updatedAt"`
}

// CaseDocumentRef links an uploaded document back onto its case
type CaseDocumentRef struct {
	DocumentID primitive.ObjectID `json:"documentId" bson:"documentId"`
	Title      string             `json:"title" bson:"title"`
	URL        string             `json:"url" bson:"url"`
	UploadedAt primitive.DateTime `json:"uploadedAt" bson:"uploadedAt"`
}

// HistoryEntry is a case milestone. pending -> completed only.
type HistoryEntry struct {
	ID          primitive.ObjectID  `json:"_id" bson:"_id"`
	Event       string              `json:"event" bson:"event"`
	Details     string              `json:"details,omitempty" bson:"details,omitempty"`
	Date        primitive.DateTime  `json:"date" bson:"date"`
	Completed   bool                `json:"completed" bson:"completed"`
	CompletedBy string              `json:"completedBy,omitempty" bson:"completedBy,omitempty"`
	CompletedAt *primitive.DateTime `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	Remarks     []Remark            `json:"remarks" bson:"remarks"`
	CreatedAt   primitive.DateTime  `json:"createdAt" bson:"createdAt"`
}

// Remark is a free text comment attached to a milestone or hearing
type Remark struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Text      string             `json:"text" bson:"text"`
	Author    string             `json:"author,omitempty" bson:"author,omitempty"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// Hearing is a scheduled court appearance. ID is a server assigned UUID.
type Hearing struct {
	ID        string              `json:"id" bson:"id"`
	Date      primitive.DateTime  `json:"date" bson:"date"`
	Time      string              `json:"time,omitempty" bson:"time,omitempty"`
	Purpose   string              `json:"purpose" bson:"purpose"`
	Judge     string              `json:"judge,omitempty" bson:"judge,omitempty"`
	Courtroom string              `json:"courtroom,omitempty" bson:"courtroom,omitempty"`
	Status    string              `json:"status" bson:"status"`
	Outcome   string              `json:"outcome,omitempty" bson:"outcome,omitempty"`
	NextDate  *primitive.DateTime `json:"nextDate,omitempty" bson:"nextDate,omitempty"`
	Remarks   []Remark            `json:"remarks" bson:"remarks"`
	CreatedAt primitive.DateTime  `json:"createdAt" bson:"createdAt"`
	UpdatedAt primitive.DateTime  `json:"updatedAt" bson:"updatedAt"`
}

// CaseRequest is the create/update payload for a case. Dates arrive as
// strings ("2006-01-02" or RFC3339).
type CaseRequest struct {
	CaseNumber      string `json:"caseNumber"`
	CaseTitle       string `json:"caseTitle"`
	ClientName      string `json:"clientName"`
	ClientID        string `json:"clientId"`
	OppositeParty   string `json:"oppositeParty"`
	Court           string `json:"court"`
	Judge           string `json:"judge"`
	CaseType        string `json:"caseType"`
	Description     string `json:"description"`
	Status          string `json:"status"`
	Priority        string `json:"priority"`
	FilingDate      string `json:"filingDate"`
	NextHearingDate string `json:"nextHearingDate"`
	AdvocateName    string `json:"advocateName"`
	AdvocateEmail   string `json:"advocateEmail"`
}

// CaseFilter is decoded from the case list query string
type CaseFilter struct {
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Court    string `form:"court"`
	Query    string `form:"q"`
	Archived *bool  `form:"archived"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// HistoryRequest adds a milestone
type HistoryRequest struct {
	Event   string `json:"event"`
	Details string `json:"details"`
	Date    string `json:"date"`
}

// RemarkRequest adds a remark
type RemarkRequest struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// HearingRequest creates or updates a hearing
type HearingRequest struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Purpose   string `json:"purpose"`
	Judge     string `json:"judge"`
	Courtroom string `json:"courtroom"`
	Status    string `json:"status"`
	Outcome   string `json:"outcome"`
	NextDate  string `json:"nextDate"`
}

// NormalizeCaseStatus matches s against the known statuses ignoring case
// and returns the canonical spelling.
func NormalizeCaseStatus(s string) (string, bool) {
	return matchFold(s, caseStatuses)
}

// NormalizePriority matches s against the known priorities ignoring case
func NormalizePriority(s string) (string, bool) {
	return matchFold(s, priorities)
}

// NormalizeHearingStatus matches s against the known hearing statuses
func NormalizeHearingStatus(s string) (string, bool) {
	return matchFold(s, hearingStatuses)
}

// DefaultCaseTitle builds the "<client> vs <opposite>" title
func DefaultCaseTitle(clientName, oppositeParty string) string {
	return strings.TrimSpace(clientName) + " vs " + strings.TrimSpace(oppositeParty)
}

func matchFold(s string, allowed []string) (string, bool) {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return a, true
		}
	}
	return "", false
}

// UpcomingHearing is a hearing flattened together with its case
type UpcomingHearing struct {
	CaseID        primitive.ObjectID `json:"caseId"`
	CaseNumber    string             `json:"caseNumber"`
	CaseTitle     string             `json:"caseTitle"`
	Court         string             `json:"court"`
	AdvocateName  string             `json:"advocateName,omitempty"`
	AdvocateEmail string             `json:"advocateEmail,omitempty"`
	OwnerID       string             `json:"-"`
	Hearing       Hearing            `json:"hearing"`
}

// NextHearingDate returns the earliest scheduled hearing on or after from,
// or nil when none is left
func NextHearingDate(hearings []Hearing, from time.Time) *primitive.DateTime {
	var next *primitive.DateTime
	for i := range hearings {
		h := hearings[i]
		if h.Status != HearingScheduled || h.Date.Time().Before(from) {
			continue
		}
		if next == nil || h.Date < *next {
			d := h.Date
			next = &d
		}
	}
	return next
}
