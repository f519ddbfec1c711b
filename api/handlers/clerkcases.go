package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
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

// Events pushed to the notification hub
const (
	EventHearingAdded       = "hearing.added"
	EventHearingUpdated     = "hearing.updated"
	EventMilestoneCompleted = "milestone.completed"
)

// Notifier pushes an event to a user's open connections
type Notifier interface {
	Notify(userID, event string, data interface{})
}

// clerkProjection is the clerk view of a case
var clerkProjection = bson.M{
	"caseNumber":      1,
	"caseTitle":       1,
	"clientName":      1,
	"oppositeParty":   1,
	"court":           1,
	"judge":           1,
	"status":          1,
	"nextHearingDate": 1,
	"caseHistory":     1,
	"hearings":        1,
	"createdBy":       1,
	"updatedAt":       1,
}

// ClerkCase exported for testing purposes
type ClerkCase struct {
	DB       databases.CaseDatabase
	Notifier Notifier
}

func (cc ClerkCase) notify(c *models.Case, event string, data interface{}) {
	if cc.Notifier == nil || c == nil || c.CreatedBy == "" {
		return
	}
	cc.Notifier.Notify(c.CreatedBy, event, data)
}

func (cc ClerkCase) findClerkView(w http.ResponseWriter, r *http.Request, caseID primitive.ObjectID) (*models.Case, bool) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := cc.DB.FindOne(ctx, bson.M{"_id": caseID}, options.FindOne().SetProjection(clerkProjection))
	if err != nil {
		writeFindError(w, "case", err)
		return nil, false
	}
	return c, true
}

// ClerkCaseHandler returns the clerk view of a case
func (cc ClerkCase) ClerkCaseHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	c, ok := cc.findClerkView(w, r, caseID)
	if !ok {
		return
	}
	config.WriteSuccess(w, http.StatusOK, c, "")
}

// CaseHistoryHandler lists a case's milestones, newest first
func (cc ClerkCase) CaseHistoryHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	c, ok := cc.findClerkView(w, r, caseID)
	if !ok {
		return
	}
	history := c.CaseHistory
	if history == nil {
		history = []models.HistoryEntry{}
	}
	config.WriteSuccess(w, http.StatusOK, history, "")
}

// AddCaseHistoryHandler prepends a milestone so the array stays newest first
func (cc ClerkCase) AddCaseHistoryHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	var req models.HistoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"event": req.Event}) {
		return
	}
	date := time.Now()
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			config.ErrorStatus("invalid date", http.StatusBadRequest, w, err)
			return
		}
		date = d
	}

	ts := now()
	entry := models.HistoryEntry{
		ID:        primitive.NewObjectID(),
		Event:     strings.TrimSpace(req.Event),
		Details:   req.Details,
		Date:      primitive.NewDateTimeFromTime(date),
		Remarks:   []models.Remark{},
		CreatedAt: ts,
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	update := bson.M{
		"$push": bson.M{"caseHistory": bson.M{"$each": bson.A{entry}, "$position": 0}},
		"$set":  bson.M{"updatedAt": ts},
	}
	matched, err := cc.DB.UpdateOne(ctx, bson.M{"_id": caseID}, update)
	if err != nil {
		config.ErrorStatus("failed to add case history", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("case not found", http.StatusNotFound, w, nil)
		return
	}
	logging.FromContext(r.Context()).Infow("case history added", "caseId", caseID.Hex(), "entryId", entry.ID.Hex())
	config.WriteSuccess(w, http.StatusCreated, entry, "Case history added successfully")
}

type completeRequest struct {
	CompletedBy string `json:"completedBy"`
}

// CompleteCaseHistoryHandler marks a milestone completed. Completing it
// again keeps it completed and moves completedAt to now.
func (cc ClerkCase) CompleteCaseHistoryHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	entryID, ok := parseObjectID(w, "entryId", mux.Vars(r)["entryId"])
	if !ok {
		return
	}
	var req completeRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
			return
		}
	}
	completedBy := strings.TrimSpace(req.CompletedBy)
	if completedBy == "" {
		completedBy = principalName(r)
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	ts := now()
	matched, err := cc.DB.UpdateOne(ctx,
		bson.M{"_id": caseID, "caseHistory._id": entryID},
		bson.M{"$set": bson.M{
			"caseHistory.$.completed":   true,
			"caseHistory.$.completedBy": completedBy,
			"caseHistory.$.completedAt": ts,
			"updatedAt":                 ts,
		}},
	)
	if err != nil {
		config.ErrorStatus("failed to complete case history", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("case history entry not found", http.StatusNotFound, w, nil)
		return
	}

	c, ok := cc.findClerkView(w, r, caseID)
	if !ok {
		return
	}
	for _, e := range c.CaseHistory {
		if e.ID == entryID {
			logging.FromContext(r.Context()).Infow("case history completed", "caseId", caseID.Hex(), "entryId", entryID.Hex())
			cc.notify(c, EventMilestoneCompleted, map[string]interface{}{"caseId": caseID, "caseNumber": c.CaseNumber, "entry": e})
			config.WriteSuccess(w, http.StatusOK, e, "Case history completed successfully")
			return
		}
	}
	config.ErrorStatus("case history entry not found", http.StatusNotFound, w, nil)
}

// AddCaseHistoryRemarkHandler appends a remark to a milestone
func (cc ClerkCase) AddCaseHistoryRemarkHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	entryID, ok := parseObjectID(w, "entryId", mux.Vars(r)["entryId"])
	if !ok {
		return
	}
	remark, ok := decodeRemark(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	matched, err := cc.DB.UpdateOne(ctx,
		bson.M{"_id": caseID, "caseHistory._id": entryID},
		bson.M{
			"$push": bson.M{"caseHistory.$.remarks": remark},
			"$set":  bson.M{"updatedAt": remark.CreatedAt},
		},
	)
	if err != nil {
		config.ErrorStatus("failed to add remark", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("case history entry not found", http.StatusNotFound, w, nil)
		return
	}
	logging.FromContext(r.Context()).Infow("case history remark added", "caseId", caseID.Hex(), "entryId", entryID.Hex())
	config.WriteSuccess(w, http.StatusCreated, remark, "Remark added successfully")
}

func decodeRemark(w http.ResponseWriter, r *http.Request) (models.Remark, bool) {
	var req models.RemarkRequest
	if !decodeJSON(w, r, &req) {
		return models.Remark{}, false
	}
	if !requireFields(w, map[string]string{"text": req.Text}) {
		return models.Remark{}, false
	}
	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = principalName(r)
	}
	return models.Remark{
		ID:        primitive.NewObjectID(),
		Text:      strings.TrimSpace(req.Text),
		Author:    author,
		CreatedAt: now(),
	}, true
}

// HearingsHandler lists a case's hearings by date
func (cc ClerkCase) HearingsHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	c, ok := cc.findClerkView(w, r, caseID)
	if !ok {
		return
	}
	hearings := append([]models.Hearing{}, c.Hearings...)
	sort.SliceStable(hearings, func(i, j int) bool { return hearings[i].Date < hearings[j].Date })
	config.WriteSuccess(w, http.StatusOK, hearings, "")
}

// AddHearingHandler schedules a hearing with a server assigned id
func (cc ClerkCase) AddHearingHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	var req models.HearingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"date": req.Date, "purpose": req.Purpose}) {
		return
	}
	set, ok := hearingFields(w, req)
	if !ok {
		return
	}

	ts := now()
	hearing := models.Hearing{
		ID:        uuid.NewString(),
		Time:      req.Time,
		Purpose:   strings.TrimSpace(req.Purpose),
		Judge:     req.Judge,
		Courtroom: req.Courtroom,
		Status:    models.HearingScheduled,
		Outcome:   req.Outcome,
		Remarks:   []models.Remark{},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	hearing.Date = set["date"].(primitive.DateTime)
	if s, ok := set["status"].(string); ok {
		hearing.Status = s
	}
	if d, ok := set["nextDate"].(primitive.DateTime); ok {
		hearing.NextDate = &d
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	matched, err := cc.DB.UpdateOne(ctx, bson.M{"_id": caseID}, bson.M{
		"$push": bson.M{"hearings": hearing},
		"$set":  bson.M{"updatedAt": ts},
	})
	if err != nil {
		config.ErrorStatus("failed to add hearing", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("case not found", http.StatusNotFound, w, nil)
		return
	}

	c := cc.refreshNextHearing(r, caseID)
	logging.FromContext(r.Context()).Infow("hearing added", "caseId", caseID.Hex(), "hearingId", hearing.ID)
	cc.notify(c, EventHearingAdded, map[string]interface{}{"caseId": caseID, "hearing": hearing})
	config.WriteSuccess(w, http.StatusCreated, hearing, "Hearing added successfully")
}

// hearingFields validates the optional parts of a hearing payload and
// returns them keyed by field name
func hearingFields(w http.ResponseWriter, req models.HearingRequest) (bson.M, bool) {
	set := bson.M{}
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			config.ErrorStatus("invalid date", http.StatusBadRequest, w, err)
			return nil, false
		}
		set["date"] = primitive.NewDateTimeFromTime(d)
	}
	if req.NextDate != "" {
		d, err := parseDate(req.NextDate)
		if err != nil {
			config.ErrorStatus("invalid nextDate", http.StatusBadRequest, w, err)
			return nil, false
		}
		set["nextDate"] = primitive.NewDateTimeFromTime(d)
	}
	if req.Status != "" {
		s, ok := models.NormalizeHearingStatus(req.Status)
		if !ok {
			config.ErrorStatus("invalid status: "+req.Status, http.StatusBadRequest, w, nil)
			return nil, false
		}
		set["status"] = s
	}
	for field, value := range map[string]string{
		"time":      req.Time,
		"purpose":   req.Purpose,
		"judge":     req.Judge,
		"courtroom": req.Courtroom,
		"outcome":   req.Outcome,
	} {
		if v := strings.TrimSpace(value); v != "" {
			set[field] = v
		}
	}
	return set, true
}

// UpdateHearingHandler changes the given fields of one hearing
func (cc ClerkCase) UpdateHearingHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	hearingID := mux.Vars(r)["hearingId"]
	var req models.HearingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fields, ok := hearingFields(w, req)
	if !ok {
		return
	}
	if len(fields) == 0 {
		config.ErrorStatus("no fields to update", http.StatusBadRequest, w, nil)
		return
	}

	ts := now()
	set := bson.M{"hearings.$.updatedAt": ts, "updatedAt": ts}
	for k, v := range fields {
		set["hearings.$."+k] = v
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	matched, err := cc.DB.UpdateOne(ctx, bson.M{"_id": caseID, "hearings.id": hearingID}, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update hearing", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("hearing not found", http.StatusNotFound, w, nil)
		return
	}

	c := cc.refreshNextHearing(r, caseID)
	if c == nil {
		config.ErrorStatus("hearing updated but the case could not be reloaded", http.StatusInternalServerError, w, nil)
		return
	}
	for _, h := range c.Hearings {
		if h.ID == hearingID {
			logging.FromContext(r.Context()).Infow("hearing updated", "caseId", caseID.Hex(), "hearingId", hearingID)
			cc.notify(c, EventHearingUpdated, map[string]interface{}{"caseId": caseID, "hearing": h})
			config.WriteSuccess(w, http.StatusOK, h, "Hearing updated successfully")
			return
		}
	}
	// removed between the update and the reload
	config.ErrorStatus("hearing not found", http.StatusNotFound, w, nil)
}

// DeleteHearingHandler removes one hearing
func (cc ClerkCase) DeleteHearingHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	hearingID := mux.Vars(r)["hearingId"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	matched, err := cc.DB.UpdateOne(ctx,
		bson.M{"_id": caseID, "hearings.id": hearingID},
		bson.M{
			"$pull": bson.M{"hearings": bson.M{"id": hearingID}},
			"$set":  bson.M{"updatedAt": now()},
		},
	)
	if err != nil {
		config.ErrorStatus("failed to delete hearing", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("hearing not found", http.StatusNotFound, w, nil)
		return
	}
	cc.refreshNextHearing(r, caseID)
	logging.FromContext(r.Context()).Infow("hearing deleted", "caseId", caseID.Hex(), "hearingId", hearingID)
	config.WriteSuccess(w, http.StatusOK, nil, "Hearing deleted successfully")
}

// AddHearingRemarkHandler appends a remark to a hearing
func (cc ClerkCase) AddHearingRemarkHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	hearingID := mux.Vars(r)["hearingId"]
	remark, ok := decodeRemark(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	matched, err := cc.DB.UpdateOne(ctx,
		bson.M{"_id": caseID, "hearings.id": hearingID},
		bson.M{
			"$push": bson.M{"hearings.$.remarks": remark},
			"$set":  bson.M{"updatedAt": remark.CreatedAt},
		},
	)
	if err != nil {
		config.ErrorStatus("failed to add remark", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("hearing not found", http.StatusNotFound, w, nil)
		return
	}
	logging.FromContext(r.Context()).Infow("hearing remark added", "caseId", caseID.Hex(), "hearingId", hearingID)
	config.WriteSuccess(w, http.StatusCreated, remark, "Remark added successfully")
}

// refreshNextHearing recomputes nextHearingDate from the stored hearings.
// Failures are logged, the hearing write already succeeded.
func (cc ClerkCase) refreshNextHearing(r *http.Request, caseID primitive.ObjectID) *models.Case {
	log := logging.FromContext(r.Context())
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := cc.DB.FindOne(ctx, bson.M{"_id": caseID}, options.FindOne().SetProjection(clerkProjection))
	if err != nil {
		log.Warnw("failed to reload case for next hearing date", "caseId", caseID.Hex(), "error", err)
		return nil
	}

	today := time.Now().Truncate(24 * time.Hour)
	next := models.NextHearingDate(c.Hearings, today)
	update := bson.M{"$unset": bson.M{"nextHearingDate": ""}}
	if next != nil {
		update = bson.M{"$set": bson.M{"nextHearingDate": *next}}
	}
	if _, err := cc.DB.UpdateOne(ctx, bson.M{"_id": caseID}, update); err != nil {
		log.Warnw("failed to refresh next hearing date", "caseId", caseID.Hex(), "error", err)
		return c
	}
	c.NextHearingDate = next
	return c
}

// UpcomingHearingsHandler lists scheduled hearings in the next N days
// (default 7, at most 90) across active cases
func (cc ClerkCase) UpcomingHearingsHandler(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			config.ErrorStatus("days must be a positive integer", http.StatusBadRequest, w, err)
			return
		}
		days = n
	}
	if days > 90 {
		days = 90
	}

	from := time.Now()
	until := from.AddDate(0, 0, days)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	upcoming, err := databases.UpcomingHearings(ctx, cc.DB, from, until)
	if err != nil {
		config.ErrorStatus("failed to get upcoming hearings", http.StatusInternalServerError, w, err)
		return
	}
	config.WriteSuccess(w, http.StatusOK, upcoming, "")
}
