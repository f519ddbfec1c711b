package handlers

import (
	"net/http"
	"strings"

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

// Timeline exported for testing purposes
type Timeline struct {
	DB     databases.TimelineDatabase
	CaseDB databases.CaseDatabase
}

// CreateTimelineHandler adds a stage to a case's timeline
func (t Timeline) CreateTimelineHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	var req models.TimelineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"stage": req.Stage, "date": req.Date}) {
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = models.TimelinePending
	}
	if !contains(models.TimelineStatuses, status) {
		config.ErrorStatus("invalid status: "+req.Status, http.StatusBadRequest, w, nil)
		return
	}

	parent, ok := findParentCase(w, r, t.CaseDB, caseID)
	if !ok {
		return
	}

	ts := now()
	entry := models.TimelineEntry{
		ID:          primitive.NewObjectID(),
		CaseID:      caseID,
		CaseNumber:  parent.CaseNumber,
		Stage:       strings.TrimSpace(req.Stage),
		Date:        strings.TrimSpace(req.Date),
		Status:      status,
		Description: req.Description,
		Remarks:     req.Remarks,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := t.DB.InsertOne(ctx, entry); err != nil {
		config.ErrorStatus("failed to create timeline entry", http.StatusInternalServerError, w, err)
		return
	}
	logging.FromContext(r.Context()).Infow("timeline entry created", "caseId", caseID.Hex(), "entryId", entry.ID.Hex())
	config.WriteSuccess(w, http.StatusCreated, entry, "Timeline entry created successfully")
}

// TimelineHandler lists a case's timeline, oldest first
func (t Timeline) TimelineHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	entries, err := t.DB.Find(ctx, bson.M{"caseId": caseID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		config.ErrorStatus("failed to get timeline", http.StatusInternalServerError, w, err)
		return
	}
	if entries == nil {
		entries = []models.TimelineEntry{}
	}
	config.WriteSuccess(w, http.StatusOK, entries, "")
}

// UpdateTimelineHandler changes the non-empty fields of an entry
func (t Timeline) UpdateTimelineHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	entryID, ok := parseObjectID(w, "entryId", mux.Vars(r)["entryId"])
	if !ok {
		return
	}
	var req models.TimelineRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	set := bson.M{}
	for field, value := range map[string]string{
		"stage":       req.Stage,
		"date":        req.Date,
		"description": req.Description,
		"remarks":     req.Remarks,
	} {
		if v := strings.TrimSpace(value); v != "" {
			set[field] = v
		}
	}
	if req.Status != "" {
		status := strings.ToLower(strings.TrimSpace(req.Status))
		if !contains(models.TimelineStatuses, status) {
			config.ErrorStatus("invalid status: "+req.Status, http.StatusBadRequest, w, nil)
			return
		}
		set["status"] = status
	}
	if len(set) == 0 {
		config.ErrorStatus("no fields to update", http.StatusBadRequest, w, nil)
		return
	}
	set["updatedAt"] = now()

	t.update(w, r, caseID, entryID, set)
}

// UpdateTimelineStatusHandler moves an entry to another status
func (t Timeline) UpdateTimelineStatusHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	entryID, ok := parseObjectID(w, "entryId", mux.Vars(r)["entryId"])
	if !ok {
		return
	}
	var req models.StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !contains(models.TimelineStatuses, status) {
		config.ErrorStatus("invalid status: "+req.Status, http.StatusBadRequest, w, nil)
		return
	}

	t.update(w, r, caseID, entryID, bson.M{"status": status, "updatedAt": now()})
}

func (t Timeline) update(w http.ResponseWriter, r *http.Request, caseID, entryID primitive.ObjectID, set bson.M) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{"_id": entryID, "caseId": caseID}
	matched, err := t.DB.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update timeline entry", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("timeline entry not found", http.StatusNotFound, w, nil)
		return
	}
	entry, err := t.DB.FindOne(ctx, filter)
	if err != nil {
		writeFindError(w, "timeline entry", err)
		return
	}
	logging.FromContext(r.Context()).Infow("timeline entry updated", "caseId", caseID.Hex(), "entryId", entryID.Hex())
	config.WriteSuccess(w, http.StatusOK, entry, "Timeline entry updated successfully")
}

// DeleteTimelineHandler removes one entry
func (t Timeline) DeleteTimelineHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	entryID, ok := parseObjectID(w, "entryId", mux.Vars(r)["entryId"])
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	deleted, err := t.DB.DeleteOne(ctx, bson.M{"_id": entryID, "caseId": caseID})
	if err != nil {
		config.ErrorStatus("failed to delete timeline entry", http.StatusInternalServerError, w, err)
		return
	}
	if deleted == 0 {
		config.ErrorStatus("timeline entry not found", http.StatusNotFound, w, nil)
		return
	}
	logging.FromContext(r.Context()).Infow("timeline entry deleted", "caseId", caseID.Hex(), "entryId", entryID.Hex())
	config.WriteSuccess(w, http.StatusOK, nil, "Timeline entry deleted successfully")
}
