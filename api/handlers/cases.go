package handlers

import (
	"math"
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chakshi/chakshi-api/api"
	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/databases"
	"github.com/chakshi/chakshi-api/logging"
	"github.com/chakshi/chakshi-api/models"
)

// Case exported for testing purposes
type Case struct {
	DB databases.CaseDatabase
}

// CreateCaseHandler creates a case. Status defaults to Active, priority to
// Medium and the title to "<client> vs <opposite>".
func (c Case) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{
		"caseNumber":    req.CaseNumber,
		"clientName":    req.ClientName,
		"oppositeParty": req.OppositeParty,
		"court":         req.Court,
		"filingDate":    req.FilingDate,
	}) {
		return
	}

	filingDate, err := parseDate(req.FilingDate)
	if err != nil {
		config.ErrorStatus("invalid filingDate", http.StatusBadRequest, w, err)
		return
	}

	status := models.CaseStatusActive
	if req.Status != "" {
		s, ok := models.NormalizeCaseStatus(req.Status)
		if !ok {
			config.ErrorStatus("invalid status: "+req.Status, http.StatusBadRequest, w, nil)
			return
		}
		status = s
	}
	priority := models.PriorityMedium
	if req.Priority != "" {
		p, ok := models.NormalizePriority(req.Priority)
		if !ok {
			config.ErrorStatus("invalid priority: "+req.Priority, http.StatusBadRequest, w, nil)
			return
		}
		priority = p
	}
	title := strings.TrimSpace(req.CaseTitle)
	if title == "" {
		title = models.DefaultCaseTitle(req.ClientName, req.OppositeParty)
	}

	ts := now()
	legalCase := models.Case{
		ID:            primitive.NewObjectID(),
		CaseNumber:    strings.TrimSpace(req.CaseNumber),
		CaseTitle:     title,
		ClientName:    strings.TrimSpace(req.ClientName),
		ClientID:      req.ClientID,
		OppositeParty: strings.TrimSpace(req.OppositeParty),
		Court:         strings.TrimSpace(req.Court),
		Judge:         req.Judge,
		CaseType:      req.CaseType,
		Description:   req.Description,
		Status:        status,
		Priority:      priority,
		FilingDate:    primitive.NewDateTimeFromTime(filingDate),
		AdvocateName:  req.AdvocateName,
		AdvocateEmail: req.AdvocateEmail,
		Documents:     []models.CaseDocumentRef{},
		CaseHistory:   []models.HistoryEntry{},
		Hearings:      []models.Hearing{},
		CreatedBy:     principalID(r),
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	if req.NextHearingDate != "" {
		next, err := parseDate(req.NextHearingDate)
		if err != nil {
			config.ErrorStatus("invalid nextHearingDate", http.StatusBadRequest, w, err)
			return
		}
		d := primitive.NewDateTimeFromTime(next)
		legalCase.NextHearingDate = &d
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := c.DB.InsertOne(ctx, legalCase); err != nil {
		writeWriteError(w, "create", "case", err)
		return
	}

	logging.FromContext(r.Context()).Infow("case created", "caseId", legalCase.ID.Hex(), "caseNumber", legalCase.CaseNumber)
	config.WriteSuccess(w, http.StatusCreated, legalCase, "Case created successfully")
}

// ListCasesHandler returns a page of cases matching the query filters.
// Archived cases are hidden unless archived=true.
func (c Case) ListCasesHandler(w http.ResponseWriter, r *http.Request) {
	var f models.CaseFilter
	if !decodeQuery(w, r, &f) {
		return
	}

	filter := bson.M{"archived": false}
	if f.Archived != nil {
		filter["archived"] = *f.Archived
	}
	if f.Status != "" {
		s, ok := models.NormalizeCaseStatus(f.Status)
		if !ok {
			config.ErrorStatus("invalid status: "+f.Status, http.StatusBadRequest, w, nil)
			return
		}
		filter["status"] = s
	}
	if f.Priority != "" {
		p, ok := models.NormalizePriority(f.Priority)
		if !ok {
			config.ErrorStatus("invalid priority: "+f.Priority, http.StatusBadRequest, w, nil)
			return
		}
		filter["priority"] = p
	}
	if f.Court != "" {
		filter["court"] = f.Court
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"caseNumber": rx},
			bson.M{"caseTitle": rx},
			bson.M{"clientName": rx},
			bson.M{"oppositeParty": rx},
		}
	}

	page, limit := databases.Paginate(f.Page, f.Limit)
	opts := databases.PageOptions(page, limit).SetSort(bson.D{{Key: "createdAt", Value: -1}})

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cases, err := c.DB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to list cases", http.StatusInternalServerError, w, err)
		return
	}
	total, err := c.DB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to count cases", http.StatusInternalServerError, w, err)
		return
	}
	if cases == nil {
		cases = []models.Case{}
	}

	config.WriteSuccess(w, http.StatusOK, models.Page{
		Items:      cases,
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, "")
}

// CaseByIDHandler returns a case by its id
func (c Case) CaseByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	legalCase, ok := findParentCase(w, r, c.DB, id)
	if !ok {
		return
	}
	config.WriteSuccess(w, http.StatusOK, legalCase, "")
}

// CaseByNumberHandler looks a case up by its number. Numbers such as
// "CIV/2025/099" contain slashes so they travel in the query string.
func (c Case) CaseByNumberHandler(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(r.URL.Query().Get("caseNumber"))
	if number == "" {
		config.ErrorStatus("caseNumber is required", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	legalCase, err := c.DB.FindOne(ctx, bson.M{"caseNumber": number})
	if err != nil {
		writeFindError(w, "case", err)
		return
	}
	config.WriteSuccess(w, http.StatusOK, legalCase, "")
}

// UpdateCaseHandler applies the non-empty fields of the payload
func (c Case) UpdateCaseHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	var req models.CaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	set := bson.M{}
	setString := func(field, value string) {
		if v := strings.TrimSpace(value); v != "" {
			set[field] = v
		}
	}
	setString("caseNumber", req.CaseNumber)
	setString("caseTitle", req.CaseTitle)
	setString("clientName", req.ClientName)
	setString("clientId", req.ClientID)
	setString("oppositeParty", req.OppositeParty)
	setString("court", req.Court)
	setString("judge", req.Judge)
	setString("caseType", req.CaseType)
	setString("description", req.Description)
	setString("advocateName", req.AdvocateName)
	setString("advocateEmail", req.AdvocateEmail)

	if req.Status != "" {
		s, ok := models.NormalizeCaseStatus(req.Status)
		if !ok {
			config.ErrorStatus("invalid status: "+req.Status, http.StatusBadRequest, w, nil)
			return
		}
		set["status"] = s
	}
	if req.Priority != "" {
		p, ok := models.NormalizePriority(req.Priority)
		if !ok {
			config.ErrorStatus("invalid priority: "+req.Priority, http.StatusBadRequest, w, nil)
			return
		}
		set["priority"] = p
	}
	if req.FilingDate != "" {
		t, err := parseDate(req.FilingDate)
		if err != nil {
			config.ErrorStatus("invalid filingDate", http.StatusBadRequest, w, err)
			return
		}
		set["filingDate"] = primitive.NewDateTimeFromTime(t)
	}
	if req.NextHearingDate != "" {
		t, err := parseDate(req.NextHearingDate)
		if err != nil {
			config.ErrorStatus("invalid nextHearingDate", http.StatusBadRequest, w, err)
			return
		}
		set["nextHearingDate"] = primitive.NewDateTimeFromTime(t)
	}
	if len(set) == 0 {
		config.ErrorStatus("no fields to update", http.StatusBadRequest, w, nil)
		return
	}
	set["updatedAt"] = now()

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	matched, err := c.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		writeWriteError(w, "update", "case", err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("case not found", http.StatusNotFound, w, nil)
		return
	}

	legalCase, err := c.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		writeFindError(w, "case", err)
		return
	}
	logging.FromContext(r.Context()).Infow("case updated", "caseId", id.Hex())
	config.WriteSuccess(w, http.StatusOK, legalCase, "Case updated successfully")
}

type archiveRequest struct {
	Archived *bool `json:"archived"`
}

// ArchiveCaseHandler sets or clears the archived flag. Cases are never
// deleted.
func (c Case) ArchiveCaseHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	var req archiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Archived == nil {
		config.ErrorStatus("archived is required", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	matched, err := c.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"archived": *req.Archived, "updatedAt": now()}})
	if err != nil {
		config.ErrorStatus("failed to archive case", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("case not found", http.StatusNotFound, w, nil)
		return
	}
	logging.FromContext(r.Context()).Infow("case archive flag set", "caseId", id.Hex(), "archived", *req.Archived)
	config.WriteSuccess(w, http.StatusOK, map[string]interface{}{"_id": id, "archived": *req.Archived}, "")
}
