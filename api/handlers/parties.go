package handlers

import (
	"context"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chakshi/chakshi-api/api"
	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/databases"
	"github.com/chakshi/chakshi-api/logging"
	"github.com/chakshi/chakshi-api/models"
	"github.com/chakshi/chakshi-api/storage"
)

// Party exported for testing purposes
type Party struct {
	DB       databases.PartyDatabase
	CaseDB   databases.CaseDatabase
	Store    storage.FileStore
	MaxBytes int64
}

func normalizePartyType(t string) (string, bool) {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return models.PartyClient, true
	}
	return t, contains(models.PartyTypes, t)
}

// CreatePartyHandler creates a party. Type defaults to client.
func (p Party) CreatePartyHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PartyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"name": req.Name}) {
		return
	}
	partyType, ok := normalizePartyType(req.Type)
	if !ok {
		config.ErrorStatus("invalid type: "+req.Type, http.StatusBadRequest, w, nil)
		return
	}

	ts := now()
	party := models.Party{
		ID:             primitive.NewObjectID(),
		Name:           strings.TrimSpace(req.Name),
		Type:           partyType,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		Organization:   req.Organization,
		Notes:          req.Notes,
		IDProofs:       []models.IDProof{},
		LinkedCases:    []models.PartyCaseLink{},
		Documents:      []primitive.ObjectID{},
		PaymentHistory: []models.PartyPayment{},
		Communications: []models.Communication{},
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := p.DB.InsertOne(ctx, party); err != nil {
		writeWriteError(w, "create", "party", err)
		return
	}
	logging.FromContext(r.Context()).Infow("party created", "partyId", party.ID.Hex())
	config.WriteSuccess(w, http.StatusCreated, party, "Party created successfully")
}

// PartiesHandler searches parties by name and type
func (p Party) PartiesHandler(w http.ResponseWriter, r *http.Request) {
	var f models.PartyFilter
	if !decodeQuery(w, r, &f) {
		return
	}
	filter := bson.M{}
	if q := strings.TrimSpace(f.Query); q != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		filter["$or"] = bson.A{bson.M{"name": rx}, bson.M{"email": rx}, bson.M{"phone": rx}}
	}
	if f.Type != "" {
		t, ok := normalizePartyType(f.Type)
		if !ok {
			config.ErrorStatus("invalid type: "+f.Type, http.StatusBadRequest, w, nil)
			return
		}
		filter["type"] = t
	}

	page, limit := databases.Paginate(f.Page, f.Limit)
	opts := databases.PageOptions(page, limit).SetSort(bson.D{{Key: "name", Value: 1}})

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	parties, err := p.DB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to list parties", http.StatusInternalServerError, w, err)
		return
	}
	total, err := p.DB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to count parties", http.StatusInternalServerError, w, err)
		return
	}
	if parties == nil {
		parties = []models.Party{}
	}
	config.WriteSuccess(w, http.StatusOK, models.Page{
		Items:      parties,
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, "")
}

// PartyByIDHandler returns one party
func (p Party) PartyByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "partyId", mux.Vars(r)["partyId"])
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	party, err := p.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		writeFindError(w, "party", err)
		return
	}
	config.WriteSuccess(w, http.StatusOK, party, "")
}

// UpdatePartyHandler changes the non-empty contact fields
func (p Party) UpdatePartyHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "partyId", mux.Vars(r)["partyId"])
	if !ok {
		return
	}
	var req models.PartyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	set := bson.M{}
	for field, value := range map[string]string{
		"name":         req.Name,
		"email":        req.Email,
		"phone":        req.Phone,
		"address":      req.Address,
		"organization": req.Organization,
		"notes":        req.Notes,
	} {
		if v := strings.TrimSpace(value); v != "" {
			set[field] = v
		}
	}
	if req.Type != "" {
		t, ok := normalizePartyType(req.Type)
		if !ok {
			config.ErrorStatus("invalid type: "+req.Type, http.StatusBadRequest, w, nil)
			return
		}
		set["type"] = t
	}
	if len(set) == 0 {
		config.ErrorStatus("no fields to update", http.StatusBadRequest, w, nil)
		return
	}
	set["updatedAt"] = now()

	p.update(w, r, id, bson.M{"$set": set}, "Party updated successfully")
}

func (p Party) update(w http.ResponseWriter, r *http.Request, id primitive.ObjectID, update bson.M, message string) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	matched, err := p.DB.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		config.ErrorStatus("failed to update party", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("party not found", http.StatusNotFound, w, nil)
		return
	}
	party, err := p.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		writeFindError(w, "party", err)
		return
	}
	logging.FromContext(r.Context()).Infow("party updated", "partyId", id.Hex())
	config.WriteSuccess(w, http.StatusOK, party, message)
}

// DeletePartyHandler removes a party and its stored ID proofs
func (p Party) DeletePartyHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "partyId", mux.Vars(r)["partyId"])
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	party, err := p.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		writeFindError(w, "party", err)
		return
	}
	deleted, err := p.DB.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		config.ErrorStatus("failed to delete party", http.StatusInternalServerError, w, err)
		return
	}
	if deleted == 0 {
		config.ErrorStatus("party not found", http.StatusNotFound, w, nil)
		return
	}
	log := logging.FromContext(r.Context())
	if p.Store != nil {
		for _, proof := range party.IDProofs {
			if err := p.Store.Delete(ctx, proof.StorageKey); err != nil {
				log.Warnw("failed to delete id proof file", "key", proof.StorageKey, "error", err)
			}
		}
	}
	log.Infow("party deleted", "partyId", id.Hex())
	config.WriteSuccess(w, http.StatusOK, nil, "Party deleted successfully")
}

// UploadIDProofHandler stores a PAN or Aadhaar document for a party. The
// proof is never marked verified here.
func (p Party) UploadIDProofHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "partyId", mux.Vars(r)["partyId"])
	if !ok {
		return
	}
	if p.Store == nil {
		writeNotConfigured(w, "document storage")
		return
	}
	f, header, mediaType, ok := receiveUpload(w, r, p.MaxBytes)
	if !ok {
		return
	}
	defer removeUpload(r)
	defer f.Close()

	var form models.IDProofForm
	if err := formDecoder.Decode(&form, r.MultipartForm.Value); err != nil {
		config.ErrorStatus("invalid form fields", http.StatusBadRequest, w, err)
		return
	}
	proofType, number, err := models.NormalizeIDProof(form.Type, form.Number)
	if err != nil {
		config.ErrorStatus(err.Error(), http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	obj, err := p.Store.Save(ctx, header.Filename, mediaType, f, header.Size)
	if err != nil {
		config.ErrorStatus("failed to store file", http.StatusInternalServerError, w, err)
		return
	}
	ts := now()
	proof := models.IDProof{
		ID:         primitive.NewObjectID(),
		Type:       proofType,
		Number:     number,
		FileName:   header.Filename,
		StorageKey: obj.Key,
		URL:        obj.URL,
		MimeType:   mediaType,
		Size:       header.Size,
		UploadedAt: ts,
	}

	log := logging.FromContext(r.Context())
	matched, err := p.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"idProofs": proof},
		"$set":  bson.M{"updatedAt": ts},
	})
	if err != nil || matched == 0 {
		if derr := p.Store.Delete(context.Background(), obj.Key); derr != nil {
			log.Errorw("failed to remove orphaned upload", "key", obj.Key, "error", derr)
		}
		if err != nil {
			config.ErrorStatus("failed to save id proof", http.StatusInternalServerError, w, err)
			return
		}
		config.ErrorStatus("party not found", http.StatusNotFound, w, nil)
		return
	}
	log.Infow("id proof uploaded", "partyId", id.Hex(), "type", proofType)
	config.WriteSuccess(w, http.StatusCreated, proof, "ID proof uploaded successfully")
}

// AddPartyPaymentHandler appends to a party's payment log
func (p Party) AddPartyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "partyId", mux.Vars(r)["partyId"])
	if !ok {
		return
	}
	var req models.PartyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Amount == nil || *req.Amount < 0 {
		config.ErrorStatus("amount must be zero or more", http.StatusBadRequest, w, nil)
		return
	}
	date := req.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	entry := models.PartyPayment{
		ID:          primitive.NewObjectID(),
		Amount:      *req.Amount,
		Date:        date,
		Method:      req.Method,
		Reference:   req.Reference,
		Description: req.Description,
		CreatedAt:   now(),
	}
	p.update(w, r, id, bson.M{
		"$push": bson.M{"paymentHistory": entry},
		"$set":  bson.M{"updatedAt": entry.CreatedAt},
	}, "Payment logged successfully")
}

// AddCommunicationHandler appends to a party's communication log
func (p Party) AddCommunicationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "partyId", mux.Vars(r)["partyId"])
	if !ok {
		return
	}
	var req models.CommunicationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"channel": req.Channel, "summary": req.Summary}) {
		return
	}
	date := req.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	entry := models.Communication{
		ID:        primitive.NewObjectID(),
		Channel:   strings.ToLower(strings.TrimSpace(req.Channel)),
		Direction: req.Direction,
		Summary:   req.Summary,
		Date:      date,
		CreatedAt: now(),
	}
	p.update(w, r, id, bson.M{
		"$push": bson.M{"communications": entry},
		"$set":  bson.M{"updatedAt": entry.CreatedAt},
	}, "Communication logged successfully")
}

// LinkCaseHandler links an existing case to a party. Linking the same case
// twice is a no-op.
func (p Party) LinkCaseHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "partyId", mux.Vars(r)["partyId"])
	if !ok {
		return
	}
	var req models.PartyCaseLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	caseID, ok := parseObjectID(w, "caseId", req.CaseID)
	if !ok {
		return
	}
	parent, ok := findParentCase(w, r, p.CaseDB, caseID)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	ts := now()
	link := models.PartyCaseLink{CaseID: caseID, CaseNumber: parent.CaseNumber, Role: req.Role, LinkedAt: ts}
	matched, err := p.DB.UpdateOne(ctx,
		bson.M{"_id": id, "linkedCases.caseId": bson.M{"$ne": caseID}},
		bson.M{"$push": bson.M{"linkedCases": link}, "$set": bson.M{"updatedAt": ts}},
	)
	if err != nil {
		config.ErrorStatus("failed to link case", http.StatusInternalServerError, w, err)
		return
	}
	party, err := p.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		writeFindError(w, "party", err)
		return
	}
	logging.FromContext(r.Context()).Infow("case linked to party", "partyId", id.Hex(), "caseId", caseID.Hex(), "changed", matched > 0)
	config.WriteSuccess(w, http.StatusOK, party, "Case linked successfully")
}
