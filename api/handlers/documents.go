package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chakshi/chakshi-api/api"
	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/databases"
	"github.com/chakshi/chakshi-api/logging"
	"github.com/chakshi/chakshi-api/models"
	"github.com/chakshi/chakshi-api/storage"
)

// Document exported for testing purposes
type Document struct {
	DB       databases.DocumentDatabase
	CaseDB   databases.CaseDatabase
	PartyDB  databases.PartyDatabase
	Store    storage.FileStore
	MaxBytes int64
}

// UploadDocumentHandler stores a file sent in the "file" field and records
// it. The case reference in caseNumber or caseId is resolved by number,
// then by id, and kept verbatim when neither matches.
func (d Document) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if d.Store == nil {
		writeNotConfigured(w, "document storage")
		return
	}
	f, header, mediaType, ok := receiveUpload(w, r, d.MaxBytes)
	if !ok {
		return
	}
	defer removeUpload(r)
	defer f.Close()

	var form models.DocumentForm
	if err := formDecoder.Decode(&form, r.MultipartForm.Value); err != nil {
		config.ErrorStatus("invalid form fields", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	ts := now()
	doc := models.Document{
		ID:         primitive.NewObjectID(),
		Title:      strings.TrimSpace(form.Title),
		Category:   form.Category,
		FileName:   header.Filename,
		MimeType:   mediaType,
		Size:       header.Size,
		Status:     models.DocumentUploaded,
		UploadedBy: principalName(r),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	if doc.Title == "" {
		doc.Title = header.Filename
	}
	if objectIDPattern.MatchString(form.ClientID) {
		clientID, _ := primitive.ObjectIDFromHex(form.ClientID)
		doc.ClientID = &clientID
	}

	ref := strings.TrimSpace(form.CaseNumber)
	if ref == "" {
		ref = strings.TrimSpace(form.CaseID)
	}
	parent, err := resolveCaseRef(ctx, d.CaseDB, ref)
	if err != nil {
		config.ErrorStatus("failed to resolve case", http.StatusInternalServerError, w, err)
		return
	}
	if parent != nil {
		doc.CaseID = &parent.ID
		doc.CaseNumber = parent.CaseNumber
	} else {
		doc.CaseRef = ref
	}

	obj, err := d.Store.Save(ctx, header.Filename, mediaType, f, header.Size)
	if err != nil {
		config.ErrorStatus("failed to store file", http.StatusInternalServerError, w, err)
		return
	}
	doc.StorageKey = obj.Key
	doc.URL = obj.URL

	log := logging.FromContext(r.Context())
	if _, err := d.DB.InsertOne(ctx, doc); err != nil {
		if derr := d.Store.Delete(context.Background(), obj.Key); derr != nil {
			log.Errorw("failed to remove orphaned upload", "key", obj.Key, "error", derr)
		}
		config.ErrorStatus("failed to create document", http.StatusInternalServerError, w, err)
		return
	}

	if parent != nil {
		_, err := d.CaseDB.UpdateOne(ctx, bson.M{"_id": parent.ID}, bson.M{
			"$push": bson.M{"documents": models.CaseDocumentRef{
				DocumentID: doc.ID, Title: doc.Title, URL: doc.URL, UploadedAt: ts,
			}},
			"$set": bson.M{"updatedAt": ts},
		})
		if err != nil {
			log.Warnw("failed to link document to case", "documentId", doc.ID.Hex(), "caseId", parent.ID.Hex(), "error", err)
		}
	}

	if doc.ClientID != nil && d.PartyDB != nil {
		matched, err := d.PartyDB.UpdateOne(ctx, bson.M{"_id": *doc.ClientID}, bson.M{
			"$addToSet": bson.M{"documents": doc.ID},
			"$set":      bson.M{"updatedAt": ts},
		})
		if err != nil || matched == 0 {
			log.Warnw("failed to link document to client", "documentId", doc.ID.Hex(), "clientId", doc.ClientID.Hex(), "error", err)
		}
	}

	log.Infow("document uploaded", "documentId", doc.ID.Hex(), "caseNumber", doc.CaseNumber, "caseRef", doc.CaseRef, "size", doc.Size)
	config.WriteSuccess(w, http.StatusCreated, doc, "Document uploaded successfully")
}

// resolveCaseRef finds the case a reference names. It returns nil, nil
// when the reference is empty or matches nothing.
func resolveCaseRef(ctx context.Context, db databases.CaseDatabase, ref string) (*models.Case, error) {
	if ref == "" {
		return nil, nil
	}
	c, err := db.FindOne(ctx, bson.M{"caseNumber": ref})
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if !objectIDPattern.MatchString(ref) {
		return nil, nil
	}
	id, _ := primitive.ObjectIDFromHex(ref)
	c, err = db.FindOne(ctx, bson.M{"_id": id})
	if err == nil {
		return c, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	return nil, err
}

// DocumentsHandler lists documents filtered by case, client or status
func (d Document) DocumentsHandler(w http.ResponseWriter, r *http.Request) {
	var f models.DocumentFilter
	if !decodeQuery(w, r, &f) {
		return
	}
	filter := bson.M{}
	if f.CaseID != "" {
		id, ok := parseObjectID(w, "caseId", f.CaseID)
		if !ok {
			return
		}
		filter["caseId"] = id
	}
	if f.CaseNumber != "" {
		filter["$or"] = bson.A{bson.M{"caseNumber": f.CaseNumber}, bson.M{"caseRef": f.CaseNumber}}
	}
	if f.ClientID != "" {
		id, ok := parseObjectID(w, "clientId", f.ClientID)
		if !ok {
			return
		}
		filter["clientId"] = id
	}
	if f.Status != "" {
		if !contains(models.DocumentStatuses, f.Status) {
			config.ErrorStatus("invalid status: "+f.Status, http.StatusBadRequest, w, nil)
			return
		}
		filter["status"] = f.Status
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	docs, err := d.DB.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		config.ErrorStatus("failed to get documents", http.StatusInternalServerError, w, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	config.WriteSuccess(w, http.StatusOK, docs, "")
}

// DocumentByIDHandler returns one document
func (d Document) DocumentByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "documentId", mux.Vars(r)["documentId"])
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	doc, err := d.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		writeFindError(w, "document", err)
		return
	}
	config.WriteSuccess(w, http.StatusOK, doc, "")
}

// UpdateDocumentStatusHandler moves a document through review
func (d Document) UpdateDocumentStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "documentId", mux.Vars(r)["documentId"])
	if !ok {
		return
	}
	var req models.StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !contains(models.DocumentStatuses, status) {
		config.ErrorStatus("invalid status: "+req.Status, http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	matched, err := d.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status, "updatedAt": now()}})
	if err != nil {
		config.ErrorStatus("failed to update document", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("document not found", http.StatusNotFound, w, nil)
		return
	}
	doc, err := d.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		writeFindError(w, "document", err)
		return
	}
	logging.FromContext(r.Context()).Infow("document status updated", "documentId", id.Hex(), "status", status)
	config.WriteSuccess(w, http.StatusOK, doc, "Document updated successfully")
}

// DeleteDocumentHandler removes the row, the stored file and the case link
func (d Document) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseObjectID(w, "documentId", mux.Vars(r)["documentId"])
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	doc, err := d.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		writeFindError(w, "document", err)
		return
	}
	deleted, err := d.DB.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		config.ErrorStatus("failed to delete document", http.StatusInternalServerError, w, err)
		return
	}
	if deleted == 0 {
		config.ErrorStatus("document not found", http.StatusNotFound, w, nil)
		return
	}

	log := logging.FromContext(r.Context())
	if d.Store != nil && doc.StorageKey != "" {
		if err := d.Store.Delete(ctx, doc.StorageKey); err != nil {
			log.Warnw("failed to delete stored file", "key", doc.StorageKey, "error", err)
		}
	}
	if doc.CaseID != nil {
		_, err := d.CaseDB.UpdateOne(ctx, bson.M{"_id": *doc.CaseID}, bson.M{
			"$pull": bson.M{"documents": bson.M{"documentId": id}},
		})
		if err != nil {
			log.Warnw("failed to unlink document from case", "documentId", id.Hex(), "error", err)
		}
	}
	if doc.ClientID != nil && d.PartyDB != nil {
		_, err := d.PartyDB.UpdateOne(ctx, bson.M{"_id": *doc.ClientID}, bson.M{
			"$pull": bson.M{"documents": id},
		})
		if err != nil {
			log.Warnw("failed to unlink document from client", "documentId", id.Hex(), "error", err)
		}
	}
	log.Infow("document deleted", "documentId", id.Hex())
	config.WriteSuccess(w, http.StatusOK, nil, "Document deleted successfully")
}
