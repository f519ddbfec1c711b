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

// Note exported for testing purposes
type Note struct {
	DB     databases.NoteDatabase
	CaseDB databases.CaseDatabase
}

// CreateNoteHandler adds a note to a case. Author defaults to the caller.
func (n Note) CreateNoteHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	var req models.NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"content": req.Content}) {
		return
	}

	parent, ok := findParentCase(w, r, n.CaseDB, caseID)
	if !ok {
		return
	}

	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = principalName(r)
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	ts := now()
	note := models.Note{
		ID:         primitive.NewObjectID(),
		CaseID:     caseID,
		CaseNumber: parent.CaseNumber,
		Content:    req.Content,
		Author:     author,
		Category:   req.Category,
		Pinned:     req.Pinned != nil && *req.Pinned,
		Tags:       tags,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := n.DB.InsertOne(ctx, note); err != nil {
		config.ErrorStatus("failed to create note", http.StatusInternalServerError, w, err)
		return
	}
	logging.FromContext(r.Context()).Infow("note created", "caseId", caseID.Hex(), "noteId", note.ID.Hex())
	config.WriteSuccess(w, http.StatusCreated, note, "Note created successfully")
}

// NotesHandler lists a case's notes, pinned first then newest first
func (n Note) NotesHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "pinned", Value: -1}, {Key: "createdAt", Value: -1}})
	notes, err := n.DB.Find(ctx, bson.M{"caseId": caseID}, opts)
	if err != nil {
		config.ErrorStatus("failed to get notes", http.StatusInternalServerError, w, err)
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	config.WriteSuccess(w, http.StatusOK, notes, "")
}

// UpdateNoteHandler edits content, category, tags or the pin
func (n Note) UpdateNoteHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	noteID, ok := parseObjectID(w, "noteId", mux.Vars(r)["noteId"])
	if !ok {
		return
	}
	var req models.NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	set := bson.M{}
	if strings.TrimSpace(req.Content) != "" {
		set["content"] = req.Content
	}
	if req.Category != "" {
		set["category"] = req.Category
	}
	if req.Tags != nil {
		set["tags"] = req.Tags
	}
	if req.Pinned != nil {
		set["pinned"] = *req.Pinned
	}
	if len(set) == 0 {
		config.ErrorStatus("no fields to update", http.StatusBadRequest, w, nil)
		return
	}
	set["updatedAt"] = now()

	n.update(w, r, caseID, noteID, bson.M{"$set": set})
}

// TogglePinHandler flips the pinned flag
func (n Note) TogglePinHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	noteID, ok := parseObjectID(w, "noteId", mux.Vars(r)["noteId"])
	if !ok {
		return
	}

	// pipeline update so the flip is a single atomic write
	update := bson.A{bson.M{"$set": bson.M{
		"pinned":    bson.M{"$not": bson.A{"$pinned"}},
		"updatedAt": now(),
	}}}
	n.update(w, r, caseID, noteID, update)
}

func (n Note) update(w http.ResponseWriter, r *http.Request, caseID, noteID primitive.ObjectID, update interface{}) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{"_id": noteID, "caseId": caseID}
	matched, err := n.DB.UpdateOne(ctx, filter, update)
	if err != nil {
		config.ErrorStatus("failed to update note", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("note not found", http.StatusNotFound, w, nil)
		return
	}
	note, err := n.DB.FindOne(ctx, filter)
	if err != nil {
		writeFindError(w, "note", err)
		return
	}
	logging.FromContext(r.Context()).Infow("note updated", "caseId", caseID.Hex(), "noteId", noteID.Hex())
	config.WriteSuccess(w, http.StatusOK, note, "Note updated successfully")
}

// DeleteNoteHandler removes one note
func (n Note) DeleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseObjectID(w, "caseId", mux.Vars(r)["caseId"])
	if !ok {
		return
	}
	noteID, ok := parseObjectID(w, "noteId", mux.Vars(r)["noteId"])
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	deleted, err := n.DB.DeleteOne(ctx, bson.M{"_id": noteID, "caseId": caseID})
	if err != nil {
		config.ErrorStatus("failed to delete note", http.StatusInternalServerError, w, err)
		return
	}
	if deleted == 0 {
		config.ErrorStatus("note not found", http.StatusNotFound, w, nil)
		return
	}
	logging.FromContext(r.Context()).Infow("note deleted", "caseId", caseID.Hex(), "noteId", noteID.Hex())
	config.WriteSuccess(w, http.StatusOK, nil, "Note deleted successfully")
}
