package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chakshi/chakshi-api/api"
	"github.com/chakshi/chakshi-api/api/handlers"
	"github.com/chakshi/chakshi-api/databases/mocks"
	"github.com/chakshi/chakshi-api/models"
)

func TestNote_CreateNoteHandlerDefaultsAuthor(t *testing.T) {
	id, _ := primitive.ObjectIDFromHex(caseHex)
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.Case{ID: id}, nil)
	noteDB := &mocks.NoteDatabase{}
	var inserted models.Note
	noteDB.On("InsertOne", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(models.Note) }).
		Return(&mocks.InsertOneResultHelper{}, nil)

	n := handlers.Note{DB: noteDB, CaseDB: caseDB}
	req := newRequest(t, "POST", "/", map[string]string{"content": "Call client"}, map[string]string{"caseId": caseHex})
	req = req.WithContext(api.WithPrincipal(req.Context(), api.Principal{ID: "u1", Name: "Adv. Rao"}))
	rr := serve(n.CreateNoteHandler, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "Adv. Rao", inserted.Author)
	assert.False(t, inserted.Pinned)
	assert.Equal(t, []string{}, inserted.Tags)
}

func TestNote_TogglePinHandler(t *testing.T) {
	noteDB := &mocks.NoteDatabase{}
	noteDB.On("UpdateOne", mock.Anything, mock.Anything, mock.AnythingOfType("primitive.A")).Return(int64(1), nil)
	noteDB.On("FindOne", mock.Anything, mock.Anything).Return(&models.Note{Pinned: true}, nil)

	n := handlers.Note{DB: noteDB}
	rr := serve(n.TogglePinHandler, newRequest(t, "PATCH", "/", nil, map[string]string{"caseId": caseHex, "noteId": entryHex}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got map[string]interface{}
	decodeData(t, rr, &got)
	assert.Equal(t, true, got["pinned"])
	noteDB.AssertExpectations(t)
}

func TestNote_DeleteNoteHandlerNotFound(t *testing.T) {
	noteDB := &mocks.NoteDatabase{}
	noteDB.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(0), nil)

	n := handlers.Note{DB: noteDB}
	rr := serve(n.DeleteNoteHandler, newRequest(t, "DELETE", "/", nil, map[string]string{"caseId": caseHex, "noteId": entryHex}))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "note not found", decodeEnvelope(t, rr).Message)
}

func TestNote_NotesHandlerPinnedFirstThenNewest(t *testing.T) {
	caseID, _ := primitive.ObjectIDFromHex(caseHex)
	noteDB := &mocks.NoteDatabase{}
	var sort bson.D
	noteDB.On("Find", mock.Anything, bson.M{"caseId": caseID}, mock.Anything).
		Run(func(args mock.Arguments) { sort = sortOf(t, args.Get(2)) }).
		Return([]models.Note{{Content: "Client prefers mediation", Pinned: true}, {Content: "Call the registry"}}, nil)

	n := handlers.Note{DB: noteDB}
	rr := serve(n.NotesHandler, newRequest(t, "GET", "/", nil, map[string]string{"caseId": caseHex}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, bson.D{{Key: "pinned", Value: -1}, {Key: "createdAt", Value: -1}}, sort)
	var notes []models.Note
	decodeData(t, rr, &notes)
	require.Len(t, notes, 2)
	assert.True(t, notes[0].Pinned)
}

func TestNote_NotesHandlerEmpty(t *testing.T) {
	noteDB := &mocks.NoteDatabase{}
	noteDB.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	n := handlers.Note{DB: noteDB}
	rr := serve(n.NotesHandler, newRequest(t, "GET", "/", nil, map[string]string{"caseId": caseHex}))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, string(decodeEnvelope(t, rr).Data))
}
