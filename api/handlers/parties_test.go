package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chakshi/chakshi-api/api/handlers"
	"github.com/chakshi/chakshi-api/databases/mocks"
	"github.com/chakshi/chakshi-api/models"
)

const partyHex = "65f1a2b3c4d5e6f708091a2e"

func TestParty_CreatePartyHandler(t *testing.T) {
	partyDB := &mocks.PartyDatabase{}
	var inserted models.Party
	partyDB.On("InsertOne", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(models.Party) }).
		Return(&mocks.InsertOneResultHelper{}, nil)

	p := handlers.Party{DB: partyDB}
	rr := serve(p.CreatePartyHandler, newRequest(t, "POST", "/", map[string]string{"name": " Meera Iyer "}, nil))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "Meera Iyer", inserted.Name)
	assert.Equal(t, models.PartyClient, inserted.Type)
	assert.NotNil(t, inserted.IDProofs)
	assert.NotNil(t, inserted.LinkedCases)
}

func TestParty_CreatePartyHandlerInvalidType(t *testing.T) {
	p := handlers.Party{DB: &mocks.PartyDatabase{}}
	rr := serve(p.CreatePartyHandler, newRequest(t, "POST", "/", map[string]string{"name": "X", "type": "alien"}, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid type: alien", decodeEnvelope(t, rr).Message)
}

func TestParty_UploadIDProofHandlerMasksAadhaar(t *testing.T) {
	partyID, _ := primitive.ObjectIDFromHex(partyHex)
	partyDB := &mocks.PartyDatabase{}
	var pushed models.IDProof
	partyDB.On("UpdateOne", mock.Anything, bson.M{"_id": partyID}, mock.Anything).
		Run(func(args mock.Arguments) {
			pushed = args.Get(2).(bson.M)["$push"].(bson.M)["idProofs"].(models.IDProof)
		}).
		Return(int64(1), nil)

	store := newFakeStore()
	p := handlers.Party{DB: partyDB, Store: store, MaxBytes: 1 << 20}
	req := multipartRequest(t, "file", "aadhaar.jpg", "image/jpeg", []byte("jpeg"),
		map[string]string{"type": "aadhaar", "number": "1234 5678 9012"})
	rr := serve(p.UploadIDProofHandler, withVars(req, map[string]string{"partyId": partyHex}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "XXXX-XXXX-9012", pushed.Number)
	assert.Equal(t, models.IDProofAadhaar, pushed.Type)
	assert.Len(t, store.saved, 1)
	assert.Empty(t, store.deleted)
}

func TestParty_UploadIDProofHandlerRejectsBadPAN(t *testing.T) {
	store := newFakeStore()
	p := handlers.Party{DB: &mocks.PartyDatabase{}, Store: store, MaxBytes: 1 << 20}
	req := multipartRequest(t, "file", "pan.png", "image/png", []byte("png"),
		map[string]string{"type": "pan", "number": "12345"})
	rr := serve(p.UploadIDProofHandler, withVars(req, map[string]string{"partyId": partyHex}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid PAN number", decodeEnvelope(t, rr).Message)
	assert.Empty(t, store.saved)
}

func TestParty_UploadIDProofHandlerRemovesFileOnFailure(t *testing.T) {
	partyDB := &mocks.PartyDatabase{}
	partyDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("mongo down"))

	store := newFakeStore()
	p := handlers.Party{DB: partyDB, Store: store, MaxBytes: 1 << 20}
	req := multipartRequest(t, "file", "pan.png", "image/png", []byte("png"),
		map[string]string{"type": "pan", "number": "ABCDE1234F"})
	rr := serve(p.UploadIDProofHandler, withVars(req, map[string]string{"partyId": partyHex}))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Len(t, store.deleted, 1)
}

func TestParty_AddPartyPaymentHandlerValidation(t *testing.T) {
	partyDB := &mocks.PartyDatabase{}
	p := handlers.Party{DB: partyDB}
	rr := serve(p.AddPartyPaymentHandler, newRequest(t, "POST", "/", map[string]string{"method": "cash"}, map[string]string{"partyId": partyHex}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	partyDB.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestParty_LinkCaseHandlerIsIdempotent(t *testing.T) {
	partyID, _ := primitive.ObjectIDFromHex(partyHex)
	caseID, _ := primitive.ObjectIDFromHex(caseHex)
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, bson.M{"_id": caseID}).Return(&models.Case{ID: caseID, CaseNumber: "CIV/3"}, nil)
	partyDB := &mocks.PartyDatabase{}
	partyDB.On("UpdateOne", mock.Anything, bson.M{"_id": partyID, "linkedCases.caseId": bson.M{"$ne": caseID}}, mock.Anything).Return(int64(0), nil)
	partyDB.On("FindOne", mock.Anything, bson.M{"_id": partyID}).Return(&models.Party{
		ID:          partyID,
		LinkedCases: []models.PartyCaseLink{{CaseID: caseID, CaseNumber: "CIV/3"}},
	}, nil)

	p := handlers.Party{DB: partyDB, CaseDB: caseDB}
	rr := serve(p.LinkCaseHandler, newRequest(t, "POST", "/", map[string]string{"caseId": caseHex, "role": "petitioner"},
		map[string]string{"partyId": partyHex}))

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	partyDB.AssertExpectations(t)
}
