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
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chakshi/chakshi-api/api/handlers"
	"github.com/chakshi/chakshi-api/databases/mocks"
	"github.com/chakshi/chakshi-api/models"
)

var exampleCase = map[string]string{
	"caseNumber":    "CIV/2025/099",
	"clientName":    "A",
	"oppositeParty": "B",
	"court":         "X",
	"filingDate":    "2025-01-01",
}

func TestCase_CreateCaseHandlerDefaults(t *testing.T) {
	caseDB := &mocks.CaseDatabase{}
	var inserted models.Case
	caseDB.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Case")).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(models.Case) }).
		Return(&mocks.InsertOneResultHelper{}, nil)

	c := handlers.Case{DB: caseDB}
	rr := serve(c.CreateCaseHandler, newRequest(t, "POST", "/api/cases", exampleCase, nil))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var got map[string]interface{}
	decodeData(t, rr, &got)
	assert.Equal(t, "Active", got["status"])
	assert.Equal(t, "Medium", got["priority"])
	assert.Equal(t, "A vs B", got["caseTitle"])
	assert.Equal(t, []interface{}{}, got["hearings"])
	assert.Equal(t, []interface{}{}, got["caseHistory"])

	assert.Equal(t, "CIV/2025/099", inserted.CaseNumber)
	assert.False(t, inserted.Archived)
	assert.False(t, inserted.ID.IsZero())
	caseDB.AssertExpectations(t)
}

func TestCase_CreateCaseHandlerMissingFields(t *testing.T) {
	caseDB := &mocks.CaseDatabase{}
	c := handlers.Case{DB: caseDB}

	rr := serve(c.CreateCaseHandler, newRequest(t, "POST", "/api/cases", map[string]string{"caseNumber": "X/1"}, nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, "missing required fields: clientName, court, filingDate, oppositeParty", env.Message)
	caseDB.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestCase_CreateCaseHandlerInvalidStatus(t *testing.T) {
	body := map[string]string{"status": "Won"}
	for k, v := range exampleCase {
		body[k] = v
	}
	c := handlers.Case{DB: &mocks.CaseDatabase{}}
	rr := serve(c.CreateCaseHandler, newRequest(t, "POST", "/api/cases", body, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid status: Won", decodeEnvelope(t, rr).Message)
}

func TestCase_CreateCaseHandlerDuplicateNumber(t *testing.T) {
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("InsertOne", mock.Anything, mock.Anything).Return(nil, duplicateKeyError("caseNumber", "CIV/2025/099"))

	c := handlers.Case{DB: caseDB}
	rr := serve(c.CreateCaseHandler, newRequest(t, "POST", "/api/cases", exampleCase, nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	d := decodeErrorDetail(t, rr)
	assert.Equal(t, models.ErrCodeDuplicateKey, d.Code)
	assert.Equal(t, "caseNumber", d.Field)
	assert.Equal(t, "CIV/2025/099", d.Value)
	assert.Equal(t, "a case with this caseNumber already exists", d.Message)
}

func TestCase_CaseByIDHandler(t *testing.T) {
	id, _ := primitive.ObjectIDFromHex(caseHex)
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.Case{ID: id, CaseNumber: "CIV/2025/099"}, nil)

	c := handlers.Case{DB: caseDB}
	rr := serve(c.CaseByIDHandler, newRequest(t, "GET", "/api/cases/"+caseHex, nil, map[string]string{"caseId": caseHex}))

	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]interface{}
	decodeData(t, rr, &got)
	assert.Equal(t, "CIV/2025/099", got["caseNumber"])
}

func TestCase_CaseByIDHandlerInvalidID(t *testing.T) {
	c := handlers.Case{DB: &mocks.CaseDatabase{}}
	rr := serve(c.CaseByIDHandler, newRequest(t, "GET", "/api/cases/1234", nil, map[string]string{"caseId": "1234"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid caseId format", decodeEnvelope(t, rr).Message)
}

func TestCase_CaseByIDHandlerNotFound(t *testing.T) {
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	c := handlers.Case{DB: caseDB}
	rr := serve(c.CaseByIDHandler, newRequest(t, "GET", "/api/cases/"+caseHex, nil, map[string]string{"caseId": caseHex}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "case not found", decodeEnvelope(t, rr).Message)
}

func TestCase_CaseByNumberHandler(t *testing.T) {
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, bson.M{"caseNumber": "CIV/2025/099"}).Return(&models.Case{CaseNumber: "CIV/2025/099"}, nil)

	c := handlers.Case{DB: caseDB}
	rr := serve(c.CaseByNumberHandler, newRequest(t, "GET", "/api/cases/number?caseNumber=CIV%2F2025%2F099", nil, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(c.CaseByNumberHandler, newRequest(t, "GET", "/api/cases/number", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCase_ListCasesHandler(t *testing.T) {
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("Find", mock.Anything, mock.MatchedBy(func(f bson.M) bool {
		return f["archived"] == false && f["status"] == models.CaseStatusOnHold && f["$or"] != nil
	}), mock.Anything).Return([]models.Case{{CaseNumber: "A/1"}, {CaseNumber: "A/2"}}, nil)
	caseDB.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(12), nil)

	c := handlers.Case{DB: caseDB}
	rr := serve(c.ListCasesHandler, newRequest(t, "GET", "/api/cases?status=on_hold&q=A&limit=5&page=2", nil, nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var page struct {
		Items      []map[string]interface{} `json:"items"`
		Page       int                      `json:"page"`
		Limit      int                      `json:"limit"`
		TotalCount int64                    `json:"totalCount"`
		TotalPages int                      `json:"totalPages"`
	}
	decodeData(t, rr, &page)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, int64(12), page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	caseDB.AssertExpectations(t)
}

func TestCase_ListCasesHandlerError(t *testing.T) {
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("mongo down"))

	c := handlers.Case{DB: caseDB}
	rr := serve(c.ListCasesHandler, newRequest(t, "GET", "/api/cases", nil, nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestCase_UpdateCaseHandler(t *testing.T) {
	id, _ := primitive.ObjectIDFromHex(caseHex)
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("UpdateOne", mock.Anything, bson.M{"_id": id}, mock.MatchedBy(func(u bson.M) bool {
		set := u["$set"].(bson.M)
		return set["priority"] == models.PriorityHigh && set["court"] == "High Court"
	})).Return(int64(1), nil)
	caseDB.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.Case{ID: id, Priority: models.PriorityHigh}, nil)

	c := handlers.Case{DB: caseDB}
	rr := serve(c.UpdateCaseHandler, newRequest(t, "PUT", "/api/cases/"+caseHex,
		map[string]string{"priority": "high", "court": "High Court"}, map[string]string{"caseId": caseHex}))

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	caseDB.AssertExpectations(t)
}

func TestCase_UpdateCaseHandlerNotFound(t *testing.T) {
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)

	c := handlers.Case{DB: caseDB}
	rr := serve(c.UpdateCaseHandler, newRequest(t, "PUT", "/api/cases/"+caseHex,
		map[string]string{"judge": "J"}, map[string]string{"caseId": caseHex}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCase_UpdateCaseHandlerEmptyBody(t *testing.T) {
	c := handlers.Case{DB: &mocks.CaseDatabase{}}
	rr := serve(c.UpdateCaseHandler, newRequest(t, "PUT", "/api/cases/"+caseHex, map[string]string{}, map[string]string{"caseId": caseHex}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "no fields to update", decodeEnvelope(t, rr).Message)
}

func TestCase_ArchiveCaseHandler(t *testing.T) {
	c := handlers.Case{DB: &mocks.CaseDatabase{}}
	rr := serve(c.ArchiveCaseHandler, newRequest(t, "PATCH", "/api/cases/"+caseHex+"/archive", map[string]string{}, map[string]string{"caseId": caseHex}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "archived is required", decodeEnvelope(t, rr).Message)
}
