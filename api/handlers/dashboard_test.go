package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/chakshi/chakshi-api/api/handlers"
	"github.com/chakshi/chakshi-api/databases/mocks"
	"github.com/chakshi/chakshi-api/models"
)

func TestDashboard_StatsHandler(t *testing.T) {
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("CountDocuments", mock.Anything, bson.M{"archived": false}).Return(int64(12), nil)
	caseDB.On("CountDocuments", mock.Anything, bson.M{"archived": false, "status": models.CaseStatusActive}).Return(int64(9), nil)
	caseDB.On("CountDocuments", mock.Anything, mock.MatchedBy(func(f bson.M) bool {
		_, ok := f["status"].(bson.M)
		return ok
	})).Return(int64(2), nil)
	caseDB.On("CountDocuments", mock.Anything, bson.M{"archived": true}).Return(int64(4), nil)
	caseDB.On("CountDocuments", mock.Anything, mock.MatchedBy(func(f bson.M) bool {
		_, ok := f["hearings"]
		return ok
	})).Return(int64(3), nil)
	docDB := &mocks.DocumentDatabase{}
	docDB.On("CountDocuments", mock.Anything, bson.M{}).Return(int64(30), nil)
	partyDB := &mocks.PartyDatabase{}
	partyDB.On("CountDocuments", mock.Anything, bson.M{}).Return(int64(7), nil)
	paymentDB := &mocks.PaymentDatabase{}
	paymentDB.On("TotalsByStatus", mock.Anything, bson.M{}).Return([]models.StatusTotal{
		{Status: models.PaymentPaid, Amount: 25000, Count: 2},
	}, nil)

	d := handlers.Dashboard{CaseDB: caseDB, DocumentDB: docDB, PartyDB: partyDB, PaymentDB: paymentDB}
	rr := serve(d.StatsHandler, newRequest(t, "GET", "/api/dashboard/stats", nil, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var stats models.DashboardStats
	decodeData(t, rr, &stats)
	assert.Equal(t, int64(12), stats.TotalCases)
	assert.Equal(t, int64(9), stats.ActiveCases)
	assert.Equal(t, int64(2), stats.ClosedCases)
	assert.Equal(t, int64(4), stats.ArchivedCases)
	assert.Equal(t, int64(3), stats.UpcomingHearings)
	assert.Equal(t, int64(30), stats.Documents)
	assert.Equal(t, int64(7), stats.Parties)
	require.Len(t, stats.Payments, 1)
	assert.Equal(t, 25000.0, stats.Payments[0].Amount)
}

func TestDashboard_StatsHandlerCountError(t *testing.T) {
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), errors.New("timeout"))
	paymentDB := &mocks.PaymentDatabase{}

	d := handlers.Dashboard{CaseDB: caseDB, PaymentDB: paymentDB}
	rr := serve(d.StatsHandler, newRequest(t, "GET", "/api/dashboard/stats", nil, nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "failed to count cases", decodeEnvelope(t, rr).Message)
	paymentDB.AssertNotCalled(t, "TotalsByStatus", mock.Anything, mock.Anything)
}
