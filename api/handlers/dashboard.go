package handlers

import (
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chakshi/chakshi-api/api"
	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/databases"
	"github.com/chakshi/chakshi-api/models"
)

// Dashboard exported for testing purposes
type Dashboard struct {
	CaseDB     databases.CaseDatabase
	DocumentDB databases.DocumentDatabase
	PartyDB    databases.PartyDatabase
	PaymentDB  databases.PaymentDatabase
}

// StatsHandler returns practice wide counts and payment totals by status
func (d Dashboard) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	var stats models.DashboardStats
	nowTime := time.Now()
	counts := []struct {
		dst    *int64
		count  func() (int64, error)
		errMsg string
	}{
		{&stats.TotalCases, func() (int64, error) {
			return d.CaseDB.CountDocuments(ctx, bson.M{"archived": false})
		}, "failed to count cases"},
		{&stats.ActiveCases, func() (int64, error) {
			return d.CaseDB.CountDocuments(ctx, bson.M{"archived": false, "status": models.CaseStatusActive})
		}, "failed to count active cases"},
		{&stats.ClosedCases, func() (int64, error) {
			return d.CaseDB.CountDocuments(ctx, bson.M{"status": bson.M{"$in": bson.A{models.CaseStatusClosed, models.CaseStatusDisposed}}})
		}, "failed to count closed cases"},
		{&stats.ArchivedCases, func() (int64, error) {
			return d.CaseDB.CountDocuments(ctx, bson.M{"archived": true})
		}, "failed to count archived cases"},
		{&stats.UpcomingHearings, func() (int64, error) {
			return d.CaseDB.CountDocuments(ctx, bson.M{"archived": false, "hearings": bson.M{"$elemMatch": bson.M{
				"status": models.HearingScheduled,
				"date": bson.M{
					"$gte": primitive.NewDateTimeFromTime(nowTime),
					"$lte": primitive.NewDateTimeFromTime(nowTime.AddDate(0, 0, 7)),
				},
			}}})
		}, "failed to count upcoming hearings"},
		{&stats.Documents, func() (int64, error) {
			return d.DocumentDB.CountDocuments(ctx, bson.M{})
		}, "failed to count documents"},
		{&stats.Parties, func() (int64, error) {
			return d.PartyDB.CountDocuments(ctx, bson.M{})
		}, "failed to count parties"},
	}
	for _, c := range counts {
		n, err := c.count()
		if err != nil {
			config.ErrorStatus(c.errMsg, http.StatusInternalServerError, w, err)
			return
		}
		*c.dst = n
	}

	totals, err := d.PaymentDB.TotalsByStatus(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to total payments", http.StatusInternalServerError, w, err)
		return
	}
	if totals == nil {
		totals = []models.StatusTotal{}
	}
	stats.Payments = totals

	config.WriteSuccess(w, http.StatusOK, stats, "")
}
