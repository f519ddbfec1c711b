package databases

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chakshi/chakshi-api/models"
)

// UpcomingHearings returns the scheduled hearings dated within [from, until]
// on unarchived cases, earliest first
func UpcomingHearings(ctx context.Context, db CaseDatabase, from, until time.Time) ([]models.UpcomingHearing, error) {
	start := primitive.NewDateTimeFromTime(from)
	end := primitive.NewDateTimeFromTime(until)

	filter := bson.M{
		"archived": false,
		"hearings": bson.M{"$elemMatch": bson.M{
			"status": models.HearingScheduled,
			"date":   bson.M{"$gte": start, "$lte": end},
		}},
	}
	opts := options.Find().SetProjection(bson.M{
		"caseNumber":    1,
		"caseTitle":     1,
		"court":         1,
		"advocateName":  1,
		"advocateEmail": 1,
		"createdBy":     1,
		"hearings":      1,
	})
	cases, err := db.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	upcoming := []models.UpcomingHearing{}
	for _, c := range cases {
		for _, h := range c.Hearings {
			if h.Status != models.HearingScheduled || h.Date < start || h.Date > end {
				continue
			}
			upcoming = append(upcoming, models.UpcomingHearing{
				CaseID:        c.ID,
				CaseNumber:    c.CaseNumber,
				CaseTitle:     c.CaseTitle,
				Court:         c.Court,
				AdvocateName:  c.AdvocateName,
				AdvocateEmail: c.AdvocateEmail,
				OwnerID:       c.CreatedBy,
				Hearing:       h,
			})
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Hearing.Date < upcoming[j].Hearing.Date })
	return upcoming, nil
}
